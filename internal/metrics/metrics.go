package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Total successful ledger transactions",
		},
		[]string{"type"}, // deposit|withdrawal|refund|transfer
	)
	TransactionsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_failed_total",
			Help: "Total failed ledger transactions",
		},
	)
	TransactionsVoided = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_voided_total",
			Help: "Total completed transactions voided",
		},
	)

	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Calls against the payment gateway",
		},
		[]string{"op", "status"}, // intent|payout|refund, ok|error
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending",
			Help: "Outbox entries awaiting projection",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsFailed)
	prometheus.MustRegister(TransactionsVoided)
	prometheus.MustRegister(GatewayRequests)
	prometheus.MustRegister(OutboxPending)
	prometheus.MustRegister(WorkerQueueDepth)
}
