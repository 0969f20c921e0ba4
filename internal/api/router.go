package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/redirex/shipglobal-backend/internal/api/handlers"
	"github.com/redirex/shipglobal-backend/internal/config"
	"github.com/redirex/shipglobal-backend/internal/docstore"
	"github.com/redirex/shipglobal-backend/internal/ledger"
	"github.com/redirex/shipglobal-backend/internal/metrics"
	"github.com/redirex/shipglobal-backend/internal/middleware"
	"github.com/redirex/shipglobal-backend/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Auth     *middleware.AuthMiddleware
	Accounts *services.AccountService
	Ledger   *ledger.Service
	Payments *services.PaymentService
	Imports  *services.ImportService
	Audit    *docstore.Store
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Accounts)
	balanceH := handlers.NewBalanceHandler(d.Ledger, d.Payments)
	paymentH := handlers.NewPaymentHandler(d.Payments)
	importH := handlers.NewImportHandler(d.Imports)
	auditH := handlers.NewAuditHandler(d.Audit)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register-user", authH.RegisterUser)
		r.Post("/auth/register-company", authH.RegisterCompany)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// everything below requires a session
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			r.Get("/balance", balanceH.Overview)
			r.Post("/balance/deposit", balanceH.Deposit)
			r.Post("/balance/withdrawal", balanceH.Withdrawal)
			r.Post("/balance/refund", balanceH.Refund)
			r.Get("/balance/reconcile", balanceH.Reconcile)

			r.Post("/create-payment-intent", paymentH.CreateIntent)
			r.Post("/create-payout", paymentH.CreatePayout)
			r.Post("/create-refund", paymentH.CreateRefund)

			// operator surface
			r.With(middleware.RequireRole("admin")).Get("/audit", auditH.List)

			r.Route("/imports", func(r chi.Router) {
				r.Get("/", importH.List)
				r.Post("/", importH.Create)
				r.Get("/{id}", importH.Get)
				r.Patch("/{id}/status", importH.UpdateStatus)
				r.Delete("/{id}", importH.Delete)
			})
		})
	})

	return r
}
