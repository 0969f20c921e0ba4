package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redirex/shipglobal-backend/internal/api"
	"github.com/redirex/shipglobal-backend/internal/auth"
	"github.com/redirex/shipglobal-backend/internal/config"
	"github.com/redirex/shipglobal-backend/internal/db"
	"github.com/redirex/shipglobal-backend/internal/docstore"
	"github.com/redirex/shipglobal-backend/internal/events"
	"github.com/redirex/shipglobal-backend/internal/gateway"
	"github.com/redirex/shipglobal-backend/internal/ledger"
	"github.com/redirex/shipglobal-backend/internal/logger"
	"github.com/redirex/shipglobal-backend/internal/metrics"
	"github.com/redirex/shipglobal-backend/internal/middleware"
	"github.com/redirex/shipglobal-backend/internal/outbox"
	"github.com/redirex/shipglobal-backend/internal/rates"
	"github.com/redirex/shipglobal-backend/internal/repository/postgres"
	"github.com/redirex/shipglobal-backend/internal/services"
	"github.com/redirex/shipglobal-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	docs, err := docstore.Open(cfg.DocstoreDSN)
	if err != nil {
		log.Error("docstore open", "err", err)
		os.Exit(1)
	}
	defer docs.Close()

	pub, err := events.Connect(cfg.NATSURL)
	if err != nil {
		log.Error("nats connect", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerPoolSize)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	gw := gateway.New(cfg.GatewayBaseURL, cfg.GatewayKey)
	rateSvc := rates.New()

	ledgerSvc := ledger.New(repos.Ledger, repos.Transactions, repos.Users, rateSvc, docs)
	accountSvc := services.NewAccountService(repos.Users, repos.Companies, tm)
	paymentSvc := services.NewPaymentService(gw, ledgerSvc)
	importSvc := services.NewImportService(repos.Imports, docs)

	relay := outbox.NewRelay(repos.Outbox, docs, pub, wp, cfg.OutboxInterval, cfg.OutboxBatchSize)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Auth:     middleware.NewAuthMiddleware(tm),
		Accounts: accountSvc,
		Ledger:   ledgerSvc,
		Payments: paymentSvc,
		Imports:  importSvc,
		Audit:    docs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// the relay must stop submitting before the deferred pool Stop closes it
	<-relayDone
}
