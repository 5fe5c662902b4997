package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdf-store-backend/internal/config"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	payAdapters "pdf-store-backend/internal/infra/adapters/payment"
	pg "pdf-store-backend/internal/infra/db/postgres"
	"pdf-store-backend/internal/infra/email"
	"pdf-store-backend/internal/infra/files"
	"pdf-store-backend/internal/infra/logging"
	"pdf-store-backend/internal/infra/metrics"
	red "pdf-store-backend/internal/infra/redis"
	"pdf-store-backend/internal/infra/sched"
	"pdf-store-backend/internal/infra/web"
	"pdf-store-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	strict := flag.Bool("strict", false, "production mode: abort on missing required config")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *strict)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, !cfg.Runtime.Strict)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	// ---- Redis (optional; downloads fall back to SQL-only CAS) ----
	var locker usecase.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; download lock disabled")
		} else {
			defer redisClient.Close()
			locker = red.NewLocker(redisClient)
		}
	}

	// ---- Catalog & files ----
	catalog := model.DefaultCatalog()
	store := files.NewDiskStore(cfg.Files.Dir, logger)
	if missing := store.VerifyCatalog(catalog); missing > 0 {
		logger.Warn().Int("missing", missing).Str("dir", cfg.Files.Dir).Msg("some package files are absent")
	}

	// ---- Payment gateway (nil when unconfigured; checkout serves 503) ----
	var gateway adapter.PaymentGateway
	if cfg.Payment.Razorpay.Configured() {
		gateway, err = payAdapters.NewRazorpayGateway(
			cfg.Payment.Razorpay.KeyID,
			cfg.Payment.Razorpay.KeySecret,
			cfg.Payment.Razorpay.WebhookSecret,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("razorpay gateway init failed")
		}
	} else {
		logger.Warn().Msg("razorpay credentials not configured; checkout disabled")
	}

	// ---- Mailer (nil when unconfigured; dispatch becomes a logged no-op) ----
	var mailer adapter.Mailer
	if cfg.Email.Configured() {
		mailer = email.NewSMTPMailer(&cfg.Email, logger)
	} else {
		logger.Warn().Msg("email credentials not configured; download links will not be mailed")
	}

	// ---- Repositories & use cases ----
	orderRepo := pg.NewPostgresOrderRepo(pool)
	txManager := pg.NewTxManager(pool)

	notifUC := usecase.NewNotificationUseCase(orderRepo, mailer, cfg.Server.FrontendURL, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, catalog, gateway, logger)
	paymentUC := usecase.NewPaymentUseCase(orderRepo, txManager, gateway, notifUC, logger)
	downloadUC := usecase.NewDownloadUseCase(orderRepo, catalog, store, locker, logger)
	statsUC := usecase.NewStatsUseCase(orderRepo, logger)

	// ---- Admin session auth ----
	var auth *web.AuthManager
	if cfg.Admin.JWTSecret != "" && cfg.Admin.Password != "" {
		auth = web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Runtime.Strict, cfg.Admin.SessionTTL)
	} else {
		logger.Warn().Msg("admin password/jwt secret not configured; admin API disabled")
	}

	// ---- HTTP server ----
	srv := web.NewServer(web.ServerDeps{
		OrderUC:        orderUC,
		PaymentUC:      paymentUC,
		DownloadUC:     downloadUC,
		StatsUC:        statsUC,
		Catalog:        catalog,
		DB:             pool,
		GatewayReady:   gateway != nil,
		FrontendOrigin: cfg.Server.FrontendURL,
		Auth:           auth,
		AdminPassword:  cfg.Admin.Password,
	}, logger)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	// Prometheus scrape endpoint on its own listener, never exposed
	// through the public router.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port+1), mux); err != nil {
			logger.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()

	// ---- Expiry reaper ----
	worker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, orderRepo, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
