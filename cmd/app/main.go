package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-billing/internal/config"
	"store-billing/internal/domain/ports/adapter"
	payAdapters "store-billing/internal/infra/adapters/payment"
	"store-billing/internal/infra/api"
	pg "store-billing/internal/infra/db/postgres"
	"store-billing/internal/infra/events"
	"store-billing/internal/infra/i18n"
	"store-billing/internal/infra/logging"
	"store-billing/internal/infra/metrics"
	red "store-billing/internal/infra/redis"
	"store-billing/internal/infra/sched"
	"store-billing/internal/infra/security"
	"store-billing/internal/infra/worker"
	"store-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, in-memory gateway")
	flag.Parse()

	if err := run(*cfgPath, *devMode); err != nil {
		fmt.Fprintf(os.Stderr, "store-billing: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, dev bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(cfgPath, dev)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	if cfg.App.Commit == "" {
		cfg.App.Commit = commit
	}
	metrics.SetBuildInfo(cfg.App.Version, cfg.App.Commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	// ---- Encryption ----
	var sealer pg.Sealer
	if cfg.Security.EncryptionKey != "" {
		enc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption: %w", err)
		}
		sealer = enc
	} else {
		logger.Warn().Msg("security.encryption_key not set; payment metadata stored unencrypted")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	wallets := pg.NewWalletRepo(pool)
	entries := pg.NewWalletTransactionRepo(pool)
	payments := pg.NewPaymentRepo(pool, sealer)
	subs := pg.NewSubscriptionRepo(pool)
	tokens := pg.NewStoreTokenRepo(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.ZarinPal.MerchantID == "" {
		gateway = payAdapters.NewNoopPaymentGateway()
		logger.Warn().Msg("payment gateway: noop (in-memory)")
	} else {
		zp, err := payAdapters.NewZarinPalGateway(cfg.Payment.ZarinPal.MerchantID, cfg.Payment.ZarinPal.Sandbox, cfg.Payment.ZarinPal.Timeout)
		if err != nil {
			return fmt.Errorf("zarinpal gateway: %w", err)
		}
		gateway = zp
		logger.Info().Bool("sandbox", cfg.Payment.ZarinPal.Sandbox).Msg("payment gateway: zarinpal")
	}

	// ---- Ledger events ----
	var publisher adapter.LedgerPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		evPool := worker.NewPool(cfg.Kafka.Workers, 1024, *logger)
		// not tied to the signal context so queued events still flush on shutdown
		evPool.Start(context.Background())
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka), evPool, *logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error().Err(err).Msg("close ledger publisher")
			}
		}()
		publisher = kp
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("ledger events: kafka")
	} else {
		publisher = events.NewNoopPublisher(*logger)
	}

	// ---- Use cases ----
	walletUC := usecase.NewWalletUseCase(wallets, entries, payments, tm, gateway, publisher,
		usecase.ChargeLimits{Min: cfg.Wallet.MinCharge, Max: cfg.Wallet.MaxCharge},
		cfg.CallbackURL, logger)
	verifyUC := usecase.NewVerifyUseCase(wallets, entries, payments, tm, gateway,
		red.NewLocker(redisClient), red.PaymentVerifyLockKey, publisher, logger)
	subUC := usecase.NewSubscriptionUseCase(subs, wallets, entries, payments, tm, publisher, logger)
	tokenUC := usecase.NewTokenUseCase(tokens, wallets, entries, payments, tm, publisher, logger)

	// ---- Stale payment sweeper ----
	reconciler := sched.NewPaymentReconciler(verifyUC, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StaleAfter, logger)
	go reconciler.Start(ctx)
	go sched.NewLedgerAudit(wallets, time.Hour, logger).Start(ctx)

	// ---- HTTP ----
	bundle, err := i18n.NewBundle(i18n.LocalesFS, i18n.DefaultLang, "en")
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	cbLimit := api.NewKeyLimiter(cfg.HTTP.CallbackRPS, int(cfg.HTTP.CallbackRPS)*5)
	go cbLimit.Run(ctx)

	srv := api.NewServer(api.Deps{
		Wallet:           walletUC,
		Verifier:         verifyUC,
		Subscriptions:    subUC,
		Tokens:           tokenUC,
		Auth:             api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		I18n:             bundle,
		ChargeLimiter:    red.NewRateLimiter(redisClient),
		CallbackLimit:    cbLimit,
		Logger:           logger,
		ChargeLimits:     walletUC.Limits(),
		ChargeRateLimit:  cfg.Wallet.ChargeRateLimit,
		ChargeRateWindow: cfg.Wallet.ChargeRateWindow,
		ChargeRateKey:    red.ChargeRateKey,
		FrontendURL:      cfg.App.FrontendURL,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", cfg.App.Version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
