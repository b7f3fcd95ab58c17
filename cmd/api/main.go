package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookline/internal/api"
	"bookline/internal/config"
	"bookline/internal/database"
	"bookline/internal/domain"
	"bookline/internal/events"
	"bookline/internal/logging"
	"bookline/internal/metrics"
	"bookline/internal/payment"
	"bookline/internal/repository"
	"bookline/internal/service"
	"bookline/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	processed := initProcessedStore(redisClient, logger)

	payfastClient := payment.NewClient(payment.Config{
		MerchantID:  cfg.Payfast.MerchantID,
		MerchantKey: cfg.Payfast.MerchantKey,
		Passphrase:  cfg.Payfast.Passphrase,
		Sandbox:     cfg.Payfast.Sandbox,
		ReturnURL:   cfg.App.BaseURL + "/payment/return",
		CancelURL:   cfg.App.BaseURL + "/payment/cancel",
		NotifyURL:   cfg.App.BaseURL + "/api/v1/webhooks/payfast",
	})

	eventBus := events.NewEventBus()
	limits := domain.TierLimits(cfg.Billing.TierLimits)

	notifier := service.NewNotificationService(db, logger)
	activities := service.NewActivityService(db, logger)
	schedules := service.NewScheduleService(db, db, logger)
	subscriptions := service.NewSubscriptionService(db, notifier, limits, cfg.Billing.GracePeriodDays, logger)
	packs := service.NewPackService(db, db, logger)
	bookings := service.NewBookingService(db, db, db, db, payfastClient, notifier, eventBus,
		cfg.Booking.MaxAdvanceDays, logger)
	settlement := service.NewSettlementService(db, db, db, db, subscriptions, processed,
		notifier, eventBus, logger)

	httpServer := api.NewHTTPServer(cfg.API, activities, schedules, bookings, packs,
		subscriptions, settlement, payfastClient, processed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifyWorker := worker.NewNotifyWorker(db, &worker.LogEmailSender{Logger: logger}, worker.RetryPolicy{
		MaxRetries: cfg.Worker.MaxRetries,
	}, nil)
	notifyWorker.SetPollInterval(time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second)
	notifyWorker.SetBatchSize(cfg.Worker.BatchSize)
	go notifyWorker.Start(ctx)

	billingWorker := worker.NewBillingWorker(subscriptions, db, cfg.Billing.CycleSchedule, logger)
	if err := billingWorker.Start(); err != nil {
		return fmt.Errorf("start billing worker: %w", err)
	}
	defer billingWorker.Stop()

	startMetrics(ctx, cfg, logger)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("booking API started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("booking API stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	db.SetTierLimits(domain.TierLimits(cfg.Billing.TierLimits))
	db.SetLockTimeout(time.Duration(cfg.Booking.LockTimeoutSeconds) * time.Second)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initProcessedStore picks redis with memory failover when redis is up, and
// plain memory otherwise.
func initProcessedStore(redisClient *redis.Client, logger *zerolog.Logger) domain.ProcessedStore {
	memory := repository.NewMemoryProcessedStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverProcessedStore(
		repository.NewRedisProcessedStore(redisClient), memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
