package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ordercore-backend/api/routes"
	"github.com/angelmondragon/ordercore-backend/internal/audit"
	"github.com/angelmondragon/ordercore-backend/internal/ecpay"
	"github.com/angelmondragon/ordercore-backend/internal/history"
	"github.com/angelmondragon/ordercore-backend/internal/inventory"
	"github.com/angelmondragon/ordercore-backend/internal/notifications"
	"github.com/angelmondragon/ordercore-backend/internal/orders"
	"github.com/angelmondragon/ordercore-backend/internal/payments"
	"github.com/angelmondragon/ordercore-backend/pkg/config"
	"github.com/angelmondragon/ordercore-backend/pkg/db"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
	"github.com/angelmondragon/ordercore-backend/pkg/metrics"
	"github.com/angelmondragon/ordercore-backend/pkg/migrate"
	"github.com/angelmondragon/ordercore-backend/pkg/outbox"
	"github.com/angelmondragon/ordercore-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Deps{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
	}

	var guard payments.CallbackGuard
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()

		deps.Redis = redisClient
		deps.Idempotency = redisClient
		deps.Limiter = redisClient
		guard = redis.NewCallbackGuard(redisClient, "ecpay", cfg.ECPay.CallbackTTL)
	} else {
		logg.Warn(ctx, "redis not configured; idempotency keys, rate limits and callback guard disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.Gatherer = registry

	gateway, err := ecpay.NewClient(cfg.ECPay)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	tracker, err := history.NewTracker(conn)
	if err != nil {
		return err
	}
	notificationRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewSink(notificationRepo, outboxService)
	if err != nil {
		return err
	}
	auditService, err := audit.NewService(audit.NewRepository(conn))
	if err != nil {
		return err
	}
	ledger := inventory.NewLedger()

	deps.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Tx:       dbClient,
		Ledger:   ledger,
		Tracker:  tracker,
		Notifier: notifier,
		Audit:    auditService,
		Outbox:   outboxService,
		Metrics:  domainMetrics,
		Logger:   logg,
		Config:   cfg.Orders,
	})
	if err != nil {
		return err
	}

	deps.Payments, err = payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(conn),
		Tx:       dbClient,
		Tracker:  tracker,
		Notifier: notifier,
		Audit:    auditService,
		Outbox:   outboxService,
		Gateway:  gateway,
		Guard:    guard,
		Metrics:  domainMetrics,
		Logger:   logg,
		Config:   cfg.Orders,
	})
	if err != nil {
		return err
	}

	deps.Inventory, err = inventory.NewService(dbClient, ledger, auditService, outboxService)
	if err != nil {
		return err
	}
	deps.Notifications, err = notifications.NewService(notificationRepo)
	if err != nil {
		return err
	}
	deps.Audit = auditService

	return serve(ctx, cfg, logg, routes.NewRouter(deps))
}

func serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, handler http.Handler) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
