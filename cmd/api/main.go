package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/appointment-service/internal/actions"
	httptransport "github.com/spec-kit/appointment-service/internal/api/http"
	"github.com/spec-kit/appointment-service/internal/api/http/handlers"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/cache"
	"github.com/spec-kit/appointment-service/internal/config"
	"github.com/spec-kit/appointment-service/internal/events"
	"github.com/spec-kit/appointment-service/internal/observability"
	"github.com/spec-kit/appointment-service/internal/persistence"
	"github.com/spec-kit/appointment-service/internal/repository"
	"github.com/spec-kit/appointment-service/internal/service"
	"github.com/spec-kit/appointment-service/internal/timeline"
	"github.com/spec-kit/appointment-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics("appointments")

	pool := pg.PoolHandle()
	appointmentRepo := repository.NewAppointmentRepository(pool)
	historyRepo := repository.NewAppointmentHistoryRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	if cfg.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, cfg.Kafka.ClientID, logger)
		defer publisher.Close() //nolint:errcheck
		worker.StartEventForwarder(dispatcher, publisher, logger)
	}

	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		AppointmentRepo: appointmentRepo,
		HistoryRepo:     historyRepo,
		Invoices:        service.NewRepositoryInvoiceIssuer(invoiceRepo, cfg.Lifecycle.InvoiceCurrency),
		Cache:           cache.NewRedisAppointmentCache(redis.Client, cfg.Redis.CacheTTL()),
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		Gate:            actions.NewGate(cfg.Lifecycle.CancellationWindow()),
		Timeline: timeline.NewReconstructor(timeline.InferencePolicy{
			ConfirmationDelay: cfg.Lifecycle.ConfirmationInference(),
		}),
	})
	authService := service.NewAuthService(cfg.Auth, accountRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := []handlers.DependencyCheck{{Name: "postgres", Pinger: pg}}
	if redis.Client != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService),
		AuthMiddleware: authMiddleware.Handle,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
