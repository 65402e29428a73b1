package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/Jhoe24/maintenance-tracker/internal/api/http"
	"github.com/Jhoe24/maintenance-tracker/internal/api/http/handlers"
	"github.com/Jhoe24/maintenance-tracker/internal/config"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/mail"
	"github.com/Jhoe24/maintenance-tracker/internal/media"
	"github.com/Jhoe24/maintenance-tracker/internal/observability"
	"github.com/Jhoe24/maintenance-tracker/internal/persistence"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
	"github.com/Jhoe24/maintenance-tracker/internal/service"
	"github.com/Jhoe24/maintenance-tracker/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	trackingRepo := repository.NewTrackingRepository(pool)
	queueRepo := repository.NewQueuedEmailRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	sender := mail.NewSender(cfg.Mail, logger)

	var storage media.Storage
	if cfg.Media.Endpoint != "" {
		minioStorage, err := media.NewMinioStorage(ctx, cfg.Media)
		if err != nil {
			logger.Fatal("failed to init object storage", zap.Error(err))
		}
		storage = minioStorage
	}

	intakeService := service.NewIntakeService(service.IntakeDependencies{
		TicketRepo:   ticketRepo,
		TrackingRepo: trackingRepo,
		Dispatcher:   dispatcher,
	})
	trackingService := service.NewTrackingService(service.TrackingDependencies{
		TicketRepo:   ticketRepo,
		TrackingRepo: trackingRepo,
		Cache:        redis.Client,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	notificationService := service.NewNotificationService(dispatcher, sender, queueRepo, logger)
	notificationService.RegisterHandlers()

	retryWorker := worker.NewEmailRetryWorker(queueRepo, sender, logger, cfg.Worker)
	if cfg.Worker.Enabled {
		retryWorker.Start(ctx)
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	ticketsHandler := handlers.NewTicketsHandler(intakeService)
	trackingHandler := handlers.NewTrackingHandler(trackingService, storage)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Tickets:  ticketsHandler,
		Tracking: trackingHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if cfg.Worker.Enabled {
		retryWorker.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
