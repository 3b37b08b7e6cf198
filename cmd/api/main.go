package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-core/internal/api/http"
	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/internal/worker"
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

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	uow := repository.NewUnitOfWork(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	var dispatcher events.Dispatcher = events.NewInMemoryDispatcher()
	if cfg.Kafka.Enabled() {
		sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, logger)
		defer sink.Close() //nolint:errcheck
		dispatcher = events.WithKafkaSink(dispatcher, sink)
		logger.Info("kafka event sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		UnitOfWork:   uow,
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		ActivityRepo: activityRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		UnitOfWork:  uow,
		SessionRepo: sessionRepo,
		Logger:      logger,
	})
	settingsService := service.NewSettingsService(settingsRepo, defaultSettings(cfg.Automation), logger)
	automationService := service.NewAutomationService(service.AutomationDependencies{
		UnitOfWork:     uow,
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		Settings:       settingsService,
		Deduper:        persistence.NewRedisReminderDeduper(redis),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	scoringService := service.NewScoringService(uow, logger, nil)
	notificationService := service.NewNotificationService(logger)

	worker.StartNotificationWorker(notificationService, dispatcher)

	automationWorker := worker.NewAutomationWorker(automationService, sessionService, metrics, logger)
	if err := automationWorker.Start(cfg.Automation.SweepSpec); err != nil {
		logger.Fatal("failed to start automation worker", zap.Error(err))
	}
	defer automationWorker.Stop()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, scoringService),
		Sessions:       handlers.NewSessionsHandler(sessionService),
		Automation:     handlers.NewAutomationHandler(automationService, settingsService),
		Reports:        handlers.NewReportsHandler(scoringService),
		AuthMiddleware: authMiddleware,
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

func defaultSettings(cfg config.AutomationConfig) domain.AutomationSettings {
	return domain.AutomationSettings{
		PendingReminderEnabled:     cfg.DefaultPendingReminderEnabled,
		PendingReminderHours:       cfg.DefaultPendingReminderHours,
		AutoSolveEnabled:           cfg.DefaultAutoSolveEnabled,
		AutoSolveHours:             cfg.DefaultAutoSolveHours,
		AutoCloseEnabled:           cfg.DefaultAutoCloseEnabled,
		AutoCloseHours:             cfg.DefaultAutoCloseHours,
		AttachmentRetentionEnabled: cfg.DefaultAttachmentRetentionEnabled,
		AttachmentRetentionDays:    cfg.DefaultAttachmentRetentionDays,
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
