package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/support-hub/helpdesk-core/internal/api/http"
	"github.com/support-hub/helpdesk-core/internal/api/http/handlers"
	"github.com/support-hub/helpdesk-core/internal/auth"
	"github.com/support-hub/helpdesk-core/internal/config"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/observability"
	"github.com/support-hub/helpdesk-core/internal/persistence"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/schedule"
	"github.com/support-hub/helpdesk-core/internal/service"
	"github.com/support-hub/helpdesk-core/internal/worker"
)

// dispatchd is the operator-facing process: transitions, replies, reminders,
// operator login and the Postgres audit trail.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "dispatchd")
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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	ticketRepo := repository.NewTicketRepository(redis.Client, cfg.Core.TicketRetention(), logger)
	reminderRepo := repository.NewReminderRepository(redis.Client, logger)
	counterStore := repository.NewCounterStore(redis.Client)

	var (
		auditRepo    repository.AuditRepository
		operatorRepo repository.OperatorRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		auditRepo = repository.NewAuditRepository(pool)
		operatorRepo = repository.NewOperatorRepository(pool)
	}

	statsService := service.NewStatsService(counterStore, cfg.Core, logger)
	bus := events.NewRedisBus(redis.Client, logger, metrics)
	scheduler := schedule.NewScheduler(logger)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: ticketRepo,
		Stats:      statsService,
		Bus:        bus,
		Logger:     logger,
	})
	reminderService := service.NewReminderService(service.ReminderDependencies{
		TicketRepo:   ticketRepo,
		ReminderRepo: reminderRepo,
		Bus:          bus,
		Scheduler:    scheduler,
		Default:      cfg.Core.ReminderDefault(),
		Logger:       logger,
	})

	worker.StartDispatchWorker(auditRepo, reminderService, bus, logger)
	bus.Run(ctx)
	go scheduler.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, 30*time.Second)

	routeCfg := httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name+"-dispatchd", cfg.App.Version, pg, redis),
	}
	if operatorRepo != nil {
		authService := service.NewAuthService(*cfg, operatorRepo)
		routeCfg.Operators = handlers.NewOperatorsHandler(authService)
		routeCfg.AuthMiddleware = auth.NewAuthMiddleware(authService.TokenManager(), operatorRepo)
		routeCfg.Tickets = handlers.NewTicketsHandler(ticketRepo, lifecycleService, reminderService, auditRepo)
	}

	httptransport.RegisterRoutes(app, routeCfg)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	if err := bus.Close(); err != nil {
		logger.Warn("bus shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
