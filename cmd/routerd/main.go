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
	"github.com/support-hub/helpdesk-core/internal/config"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/observability"
	"github.com/support-hub/helpdesk-core/internal/persistence"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
	"github.com/support-hub/helpdesk-core/internal/worker"
)

// routerd keeps routing labels in step with ticket status and serves the
// statistics surface, refreshing the stored snapshot periodically.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "routerd")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	ticketRepo := repository.NewTicketRepository(redis.Client, cfg.Core.TicketRetention(), logger)
	counterStore := repository.NewCounterStore(redis.Client)
	snapshotStore := repository.NewSnapshotStore(redis.Client)

	statsService := service.NewStatsService(counterStore, cfg.Core, logger)
	bus := events.NewRedisBus(redis.Client, logger, metrics)

	routerWorker := worker.NewRouterWorker(worker.RouterDependencies{
		TicketRepo:   ticketRepo,
		Stats:        statsService,
		Snapshots:    snapshotStore,
		RefreshEvery: cfg.Core.StatsRefresh(),
		Logger:       logger,
	})
	routerWorker.Start(bus)
	bus.Run(ctx)
	go routerWorker.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, 30*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name+"-routerd", cfg.App.Version, nil, redis),
		Stats:  handlers.NewStatsHandler(statsService, snapshotStore),
	})

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
