package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/support-hub/helpdesk-core/internal/api/http/handlers"
	"github.com/support-hub/helpdesk-core/internal/auth"
)

// RouteConfig bundles dependencies for route registration. Handlers left nil
// are skipped, so each process registers only the surface it owns.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Messages       *handlers.MessagesHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	Operators      *handlers.OperatorsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	if cfg.Messages != nil {
		api.Post("/messages", cfg.Messages.Ingest)
	}

	if cfg.Operators != nil {
		authGroup := app.Group("/auth")
		authGroup.Post("/operators/login", cfg.Operators.Login)
		if cfg.AuthMiddleware != nil {
			authGroup.Post("/operators", cfg.AuthMiddleware.Handle, cfg.Operators.Create)
		}
	}

	if cfg.Tickets != nil {
		api.Get("/tickets", cfg.Tickets.List)
		api.Get("/tickets/:id", cfg.Tickets.Get)
		api.Get("/tickets/:id/audit", cfg.Tickets.Audit)

		protected := api.Group("", cfg.AuthMiddleware.Handle)
		protected.Post("/tickets/:id/transition", cfg.Tickets.Transition)
		protected.Delete("/tickets/:id", cfg.Tickets.Delete)
		protected.Post("/tickets/:id/reply", cfg.Tickets.Reply)
		protected.Post("/tickets/:id/reminder", cfg.Tickets.Reminder)
	}

	if cfg.Stats != nil {
		api.Get("/stats", cfg.Stats.Global)
		api.Get("/stats/snapshot", cfg.Stats.Snapshot)
		api.Get("/stats/:period", cfg.Stats.Period)
	}
}
