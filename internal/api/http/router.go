package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticket-bot/internal/api/http/handlers"
	"github.com/supportdesk/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Guilds         *handlers.GuildHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	guilds := app.Group("/api/v1/guilds/:guildID", cfg.AuthMiddleware.Handle, auth.RequireGuildScope())
	guilds.Get("/stats", cfg.Guilds.Stats)
	guilds.Get("/settings", cfg.Guilds.Settings)
	guilds.Get("/audit", cfg.Guilds.Audit)
	guilds.Get("/tickets/:ticketID", cfg.Guilds.Ticket)
}
