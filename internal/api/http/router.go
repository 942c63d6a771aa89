package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-dashboard/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Import)
	tickets.Post("/upload", cfg.Tickets.Upload)
	tickets.Post("/reset", cfg.Tickets.Reset)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/activity", cfg.Tickets.Activity)
}
