package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jhoe24/maintenance-tracker/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Tracking *handlers.TrackingHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	api.Post("/tickets", cfg.Tickets.Register)
	api.Get("/tickets", cfg.Tickets.List)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Post("/tickets/:id/technician", cfg.Tickets.AssignTechnician)

	api.Post("/tickets/:id/tracking", cfg.Tracking.Advance)
	api.Get("/tickets/:id/tracking/form", cfg.Tracking.TransitionForm)

	api.Get("/clients/:cedula/timelines", cfg.Tracking.ClientTimelines)
}
