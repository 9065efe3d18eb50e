package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/appointment-service/internal/api/http/handlers"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Appointments   *handlers.AppointmentsHandler
	AuthMiddleware fiber.Handler
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	appointments := app.Group("/appointments", cfg.AuthMiddleware, auth.RequireAnyRole())
	appointments.Get("/", cfg.Appointments.List)
	appointments.Get("/:id", cfg.Appointments.Get)
	appointments.Get("/:id/actions", cfg.Appointments.Actions)
	appointments.Get("/:id/timeline", cfg.Appointments.Timeline)
	appointments.Get("/:id/history", auth.RequireRole(domain.RoleStaff), cfg.Appointments.History)
	appointments.Post("/:id/transitions", cfg.Appointments.Transition)
	appointments.Post("/:id/review", auth.RequireRole(domain.RoleClient), cfg.Appointments.Review)
}
