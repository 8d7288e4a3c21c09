package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/praxislab/praxis-api/internal/config"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/internal/observability"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Backend             *backend.Client
	AssignmentHandler   *handler.AssignmentHandler
	IntakeHandler       *handler.IntakeHandler
	EvaluationHandler   *handler.EvaluationHandler
	NotificationHandler *handler.NotificationHandler
	FacultyHandler      *handler.FacultyHandler
	JWTMiddleware       fiber.Handler
	FacultyGuard        fiber.Handler
	StartedAt           time.Time
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	// Common v1 group for ops endpoints & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Backend))
	api.Get("/status", handler.GatewayStatus(cfg, startedAt))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided middleware, or no-ops when nil so tests can mount a
	// subset of the surface.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	facultyGuard := deps.FacultyGuard
	if facultyGuard == nil {
		facultyGuard = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Student surface
	student := api.Group("/student", jwtMiddleware)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(student)
	}
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.Register(student)
	}
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(student)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student)
	}

	// Faculty surface
	if deps.FacultyHandler != nil {
		faculty := api.Group("/faculty", jwtMiddleware, facultyGuard)
		deps.FacultyHandler.Register(faculty)
	}
}
