package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduai-go-api/internal/config"
	"github.com/noah-isme/eduai-go-api/internal/handler"
	"github.com/noah-isme/eduai-go-api/internal/middleware"
	"github.com/noah-isme/eduai-go-api/internal/observability"
	"github.com/noah-isme/eduai-go-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	ReviewHandler     *handler.ReviewHandler
	AnalyticsHandler  *handler.AnalyticsHandler
	NarrationHandler  *handler.NarrationHandler
	ParentHandler     *handler.ParentHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Submissions (create, read, review, bulk approval, narration)
	if deps.SubmissionHandler != nil {
		submissions := app.Group("/api/v2/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)

		if deps.NarrationHandler != nil {
			deps.NarrationHandler.Register(submissions)
		}

		// Registered last: the group middleware applies to every later
		// route under this prefix, and narration stays open to students
		// and guardians.
		if deps.ReviewHandler != nil {
			reviewGroup := submissions.Group("", middleware.RequireRole(service.RoleTeacher, service.RoleAdmin))
			deps.ReviewHandler.Register(reviewGroup)
		}
	}

	// Student analytics & teacher statistics
	if deps.AnalyticsHandler != nil {
		students := app.Group("/api/v2/students", jwtMiddleware)
		deps.AnalyticsHandler.RegisterStudent(students)

		teachers := app.Group("/api/v2/teachers", jwtMiddleware, middleware.RequireRole(service.RoleTeacher, service.RoleAdmin))
		deps.AnalyticsHandler.RegisterTeacher(teachers)
	}

	// Guardian surface
	if deps.ParentHandler != nil {
		parents := app.Group("/api/v2/parents", jwtMiddleware, middleware.RequireRole(service.RoleParent, service.RoleAdmin))
		deps.ParentHandler.Register(parents)
	}
}
