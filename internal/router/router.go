package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/syncmind/syncmind-api/internal/config"
	"github.com/syncmind/syncmind-api/internal/handler"
	"github.com/syncmind/syncmind-api/internal/middleware"
	"github.com/syncmind/syncmind-api/internal/models"
	"github.com/syncmind/syncmind-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AccountHandler    *handler.AccountHandler
	AssignmentHandler *handler.AssignmentHandler
	BadgeHandler      *handler.BadgeHandler
	TrialExamHandler  *handler.TrialExamHandler
	ProgressHandler   *handler.ProgressHandler
	EventHandler      *handler.EventHandler
	UploadHandler     *handler.UploadHandler
	ActivityHandler   *handler.ActivityHandler
	Readiness         fiber.Handler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	if deps.Readiness != nil {
		api.Get("/ready", deps.Readiness)
	}

	if deps.AccountHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", cfg.AuthRateLimit, time.Minute))
		deps.AccountHandler.RegisterPublic(auth)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	secured := api.Group("", jwtMiddleware)
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterAuthenticated(secured)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.Register(secured.Group("/events"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(secured.Group("/activity"))
	}

	teacher := secured.Group("/teacher", middleware.RequireRole(models.RoleTeacher))
	student := secured.Group("/student", middleware.RequireRole(models.RoleStudent))

	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterTeacher(teacher)
	}
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterTeacher(teacher.Group("/assignments"))
		deps.AssignmentHandler.RegisterStudent(student.Group("/assignments"))
	}
	if deps.BadgeHandler != nil {
		deps.BadgeHandler.RegisterTeacher(teacher)
		deps.BadgeHandler.RegisterStudent(student)
	}
	if deps.TrialExamHandler != nil {
		deps.TrialExamHandler.RegisterTeacher(teacher.Group("/trial-exams"))
		deps.TrialExamHandler.RegisterStudent(student.Group("/trial-exams"))
	}
	if deps.ProgressHandler != nil {
		deps.ProgressHandler.RegisterTeacher(teacher)
		deps.ProgressHandler.RegisterStudent(student)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(teacher.Group("/resources"))
	}
}
