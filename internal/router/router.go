package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rims-platform/rims-api/internal/config"
	"github.com/rims-platform/rims-api/internal/handler"
	"github.com/rims-platform/rims-api/internal/middleware"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	RecordHandler      *handler.RecordHandler
	AdminRecordHandler *handler.AdminRecordHandler
	AdminUserHandler   *handler.AdminUserHandler
	JWTMiddleware      fiber.Handler
	AuthRateLimit      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		if deps.AuthRateLimit != nil {
			auth.Use(deps.AuthRateLimit)
		}
		deps.AuthHandler.Register(auth, jwtMiddleware)
	}

	if deps.RecordHandler != nil {
		records := api.Group("/records", jwtMiddleware)
		deps.RecordHandler.Register(records)
	}

	// The role gate here is an early rejection only; the admin services
	// re-check the stored profile on every call.
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))

	if deps.AdminRecordHandler != nil {
		deps.AdminRecordHandler.Register(admin.Group("/records"))
	}

	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
	}
}
