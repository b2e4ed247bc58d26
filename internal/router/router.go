package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skp-companion/internal/config"
	"github.com/noah-isme/skp-companion/internal/handler"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler *handler.SessionHandler
	ClaimHandler   *handler.ClaimHandler
	PendingHandler *handler.PendingHandler
	AdminHandler   *handler.AdminHandler
	// AdminGuard overrides the default role check in front of the admin routes.
	AdminGuard fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/session"))
		deps.SessionHandler.RegisterProfile(api.Group("/profile"))
	}

	if deps.ClaimHandler != nil {
		deps.ClaimHandler.Register(api.Group("/claims"))
	}

	if deps.PendingHandler != nil {
		deps.PendingHandler.Register(api.Group("/pending"))
	}

	if deps.AdminHandler != nil {
		guard := deps.AdminGuard
		if guard == nil {
			guard = middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSuperAdmin)
		}
		deps.AdminHandler.Register(api.Group("/admin", guard))
	}
}
