package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/TESCHEL/agenthq/internal/api/http/handlers"
	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/observability"
	"github.com/TESCHEL/agenthq/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Workspaces     *handlers.WorkspacesHandler
	Messages       *handlers.MessagesHandler
	Handoffs       *handlers.HandoffsHandler
	Memory         *handlers.MemoryHandler
	Realtime       *realtime.Gateway
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	if cfg.Realtime != nil {
		app.Get("/ws", cfg.Realtime.Handshake, cfg.Realtime.Handler())
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)

	workspaces := protected.Group("/workspaces")
	workspaces.Get("/", cfg.Workspaces.List)
	workspaces.Post("/", auth.RequireHuman(), cfg.Workspaces.Create)
	workspaces.Get("/:id", cfg.Workspaces.Get)
	workspaces.Post("/:id/members", auth.RequireHuman(), cfg.Workspaces.AddMember)
	workspaces.Get("/:id/channels", cfg.Workspaces.ListChannels)
	workspaces.Post("/:id/channels", cfg.Workspaces.CreateChannel)
	workspaces.Get("/:id/agents", cfg.Workspaces.ListAgents)
	workspaces.Post("/:id/agents", auth.RequireHuman(), cfg.Workspaces.CreateAgent)
	workspaces.Get("/:id/handoffs", cfg.Handoffs.List)
	workspaces.Post("/:id/handoffs", cfg.Handoffs.Create)

	protected.Patch("/agents/:id", auth.RequireHuman(), cfg.Workspaces.UpdateAgent)

	protected.Get("/channels/:id/messages", cfg.Messages.List)
	protected.Post("/channels/:id/messages", cfg.Messages.Send)

	protected.Get("/handoffs/:id", cfg.Handoffs.Get)
	protected.Patch("/handoffs/:id", cfg.Handoffs.Update)

	memory := protected.Group("/memory", auth.RequireAgent())
	memory.Get("/", cfg.Memory.Get)
	memory.Post("/", cfg.Memory.Set)
	memory.Delete("/", cfg.Memory.Delete)
}
