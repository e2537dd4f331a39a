// Package bootstrap assembles the service graph shared by the API binary and
// its end-to-end tests.
package bootstrap

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/TESCHEL/agenthq/internal/api/http"
	"github.com/TESCHEL/agenthq/internal/api/http/handlers"
	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/observability"
	"github.com/TESCHEL/agenthq/internal/persistence"
	"github.com/TESCHEL/agenthq/internal/realtime"
	"github.com/TESCHEL/agenthq/internal/repository"
	"github.com/TESCHEL/agenthq/internal/service"
	"github.com/TESCHEL/agenthq/internal/worker"
)

// Dependencies are the infrastructure handles the graph is built on.
// Postgres and Redis may be nil.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Repos    repository.Repositories
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Clock    service.Clock
}

// Container holds the assembled application.
type Container struct {
	App        *fiber.App
	Hub        *realtime.Hub
	Dispatcher events.Dispatcher

	Auth          *service.AuthService
	Workspaces    *service.WorkspaceService
	Messages      *service.MessageService
	Handoffs      *service.HandoffService
	Memory        *service.MemoryService
	Notifications *service.NotificationService

	LastSeen *worker.LastSeenWorker
	Sweeper  *worker.MemorySweeper

	logger *zap.Logger
}

// Build wires repositories, services, realtime fan-out and HTTP routes.
func Build(deps Dependencies) *Container {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	repos := deps.Repos

	var rdb redis.Cmdable
	if deps.Redis.Enabled() {
		rdb = deps.Redis.Client
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := realtime.NewHub(logger, deps.Metrics)
	realtime.NewBridge(hub, logger).RegisterHandlers(dispatcher)

	lastSeen := worker.NewLastSeenWorker(repos.Agents, rdb, cfg.Presence, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	resolver := auth.NewResolver(tokens, repos.Humans, repos.Agents, lastSeen, logger)
	authMiddleware := auth.NewMiddleware(resolver, cfg.Auth.AgentKeyPrefix)
	access := auth.NewAccessChecker(repos.Workspaces, repos.Channels, repos.Handoffs, repos.Agents)

	authService := service.NewAuthService(cfg.Auth, repos.Humans, tokens)
	workspaceService := service.NewWorkspaceService(service.WorkspaceDependencies{
		WorkspaceRepo:  repos.Workspaces,
		HumanRepo:      repos.Humans,
		ChannelRepo:    repos.Channels,
		AgentRepo:      repos.Agents,
		Access:         access,
		AgentKeyPrefix: cfg.Auth.AgentKeyPrefix,
		Sessions:       hub,
		Logger:         logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		MessageRepo: repos.Messages,
		ChannelRepo: repos.Channels,
		Access:      access,
		Dispatcher:  dispatcher,
		Clock:       deps.Clock,
		Logger:      logger,
	})
	handoffService := service.NewHandoffService(service.HandoffDependencies{
		HandoffRepo:   repos.Handoffs,
		WorkspaceRepo: repos.Workspaces,
		ChannelRepo:   repos.Channels,
		AgentRepo:     repos.Agents,
		Access:        access,
		Messages:      messageService,
		Dispatcher:    dispatcher,
		Clock:         deps.Clock,
		Logger:        logger,
	})
	memoryService := service.NewMemoryService(repos.Memories, deps.Clock)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	gateway := realtime.NewGateway(hub, authMiddleware, access, cfg.Realtime, logger)

	health := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if deps.Postgres != nil && deps.Postgres.Pool != nil {
		health["postgres"] = deps.Postgres
	}
	if deps.Redis.Enabled() {
		health["redis"] = deps.Redis
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, deps.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, health, hub),
		Auth:           handlers.NewAuthHandler(authService),
		Workspaces:     handlers.NewWorkspacesHandler(workspaceService),
		Messages:       handlers.NewMessagesHandler(messageService),
		Handoffs:       handlers.NewHandoffsHandler(handoffService),
		Memory:         handlers.NewMemoryHandler(memoryService),
		Realtime:       gateway,
		AuthMiddleware: authMiddleware,
		Metrics:        deps.Metrics,
	})

	return &Container{
		App:           app,
		Hub:           hub,
		Dispatcher:    dispatcher,
		Auth:          authService,
		Workspaces:    workspaceService,
		Messages:      messageService,
		Handoffs:      handoffService,
		Memory:        memoryService,
		Notifications: notificationService,
		LastSeen:      lastSeen,
		Sweeper:       worker.NewMemorySweeper(memoryService, cfg.Memory.SweepInterval(), logger),
		logger:        logger,
	}
}

// StartWorkers runs the background workers until ctx is done.
func (c *Container) StartWorkers(ctx context.Context) {
	worker.StartNotificationWorker(ctx, c.Notifications)
	go c.LastSeen.Run(ctx)
	go c.Sweeper.Run(ctx)
	c.logger.Info("workers started")
}
