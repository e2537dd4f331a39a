package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/bootstrap"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/observability"
	"github.com/TESCHEL/agenthq/internal/persistence"
	"github.com/TESCHEL/agenthq/internal/repository"
	"github.com/TESCHEL/agenthq/internal/repository/memstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repository.Repositories
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewRepositories(pool)
	} else {
		repos = memstore.New().Repositories()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	container := bootstrap.Build(bootstrap.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Repos:    repos,
		Postgres: pg,
		Redis:    redis,
	})
	container.StartWorkers(ctx)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := container.App.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := container.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
