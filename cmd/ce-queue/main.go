// Command ce-queue runs the queue services selected by SERVICES: the worker
// pool, the sweeper and the HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit on fatal startup error
	}

	logger := bootstrap.InitLogger(&cfg)
	if err := run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "ce queue exited", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit on fatal startup error
	}
}

// backends are the connections every service shares.
type backends struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (b *backends) close(ctx context.Context, logger *slog.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis", "error", err)
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database", "error", err)
		}
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if err := bootstrap.ValidateServiceConfig(cfg); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, cfg)

	b, err := connectBackends(cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(ctx, logger)

	if !cfg.Postgres.RunMigrationsOnStart {
		logger.InfoContext(ctx, "startup migrations disabled", "env", "DB_RUN_MIGRATIONS_ON_START")
	} else if err := bootstrap.RunMigrations(ctx, b.db, logger); err != nil {
		return err
	}

	services := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          b.db,
		RedisClient: b.redis,
		Logger:      logger,
	})
	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   cfg,
		Services: services,
		Logger:   logger,
	})
}

// connectBackends opens Postgres then Redis. Both are required: Redis holds
// the cross-node pause flag and the worker registry.
func connectBackends(cfg *config.AppConfig, logger *slog.Logger) (*backends, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	rdb, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
		}
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &backends{db: db, redis: rdb}, nil
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	attrs := []any{
		"node_name", cfg.NodeName,
		"services", bootstrap.GetEnabledServices(cfg),
		"db", fmt.Sprintf("%s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Name),
		"parallel_pr_enabled", cfg.Queue.ParallelPREnabled,
	}
	if cfg.IsWorkerEnabled() {
		attrs = append(attrs, "workers", cfg.Worker.Count)
	}
	if cfg.IsHTTPEnabled() {
		attrs = append(attrs,
			"http_addr", cfg.HTTP.Addr,
			"http_token_protected", cfg.HTTP.APIToken != "",
			"http_max_peek_wait", cfg.HTTP.MaxPeekWait)
	}
	logger.InfoContext(ctx, "starting ce queue", attrs...)
}
