package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/bootstrap"
)

// adminEnv is the infrastructure and service graph a command runs against.
// Redis is nil when the command did not ask for it or none is configured.
type adminEnv struct {
	DB       *sql.DB
	Redis    redis.UniversalClient
	Services bootstrap.ServiceContainer
}

// hasRedisConfig reports whether cfg names at least one redis endpoint.
func hasRedisConfig(cfg *config.RedisConfig) bool {
	switch {
	case cfg == nil:
		return false
	case cfg.UseCluster:
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	case cfg.UseSentinel:
		return len(cfg.SentinelNodes) > 0
	default:
		return cfg.URI != ""
	}
}

// openEnv connects Postgres, then Redis when wantRedis and configured.
func openEnv(cfg *config.AppConfig, logger *slog.Logger, wantRedis bool) (*adminEnv, error) {
	env := &adminEnv{}

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	env.DB = db

	switch {
	case !wantRedis:
	case !hasRedisConfig(&cfg.Redis):
		logger.Info("redis not configured; continuing without it")
	default:
		client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), env.close())
		}
		env.Redis = client
	}

	env.Services = bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          env.DB,
		RedisClient: env.Redis,
		Logger:      logger,
	})
	return env, nil
}

func (e *adminEnv) close() error {
	var errs []error
	if e.Services.Queue != nil {
		e.Services.Queue.StopAllListeners()
	}
	if e.Redis != nil {
		if err := e.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

// withQueue runs f against a fresh adminEnv under a context that ends on
// SIGINT, SIGTERM or after timeout.
func withQueue(
	cmdCtx *commandContext,
	timeout time.Duration,
	wantRedis bool,
	f func(context.Context, *adminEnv) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	env, err := openEnv(&cmdCtx.Config, cmdCtx.Logger, wantRedis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.close(); cerr != nil {
			cmdCtx.Logger.Warn("close admin environment", "error", cerr)
		}
	}()
	return f(ctx, env)
}

// requireRedis fails commands whose effect only exists in shared Redis state.
func (e *adminEnv) requireRedis(action string) error {
	if e.Redis == nil {
		return fmt.Errorf("%s requires redis; set REDIS_URI", action)
	}
	return nil
}
