package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/adapters/sweeper"
	"github.com/target/mmk-ce-queue/internal/adapters/worker"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
	"github.com/target/mmk-ce-queue/internal/service"
)

// WorkerRunnerConfig contains configuration for the worker pool.
type WorkerRunnerConfig struct {
	Queue    *service.QueueService
	Registry core.WorkerRegistry
	State    *service.ProcessState
	Config   config.WorkerConfig
	// Handlers keyed by job type. Job types without a handler go to the
	// HTTP dispatcher when Config.DispatchURL is set.
	Handlers map[string]worker.HandlerFunc
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// RunWorkers starts the worker pool and blocks until ctx is cancelled.
func RunWorkers(ctx context.Context, cfg WorkerRunnerConfig) error {
	if cfg.Queue == nil {
		return errors.New("worker pool requires a queue service")
	}

	fallback, err := dispatchFallback(cfg.Config)
	if err != nil {
		return err
	}

	opts := worker.RunnerOptions{
		Queue:    cfg.Queue,
		Handlers: cfg.Handlers,
		Fallback: fallback,
		Registry: cfg.Registry,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	}
	// A nil *ProcessState must not become a non-nil interface.
	if cfg.State != nil {
		opts.State = cfg.State
	}

	runner, err := worker.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create worker runner: %w", err)
	}
	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run worker runner: %w", runErr)
	}
	return nil
}

func dispatchFallback(cfg config.WorkerConfig) (worker.HandlerFunc, error) {
	if cfg.DispatchURL == "" {
		return nil, nil
	}
	d, err := worker.NewDispatcher(worker.DispatcherOptions{
		URL:     cfg.DispatchURL,
		Timeout: cfg.DispatchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create task dispatcher: %w", err)
	}
	return d.Handle, nil
}

// SweeperRunnerConfig contains configuration for the sweeper.
type SweeperRunnerConfig struct {
	Queue    core.QueueMaintenance
	Registry core.WorkerRegistry
	Config   config.SweeperConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// RunSweeper starts the sweep loop and blocks until ctx is cancelled.
func RunSweeper(ctx context.Context, cfg SweeperRunnerConfig) error {
	runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
		Queue:    cfg.Queue,
		Registry: cfg.Registry,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create sweeper runner: %w", err)
	}
	return runner.Run(ctx)
}
