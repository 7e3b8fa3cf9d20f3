// Package sweeper provides adapters for running the queue sweeper.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
	"github.com/target/mmk-ce-queue/internal/service"
)

// Runner provides a simple adapter to run the sweep loop.
type Runner struct {
	sweeper *service.SweeperService
	logger  *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Queue    core.QueueMaintenance
	Registry core.WorkerRegistry
	Config   config.SweeperConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// NewRunner creates a new sweeper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	sweeper, err := service.NewSweeperService(service.SweeperServiceOptions{
		Queue:    opts.Queue,
		Registry: opts.Registry,
		Config:   opts.Config,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire sweeper service: %w", err)
	}

	return &Runner{sweeper: sweeper, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Queue == nil {
		return errors.New("queue controller is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil && opts.Config.ResetUnknownWorkers {
		opts.Logger.Warn("no worker registry configured; unknown-worker resets are disabled")
	}
	return nil
}

// Run starts the sweep loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting sweeper runner")
	return r.sweeper.Run(ctx)
}
