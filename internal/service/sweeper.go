package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/core"
	obserrors "github.com/target/mmk-ce-queue/internal/observability/errors"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
)

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Queue    core.QueueMaintenance // Required: queue controller
	Registry core.WorkerRegistry   // Optional: live workers; without it unknown-worker resets are skipped
	Config   config.SweeperConfig  // Required: sweeper configuration
	Logger   *slog.Logger          // Optional: structured logger
	Metrics  statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// SweeperService runs the queue's reconciliation passes on a timer.
//
// This service manages:
// - Canceling worn-out pending tasks left over from interrupted claims.
// - Returning tasks held by workers missing from the registry to PENDING.
// - Publishing queue depth gauges.
type SweeperService struct {
	queue    core.QueueMaintenance
	registry core.WorkerRegistry
	config   config.SweeperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Queue == nil {
		return nil, errors.New("QueueMaintenance is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("sweeper interval must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
		logger.Debug("SweeperService initialized",
			"interval", opts.Config.Interval,
			"reset_unknown_workers", opts.Config.ResetUnknownWorkers,
			"cancel_worn_outs", opts.Config.CancelWornOuts,
		)
	}

	return &SweeperService{
		queue:    opts.Queue,
		registry: opts.Registry,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sweep runs one pass of every enabled step. Worn-out tasks are canceled
// before unknown workers are reset, so a freshly reset task gets one full
// interval to be claimed again.
func (s *SweeperService) Sweep(ctx context.Context) error {
	start := time.Now()
	steps := []sweepStep{
		{label: "cancel worn-out tasks", enabled: s.config.CancelWornOuts, fn: s.cancelWornOuts},
		{label: "reset unknown workers", enabled: s.config.ResetUnknownWorkers && s.registry != nil, fn: s.resetUnknownWorkers},
		{label: "queue depth", enabled: true, fn: s.queueDepth},
	}

	var (
		errs               []error
		allContextCanceled = true
		total              int64
	)
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		outcome := s.executeStep(ctx, step)
		total += outcome.count
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	var err error
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			err = context.Canceled
		} else {
			err = fmt.Errorf("sweep failed: %w", joined)
		}
	}
	s.emitSweepMetrics(total, time.Since(start), err)
	return err
}

type sweepFunc func(context.Context) (int64, error)

type sweepStep struct {
	label   string
	enabled bool
	fn      sweepFunc
}

type sweepStepOutcome struct {
	count        int64
	aggregateErr error
	canceled     bool
}

func (s *SweeperService) executeStep(ctx context.Context, step sweepStep) sweepStepOutcome {
	count, err := step.fn(ctx)
	outcome := sweepStepOutcome{count: count, canceled: isContextCancellation(err)}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", step.label, err)
	}
	return outcome
}

func (s *SweeperService) cancelWornOuts(ctx context.Context) (int64, error) {
	n, err := s.queue.CancelWornOuts(ctx)
	return int64(n), err
}

// resetUnknownWorkers resets tasks held by workers whose heartbeat expired.
// A registry failure skips the reset rather than treating every worker as gone.
func (s *SweeperService) resetUnknownWorkers(ctx context.Context) (int64, error) {
	live, err := s.registry.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list live workers: %w", err)
	}
	return s.queue.ResetTasksWithUnknownWorkerUUIDs(ctx, live)
}

func (s *SweeperService) queueDepth(ctx context.Context) (int64, error) {
	if _, err := s.queue.Stats(ctx); err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *SweeperService) emitSweepMetrics(total int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if total == 0 {
		result = metrics.ResultNoop
	}
	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("sweeper.run", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("sweeper.run_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("sweeper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *SweeperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
