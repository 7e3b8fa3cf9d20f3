// Package worker runs the worker pool that peeks tasks from the queue, hands
// them to a handler and archives the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	obserrors "github.com/target/mmk-ce-queue/internal/observability/errors"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
	"github.com/target/mmk-ce-queue/internal/service"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc executes a claimed task. A returned *model.TaskError is recorded
// as is; any other error is classified and recorded as its message.
type HandlerFunc func(ctx context.Context, task *model.Task) (*model.TaskResult, error)

// Queue is the part of the queue controller the pool drives.
type Queue interface {
	Peek(ctx context.Context, req service.PeekRequest) (*model.Task, error)
	Remove(
		ctx context.Context,
		task *model.Task,
		outcome model.Outcome,
		result *model.TaskResult,
		taskErr *model.TaskError,
	) error
	Subscribe() (func(), <-chan struct{})
	SyncPauseState(ctx context.Context) error
	IsPaused() bool
}

// RunState is the process gate shared with the queue controller.
type RunState interface {
	core.RunStateGate
	MarkStopping()
}

// RunnerOptions configures the worker pool.
type RunnerOptions struct {
	Queue    Queue                  // Required: queue controller
	Handlers map[string]HandlerFunc // Required unless Fallback is set: handlers keyed by job type
	Fallback HandlerFunc            // Optional: handles job types without a dedicated handler
	Registry core.WorkerRegistry    // Optional: heartbeats read by the sweeper
	State    RunState               // Optional: defaults to a fresh ProcessState
	Config   config.WorkerConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Runner runs Config.Count workers until its context ends.
type Runner struct {
	queue    Queue
	handlers map[string]HandlerFunc
	fallback HandlerFunc
	registry core.WorkerRegistry
	state    RunState
	cfg      config.WorkerConfig
	ids      []string
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRunner constructs the worker pool and assigns worker ids.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("queue is required")
	}
	if len(opts.Handlers) == 0 && opts.Fallback == nil {
		return nil, errors.New("at least one task handler is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	state := opts.State
	if state == nil {
		state = service.NewProcessState()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ids := make([]string, cfg.Count)
	for i := range ids {
		ids[i] = workerID(cfg.IDPrefix)
	}

	return &Runner{
		queue:    opts.Queue,
		handlers: opts.Handlers,
		fallback: opts.Fallback,
		registry: opts.Registry,
		state:    state,
		cfg:      cfg,
		ids:      ids,
		logger:   logger.With("component", "worker_runner"),
		metrics:  opts.Metrics,
	}, nil
}

func workerID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// WorkerIDs returns the ids this pool claims tasks under.
func (r *Runner) WorkerIDs() []string {
	return append([]string(nil), r.ids...)
}

// Run starts the workers and blocks until ctx is cancelled. On cancellation
// the run state moves to STOPPING, idle workers exit and in-flight tasks get
// Config.StopTimeout to finish before their context is cancelled too.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting worker runner",
		"workers", len(r.ids),
		"poll_interval", r.cfg.PollInterval,
		"exclude_issue_sync", r.cfg.ExcludeIssueSync,
	)

	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	stopWatch := r.watchStop(ctx, cancelWork)
	defer stopWatch()

	r.refresh(ctx)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.heartbeatLoop(gctx) })
	for _, id := range r.ids {
		group.Go(func() error { return r.workerLoop(gctx, workCtx, id) })
	}
	err := group.Wait()

	r.unregister(ctx)
	r.logger.InfoContext(ctx, "worker runner stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchStop flips the run state when ctx ends and cancels in-flight work once
// the stop timeout elapses.
func (r *Runner) watchStop(ctx context.Context, cancelWork context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		r.state.MarkStopping()
		r.logger.Info("worker runner stopping, waiting for in-flight tasks", "timeout", r.cfg.StopTimeout)

		timer := time.NewTimer(r.cfg.StopTimeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			r.logger.Warn("stop timeout elapsed, aborting in-flight tasks")
			cancelWork()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// workerLoop peeks until ctx ends. Tasks run under workCtx so that a stop
// request does not interrupt them.
func (r *Runner) workerLoop(ctx, workCtx context.Context, id string) error {
	unsub, notify := r.queue.Subscribe()
	defer unsub()

	log := r.logger.With("worker_id", id)
	for ctx.Err() == nil {
		delay := r.step(ctx, workCtx, id, log)
		if delay == 0 {
			continue
		}
		if !r.wait(ctx, &notify, delay) {
			return nil
		}
	}
	return nil
}

// step runs one peek and returns how long to wait before the next one.
func (r *Runner) step(ctx, workCtx context.Context, id string, log *slog.Logger) time.Duration {
	if r.state.RunState() != model.RunStateStarted || r.queue.IsPaused() {
		return r.cfg.DisabledInterval
	}

	task, err := r.queue.Peek(workCtx, service.PeekRequest{
		WorkerID:         id,
		ExcludeIssueSync: r.cfg.ExcludeIssueSync,
	})
	if err != nil {
		if ctx.Err() == nil {
			log.ErrorContext(ctx, "peek failed", "error", err)
		}
		return r.cfg.PollInterval
	}
	if task == nil {
		return r.cfg.PollInterval
	}

	r.process(workCtx, task, log)
	return 0
}

// wait blocks for delay, a task-added wake-up or the end of ctx. It reports
// false when ctx ended. A closed notify channel is dropped.
func (r *Runner) wait(ctx context.Context, notify *<-chan struct{}, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case _, ok := <-*notify:
		if !ok {
			*notify = nil
		}
		return true
	}
}

func (r *Runner) process(ctx context.Context, task *model.Task, log *slog.Logger) {
	log.InfoContext(ctx, "processing task", "task_id", task.ID, "job_type", task.JobType, "kind", task.Kind)
	start := time.Now()

	result, err := r.execute(ctx, task)
	outcome := model.OutcomeSuccess
	var taskErr *model.TaskError
	if err != nil {
		outcome = model.OutcomeFailed
		taskErr = toTaskError(err)
		log.WarnContext(ctx, "task failed", "task_id", task.ID, "error", err)
	}

	removeErr := r.queue.Remove(ctx, task, outcome, result, taskErr)
	if removeErr != nil {
		log.ErrorContext(ctx, "failed to archive task", "task_id", task.ID, "outcome", outcome, "error", removeErr)
	}
	r.emitTaskMetric(task, outcome, time.Since(start), removeErr)
}

// execute runs the task handler. Panics become failures carrying the stack.
func (r *Runner) execute(ctx context.Context, task *model.Task) (result *model.TaskResult, err error) {
	h, ok := r.handlers[task.JobType]
	if !ok {
		h = r.fallback
	}
	if h == nil {
		return nil, &model.TaskError{
			Type:    "no_handler",
			Message: fmt.Sprintf("no handler for job type %s", task.JobType),
		}
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &model.TaskError{
				Type:       "panic",
				Message:    fmt.Sprint(p),
				Stacktrace: string(debug.Stack()),
			}
		}
	}()
	return h(ctx, task)
}

func toTaskError(err error) *model.TaskError {
	var te *model.TaskError
	if errors.As(err, &te) {
		return te
	}
	return &model.TaskError{Type: obserrors.Classify(err), Message: err.Error()}
}

func (r *Runner) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh heartbeats every worker id and re-reads the shared pause flag.
func (r *Runner) refresh(ctx context.Context) {
	if r.registry != nil {
		for _, id := range r.ids {
			if err := r.registry.Heartbeat(ctx, id, r.cfg.HeartbeatTTL); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "heartbeat failed", "worker_id", id, "error", err)
			}
		}
	}
	if err := r.queue.SyncPauseState(ctx); err != nil && ctx.Err() == nil {
		r.logger.WarnContext(ctx, "pause state sync failed", "error", err)
	}
}

func (r *Runner) unregister(ctx context.Context) {
	if r.registry == nil {
		return
	}
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, id := range r.ids {
		if err := r.registry.Unregister(uctx, id); err != nil {
			r.logger.WarnContext(uctx, "unregister worker failed", "worker_id", id, "error", err)
		}
	}
}

func (r *Runner) emitTaskMetric(task *model.Task, outcome model.Outcome, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	tags := map[string]string{
		"job_type": task.JobType,
		"outcome":  string(outcome),
		"result":   metrics.ResultSuccess,
	}
	if err != nil {
		tags["result"] = metrics.ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	r.metrics.Count("worker.task", 1, tags)
	r.metrics.Timing("worker.task_duration", elapsed, metrics.CloneTags(tags))
}
