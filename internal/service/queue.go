package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/eligibility"
	domainjob "github.com/target/mmk-ce-queue/internal/domain/job"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
)

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Store           core.TaskStore            // Required: queue table
	Archiver        core.TaskArchiver         // Required: queue-to-history transitions
	Activity        core.ActivityStore        // Optional: history listing
	Catalog         core.ComponentCatalog     // Optional: project/target name resolution
	PauseStore      core.PauseStateStore      // Optional: fleet-wide pause flag
	RunState        core.RunStateGate         // Optional: defaults to always started
	Node            core.NodeInformation      // Optional: node name written to history
	Executions      core.QueueMetrics         // Optional: success/error counters
	Metrics         statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	TimeProvider    core.TimeProvider         // Optional: defaults to UTC wall clock
	Config          config.QueueConfig        // Queue behaviour
	IDGenerator     func() string             // Optional: defaults to uuid v4
	Logger          *slog.Logger              // Optional: structured logger
	Notifier        domainjob.Notifier        // Optional: custom task-added notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// QueueService is the queue controller. It owns every queue row between
// submission and archival.
//
// This service manages:
// - Submission with optional uniqueness checks.
// - Peek: claiming at most one eligible task per call.
// - Removal, cancellation and administrative failure into history.
// - Pause/resume of intake and crash-recovery sweeps.
type QueueService struct {
	store      core.TaskStore
	archiver   core.TaskArchiver
	activity   core.ActivityStore
	catalog    core.ComponentCatalog
	pauseStore core.PauseStateStore
	runState   core.RunStateGate
	node       core.NodeInformation
	executions core.QueueMetrics
	metrics    statsd.Sink
	clock      core.TimeProvider
	newID      func() string
	picker     *eligibility.Picker
	wornOut    *domainjob.WornOutPolicy
	notifier   domainjob.Notifier
	logger     *slog.Logger

	pauseMu sync.RWMutex
	paused  bool
}

// NewQueueService constructs a new QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Store == nil {
		return nil, errors.New("TaskStore is required")
	}
	if opts.Archiver == nil {
		return nil, errors.New("TaskArchiver is required")
	}

	clock := opts.TimeProvider
	if clock == nil {
		clock = utcClock{}
	}

	picker, err := eligibility.NewPicker(eligibility.PickerOptions{
		Store:             opts.Store,
		ParallelPREnabled: opts.Config.ParallelPREnabled,
		MaxClaimAttempts:  opts.Config.MaxClaimAttempts,
		Now:               clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("create picker: %w", err)
	}

	wornOut, err := domainjob.NewWornOutPolicy(opts.Config.WornOutAfter, opts.Config.WornOutBatchSize)
	if err != nil {
		return nil, fmt.Errorf("create worn-out policy: %w", err)
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Store
		}
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create task notifier: %w", err)
		}
	}

	runState := opts.RunState
	if runState == nil {
		runState = NewProcessState()
	}
	executions := opts.Executions
	if executions == nil {
		executions = metrics.NewExecutionMetrics(opts.Metrics)
	}
	newID := opts.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "queue_service")
		logger.Debug("QueueService initialized",
			"parallel_pr_enabled", opts.Config.ParallelPREnabled,
			"max_claim_attempts", opts.Config.MaxClaimAttempts,
			"worn_out_after", wornOut.After(),
		)
	}

	return &QueueService{
		store:      opts.Store,
		archiver:   opts.Archiver,
		activity:   opts.Activity,
		catalog:    opts.Catalog,
		pauseStore: opts.PauseStore,
		runState:   runState,
		node:       opts.Node,
		executions: executions,
		metrics:    opts.Metrics,
		clock:      clock,
		newID:      newID,
		picker:     picker,
		wornOut:    wornOut,
		notifier:   notifier,
		logger:     logger,
	}, nil
}

// MustNewQueueService constructs a new QueueService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewQueueService(opts QueueServiceOptions) *QueueService {
	svc, err := NewQueueService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create QueueService: %v", err))
	}
	return svc
}

// Submit validates req and enqueues a PENDING task. With a uniqueness option
// and a matching queued task it returns (nil, nil) without inserting.
func (s *QueueService) Submit(
	ctx context.Context,
	req *model.SubmitRequest,
	opts ...model.SubmitOption,
) (*model.Task, error) {
	if req == nil {
		return nil, apperrors.InvalidArgument("submit request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	skip, err := s.alreadyQueued(ctx, req, model.ResolveSubmitOptions(opts...))
	if err != nil {
		return nil, err
	}
	if skip {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "submission skipped, matching task already queued",
				"job_type", req.JobType,
				"project_id", deref(req.ProjectID),
			)
		}
		return nil, nil
	}

	job := s.newJob(req)
	if err := s.store.Insert(ctx, job); err != nil {
		metrics.EmitTaskTransition(s.metrics, metrics.TaskMetric{
			JobType:    job.JobType,
			Kind:       job.Kind(),
			Transition: metrics.TransitionSubmitted,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, fmt.Errorf("submit task: %w", err)
	}

	metrics.EmitTaskTransition(s.metrics, metrics.TaskMetric{
		JobType:    job.JobType,
		Kind:       job.Kind(),
		Transition: metrics.TransitionSubmitted,
		Result:     metrics.ResultSuccess,
	})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "task submitted",
			"task_id", job.ID,
			"job_type", job.JobType,
			"kind", job.Kind(),
		)
	}
	return s.resolveTask(ctx, job), nil
}

// MassSubmit submits every request in order. Skipped submissions are left out
// of the result; the remaining tasks keep their input order.
func (s *QueueService) MassSubmit(
	ctx context.Context,
	reqs []*model.SubmitRequest,
	opts ...model.SubmitOption,
) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0, len(reqs))
	for i, req := range reqs {
		task, err := s.Submit(ctx, req, opts...)
		if err != nil {
			return tasks, fmt.Errorf("submit request %d: %w", i, err)
		}
		if task != nil {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *QueueService) alreadyQueued(ctx context.Context, req *model.SubmitRequest, opts model.SubmitOptions) (bool, error) {
	if opts.UniquePerProject && req.ProjectID != nil {
		pending := model.TaskStatusPending
		exists, err := s.store.HasQueued(ctx, core.QueueFilter{ProjectID: req.ProjectID, Status: &pending})
		if err != nil {
			return false, fmt.Errorf("check project queue: %w", err)
		}
		if exists {
			return true, nil
		}
	}
	if opts.UniquePerJobType {
		jobType := strings.TrimSpace(req.JobType)
		exists, err := s.store.HasQueued(ctx, core.QueueFilter{JobType: &jobType})
		if err != nil {
			return false, fmt.Errorf("check job type queue: %w", err)
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

func (s *QueueService) newJob(req *model.SubmitRequest) *model.QueuedJob {
	now := s.clock.Now()
	var chars map[string]string
	if len(req.Characteristics) > 0 {
		chars = make(map[string]string, len(req.Characteristics))
		for k, v := range req.Characteristics {
			chars[strings.TrimSpace(k)] = v
		}
	}
	return &model.QueuedJob{
		ID:              s.newID(),
		JobType:         strings.TrimSpace(req.JobType),
		ProjectID:       req.ProjectID,
		TargetID:        req.TargetID,
		SubmitterID:     req.SubmitterID,
		Status:          model.TaskStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Characteristics: chars,
	}
}

// GetTask returns the resolved view of a queued task.
func (s *QueueService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return s.resolveTask(ctx, job), nil
}

// Stats counts queued tasks per status and publishes queue depth gauges.
func (s *QueueService) Stats(ctx context.Context) (*model.QueueStats, error) {
	stats, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count queue: %w", err)
	}
	metrics.EmitQueueDepth(s.metrics, stats)
	return stats, nil
}

// History lists activity records newest first.
func (s *QueueService) History(ctx context.Context, opts model.ActivityListOptions) ([]*model.ActivityRecord, error) {
	if s.activity == nil {
		return nil, errors.New("activity store is not configured")
	}
	records, err := s.activity.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// HasIssueSyncPendingOrInProgress reports whether any issue-sync task is queued.
func (s *QueueService) HasIssueSyncPendingOrInProgress(ctx context.Context) (bool, error) {
	ok, err := s.store.HasIssueSyncPendingOrInProgress(ctx)
	if err != nil {
		return false, fmt.Errorf("check issue sync tasks: %w", err)
	}
	return ok, nil
}

// Subscribe returns a channel that receives a signal when a task is submitted
// anywhere in the fleet, and an unsubscribe function.
func (s *QueueService) Subscribe() (func(), <-chan struct{}) {
	return s.notifier.Subscribe()
}

// StopAllListeners stops the task-added listener and closes every subscriber
// channel. Subscriptions made afterwards are closed at once.
func (s *QueueService) StopAllListeners() {
	s.notifier.StopAll()
}

// resolveTask builds the task view and fills in names from the catalog.
// Catalog failures leave the names empty.
func (s *QueueService) resolveTask(ctx context.Context, job *model.QueuedJob) *model.Task {
	task := model.NewTask(job)
	if s.catalog == nil {
		return task
	}

	ids := make([]string, 0, 2)
	if job.ProjectID != nil {
		ids = append(ids, *job.ProjectID)
	}
	if job.TargetID != nil {
		ids = append(ids, *job.TargetID)
	}
	if len(ids) == 0 {
		return task
	}

	comps, err := s.catalog.Resolve(ctx, ids...)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "resolve component names failed", "task_id", job.ID, "error", err)
		}
		return task
	}
	if job.ProjectID != nil {
		if c, ok := comps[*job.ProjectID]; ok {
			task.ProjectKey = &c.Key
			task.ProjectName = &c.Name
		}
	}
	if job.TargetID != nil {
		if c, ok := comps[*job.TargetID]; ok {
			task.TargetKey = &c.Key
			task.TargetName = &c.Name
		}
	}
	return task
}

func (s *QueueService) nodeName() *string {
	if s.node == nil {
		return nil
	}
	name := s.node.NodeName()
	if name == "" {
		return nil
	}
	return &name
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
