package service

import (
	"context"
	"fmt"

	"github.com/target/mmk-ce-queue/internal/domain/eligibility"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
)

// PeekRequest identifies the worker asking for a task.
type PeekRequest struct {
	WorkerID string
	// ExcludeIssueSync keeps issue-sync tasks away from this worker.
	ExcludeIssueSync bool
}

// Peek claims at most one eligible task for the worker. It returns (nil, nil)
// when the process is stopping, intake is paused or nothing is eligible.
// The pause flag is re-read from the shared store on every call, so a pause
// issued on any node stops intake here too. Tasks the worker still holds
// from an earlier claim are returned to PENDING first.
func (s *QueueService) Peek(ctx context.Context, req PeekRequest) (*model.Task, error) {
	if req.WorkerID == "" {
		return nil, apperrors.InvalidField("worker_id", "worker id is required")
	}
	if s.runState.RunState() != model.RunStateStarted {
		return nil, nil
	}
	if err := s.SyncPauseState(ctx); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "pause state sync failed, using last known flag", "error", err)
	}
	if s.IsPaused() {
		return nil, nil
	}

	reset, err := s.store.ResetWorkerInProgress(ctx, req.WorkerID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("reset tasks of worker %s: %w", req.WorkerID, err)
	}
	if reset > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "worker still held in-progress tasks, returned them to the queue",
			"worker_id", req.WorkerID,
			"count", reset,
		)
	}

	picked, err := s.picker.Pick(ctx, eligibility.PickRequest{
		WorkerID:         req.WorkerID,
		ExcludeIssueSync: req.ExcludeIssueSync,
	})
	if err != nil {
		return nil, fmt.Errorf("pick task: %w", err)
	}
	if picked == nil {
		return nil, nil
	}

	job := picked.Job
	if picked.ConcurrentWithProject {
		metrics.EmitConcurrentWithProject(s.metrics, job.JobType)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "job will run concurrently with other jobs for the same project",
				"task_id", job.ID,
				"project_id", deref(job.ProjectID),
				"target_id", deref(job.TargetID),
			)
		}
	}

	metrics.EmitTaskTransition(s.metrics, metrics.TaskMetric{
		JobType:    job.JobType,
		Kind:       job.Kind(),
		Transition: metrics.TransitionClaimed,
		Result:     metrics.ResultSuccess,
		Duration:   job.StartedAt.Sub(job.CreatedAt),
	})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "task claimed",
			"task_id", job.ID,
			"worker_id", req.WorkerID,
			"attempts", picked.Attempts,
		)
	}
	return s.resolveTask(ctx, job), nil
}
