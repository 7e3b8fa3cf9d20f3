package service

import (
	"context"
	"fmt"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
)

// Remove archives a task the caller processed. taskErr is only accepted with
// OutcomeFailed. The success/error counters are updated even when the queue
// row had already vanished; that case then fails with IllegalState.
func (s *QueueService) Remove(
	ctx context.Context,
	task *model.Task,
	outcome model.Outcome,
	result *model.TaskResult,
	taskErr *model.TaskError,
) error {
	return s.remove(ctx, task, nil, outcome, result, taskErr)
}

// RemoveHeld is Remove for a task that must still be IN_PROGRESS under
// workerID. Ownership is checked by the archiving delete itself, so a task
// that was reset and claimed by another worker in the meantime is left alone
// and IllegalState is returned without touching history or metrics.
func (s *QueueService) RemoveHeld(
	ctx context.Context,
	workerID string,
	task *model.Task,
	outcome model.Outcome,
	result *model.TaskResult,
	taskErr *model.TaskError,
) error {
	if workerID == "" {
		return apperrors.InvalidField("worker_id", "worker id is required")
	}
	return s.remove(ctx, task, &workerID, outcome, result, taskErr)
}

func (s *QueueService) remove(
	ctx context.Context,
	task *model.Task,
	heldBy *string,
	outcome model.Outcome,
	result *model.TaskResult,
	taskErr *model.TaskError,
) error {
	if task == nil || task.ID == "" {
		return apperrors.InvalidArgument("task is required")
	}
	if !outcome.Valid() {
		return apperrors.InvalidArgumentf("invalid outcome %q", outcome)
	}
	if taskErr != nil && outcome != model.OutcomeFailed {
		return apperrors.InvalidArgumentf("error can be provided only when status is FAILED, got %s", outcome)
	}

	now := s.clock.Now()
	record := model.NewActivityRecord(s.newID(), jobFromTask(task), outcome, now)
	record.NodeName = s.nodeName()
	if result != nil && result.AnalysisID != nil {
		id := *result.AnalysisID
		record.AnalysisID = &id
	}
	taskErr.ApplyTo(record)

	archived, err := s.archiver.Archive(ctx, model.ArchiveParams{TaskID: task.ID, HeldBy: heldBy, Record: record})
	if heldBy != nil && apperrors.IsIllegalState(err) {
		return err
	}
	s.recordExecution(outcome, record)
	s.emitArchived(task.JobType, task.Kind, outcome, record, err)
	if err != nil {
		return fmt.Errorf("remove task %s: %w", task.ID, err)
	}

	if archived.Removed == nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "removed task was no longer in the queue", "task_id", task.ID, "outcome", outcome)
		}
		return apperrors.IllegalStatef("task %s does not exist anymore", task.ID)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "task removed", "task_id", task.ID, "outcome", outcome)
	}
	return nil
}

// Cancel archives a PENDING task as CANCELED. In-progress tasks are refused
// with IllegalState.
func (s *QueueService) Cancel(ctx context.Context, taskID string) error {
	job, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	if job.Status == model.TaskStatusInProgress {
		return apperrors.IllegalStatef("task %s is in progress and can't be canceled", taskID)
	}
	if _, err := s.archive(ctx, job, model.OutcomeCanceled, nil); err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	return nil
}

// CancelAll cancels every PENDING task, and every IN_PROGRESS task when
// includeInProgress is set. It returns how many tasks were archived.
func (s *QueueService) CancelAll(ctx context.Context, includeInProgress bool) (int, error) {
	statuses := []model.TaskStatus{model.TaskStatusPending}
	if includeInProgress {
		statuses = append(statuses, model.TaskStatusInProgress)
	}

	canceled := 0
	for _, status := range statuses {
		jobs, err := s.store.ListByStatus(ctx, status)
		if err != nil {
			return canceled, fmt.Errorf("list %s tasks: %w", status, err)
		}
		for _, job := range jobs {
			ok, err := s.archiveIfPresent(ctx, job, model.OutcomeCanceled, nil)
			if err != nil {
				return canceled, fmt.Errorf("cancel task %s: %w", job.ID, err)
			}
			if ok {
				canceled++
			}
		}
	}

	if canceled > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "canceled queued tasks", "count", canceled, "include_in_progress", includeInProgress)
	}
	return canceled, nil
}

// Fail archives an IN_PROGRESS task as FAILED on behalf of an operator.
func (s *QueueService) Fail(ctx context.Context, taskID string, req model.FailRequest) (*model.ActivityRecord, error) {
	job, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("fail task %s: %w", taskID, err)
	}
	if job.Status != model.TaskStatusInProgress {
		return nil, apperrors.IllegalStatef("task %s is not in progress and can't be marked as failed", taskID)
	}

	taskErr := &model.TaskError{Type: req.ErrorType, Message: req.ErrorMessage}
	record, err := s.archive(ctx, job, model.OutcomeFailed, taskErr)
	if err != nil {
		return nil, fmt.Errorf("fail task %s: %w", taskID, err)
	}
	return record, nil
}

// ResetTasksWithUnknownWorkerUUIDs returns IN_PROGRESS tasks held by workers
// outside knownWorkerIDs to PENDING. An empty set resets every IN_PROGRESS task.
func (s *QueueService) ResetTasksWithUnknownWorkerUUIDs(ctx context.Context, knownWorkerIDs []string) (int64, error) {
	n, err := s.store.ResetStaleInProgress(ctx, knownWorkerIDs, s.clock.Now())
	metrics.EmitSweep(s.metrics, "reset_unknown_workers", n, err)
	if err != nil {
		return 0, fmt.Errorf("reset tasks of unknown workers: %w", err)
	}
	if n > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "reset tasks of unknown workers",
			"count", n,
			"known_workers", len(knownWorkerIDs),
		)
	}
	return n, nil
}

// CancelWornOuts archives pending tasks left over from an interrupted claim
// as CANCELED. Execution counters are not touched.
func (s *QueueService) CancelWornOuts(ctx context.Context) (int, error) {
	total := 0
	for {
		cutoff := s.wornOut.Cutoff(s.clock.Now())
		jobs, err := s.store.ListWornOut(ctx, cutoff, s.wornOut.BatchSize())
		if err != nil {
			metrics.EmitSweep(s.metrics, "cancel_worn_outs", int64(total), err)
			return total, fmt.Errorf("list worn-out tasks: %w", err)
		}

		batch := 0
		for _, job := range jobs {
			ok, err := s.archiveIfPresent(ctx, job, model.OutcomeCanceled, nil)
			if err != nil {
				metrics.EmitSweep(s.metrics, "cancel_worn_outs", int64(total), err)
				return total, fmt.Errorf("cancel worn-out task %s: %w", job.ID, err)
			}
			if ok {
				batch++
			}
		}
		total += batch

		if len(jobs) < s.wornOut.BatchSize() || batch == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	metrics.EmitSweep(s.metrics, "cancel_worn_outs", int64(total), nil)
	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "canceled worn-out tasks", "count", total, "worn_out_after", s.wornOut.After())
	}
	return total, nil
}

// archive moves job into history with the given outcome. The row must still
// be queued in the status the caller observed.
func (s *QueueService) archive(
	ctx context.Context,
	job *model.QueuedJob,
	outcome model.Outcome,
	taskErr *model.TaskError,
) (*model.ActivityRecord, error) {
	record := model.NewActivityRecord(s.newID(), job, outcome, s.clock.Now())
	record.NodeName = s.nodeName()
	taskErr.ApplyTo(record)

	status := job.Status
	_, err := s.archiver.Archive(ctx, model.ArchiveParams{
		TaskID:     job.ID,
		IfStatus:   &status,
		RequireRow: true,
		Record:     record,
	})
	s.emitArchived(job.JobType, job.Kind(), outcome, record, err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// archiveIfPresent is archive for sweeps: a row that was claimed or removed
// concurrently is skipped.
func (s *QueueService) archiveIfPresent(
	ctx context.Context,
	job *model.QueuedJob,
	outcome model.Outcome,
	taskErr *model.TaskError,
) (bool, error) {
	if _, err := s.archive(ctx, job, outcome, taskErr); err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *QueueService) recordExecution(outcome model.Outcome, record *model.ActivityRecord) {
	var elapsed time.Duration
	if record.ExecutionTimeMs != nil {
		elapsed = time.Duration(*record.ExecutionTimeMs) * time.Millisecond
	}
	if outcome == model.OutcomeSuccess {
		s.executions.AddSuccess(elapsed)
		return
	}
	s.executions.AddError(elapsed)
}

func (s *QueueService) emitArchived(jobType string, kind model.JobKind, outcome model.Outcome, record *model.ActivityRecord, err error) {
	m := metrics.TaskMetric{
		JobType:    jobType,
		Kind:       kind,
		Transition: transitionFor(outcome),
		Result:     metrics.ResultSuccess,
		Err:        err,
	}
	if err != nil {
		m.Result = metrics.ResultError
	} else if record.ExecutionTimeMs != nil {
		m.Duration = time.Duration(*record.ExecutionTimeMs) * time.Millisecond
	}
	metrics.EmitTaskTransition(s.metrics, m)
}

func transitionFor(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeSuccess:
		return metrics.TransitionSucceeded
	case model.OutcomeFailed:
		return metrics.TransitionFailed
	default:
		return metrics.TransitionCanceled
	}
}

// jobFromTask rebuilds the identity of a queue row from the task view a worker holds.
func jobFromTask(task *model.Task) *model.QueuedJob {
	return &model.QueuedJob{
		ID:              task.ID,
		JobType:         task.JobType,
		ProjectID:       task.ProjectID,
		TargetID:        task.TargetID,
		SubmitterID:     task.SubmitterID,
		Status:          model.TaskStatusInProgress,
		WorkerID:        task.WorkerID,
		CreatedAt:       task.CreatedAt,
		StartedAt:       task.StartedAt,
		Characteristics: task.Characteristics,
	}
}
