package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/data/pgxutil"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// TaskAddedChannel is the LISTEN/NOTIFY channel signalled on every insert.
const TaskAddedChannel = "ce_queue_task_added"

const taskColumns = `
  id,
  job_type,
  entity_id,
  component_id,
  submitter_id,
  status,
  worker_id,
  created_at,
  updated_at,
  started_at
`

// TaskRepo provides database operations for the ce_queue table.
type TaskRepo struct {
	DB              *sql.DB
	characteristics *CharacteristicRepo
	timeProvider    TimeProvider
	logger          *slog.Logger
}

// NewTaskRepo creates a new TaskRepo instance with the given database connection and configuration.
func NewTaskRepo(db *sql.DB, cfg RepoConfig) *TaskRepo {
	return &TaskRepo{
		DB:              db,
		characteristics: NewCharacteristicRepo(db, cfg),
		timeProvider:    cfg.timeProvider(),
		logger:          cfg.logger("task_repo"),
	}
}

// Insert writes job and its characteristics in one transaction and notifies
// listeners on TaskAddedChannel. A zero status is stored as PENDING.
func (r *TaskRepo) Insert(ctx context.Context, job *model.QueuedJob) error {
	if job == nil {
		return ErrTaskRequired
	}
	if strings.TrimSpace(job.ID) == "" {
		return apperrors.InvalidField("id", ErrTaskIDRequired.Error())
	}
	status := job.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !status.Valid() {
		return apperrors.InvalidArgumentf("invalid task status %q", status)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now()
	}
	updatedAt := job.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO ce_queue (id, job_type, entity_id, component_id, submitter_id, status, worker_id, created_at, updated_at, started_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`,
				job.ID, job.JobType, job.ProjectID, job.TargetID, job.SubmitterID,
				status, job.WorkerID, createdAt.UTC(), updatedAt.UTC(), utcPtr(job.StartedAt),
			); err != nil {
				return fmt.Errorf("insert task: %w", apperrors.MapDBError(err))
			}

			if err := r.characteristics.InsertTx(ctx, tx, job.ID, job.Characteristics); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, TaskAddedChannel, job.ID); err != nil {
				return fmt.Errorf("send task notification: %w", err)
			}
			return nil
		},
	})
}

// Claim moves a PENDING row to IN_PROGRESS for params.WorkerID. The status
// guard in the WHERE clause makes concurrent claims of one row mutually exclusive.
// The partial unique index on in-progress component_id reports a claim of a
// busy component as lost too.
func (r *TaskRepo) Claim(ctx context.Context, params model.ClaimParams) (bool, error) {
	if params.ID == "" {
		return false, ErrTaskIDRequired
	}
	if params.WorkerID == "" {
		return false, apperrors.InvalidField("worker_id", ErrWorkerIDRequired.Error())
	}
	now := params.Now
	if now.IsZero() {
		now = r.timeProvider.Now()
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ce_queue
		SET status = 'IN_PROGRESS',
		    worker_id = $2,
		    started_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`, params.ID, params.WorkerID, now.UTC())
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsDuplicateKey(mapped) {
			// another job of the same component is already in progress
			return false, nil
		}
		return false, fmt.Errorf("claim task: %w", mapped)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return n == 1, nil
}

// Delete removes a queue row, optionally only when it has params.IfStatus.
func (r *TaskRepo) Delete(ctx context.Context, params model.DeleteParams) error {
	if params.ID == "" {
		return ErrTaskIDRequired
	}

	query := `DELETE FROM ce_queue WHERE id = $1`
	args := []any{params.ID}
	if params.IfStatus != nil {
		query += ` AND status = $2`
		args = append(args, *params.IfStatus)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("task %s not found", params.ID)
	}
	return nil
}

// ResetStaleInProgress returns IN_PROGRESS rows whose worker is unknown to
// PENDING. created_at and started_at are left untouched. Concurrent resets
// take turns on an advisory lock; each one applies its own known set once the
// previous holder commits.
func (r *TaskRepo) ResetStaleInProgress(ctx context.Context, knownWorkerIDs []string, now time.Time) (int64, error) {
	known := knownWorkerIDs
	if known == nil {
		known = []string{}
	}
	if now.IsZero() {
		now = r.timeProvider.Now()
	}

	var rowsAffected int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if err := pgxutil.AdvisoryXactLock(ctx, tx, resetStaleLock); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `
				UPDATE ce_queue
				SET status = 'PENDING',
				    worker_id = NULL,
				    updated_at = $1
				WHERE status = 'IN_PROGRESS'
				  AND (worker_id IS NULL OR NOT (worker_id = ANY($2::text[])))
			`, now.UTC(), known)
			if err != nil {
				return fmt.Errorf("reset stale in-progress tasks: %w", err)
			}
			rowsAffected = tag.RowsAffected()
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// ResetWorkerInProgress returns the IN_PROGRESS rows held by workerID to PENDING.
func (r *TaskRepo) ResetWorkerInProgress(ctx context.Context, workerID string, now time.Time) (int64, error) {
	if workerID == "" {
		return 0, apperrors.InvalidField("worker_id", ErrWorkerIDRequired.Error())
	}
	if now.IsZero() {
		now = r.timeProvider.Now()
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ce_queue
		SET status = 'PENDING',
		    worker_id = NULL,
		    updated_at = $2
		WHERE status = 'IN_PROGRESS' AND worker_id = $1
	`, workerID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("reset worker tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListPendingAndInProgress returns the picker snapshot in queue order with
// characteristics attached.
func (r *TaskRepo) ListPendingAndInProgress(ctx context.Context, filter model.ListFilter) ([]*model.QueuedJob, error) {
	query := `SELECT ` + taskColumns + ` FROM ce_queue`
	var args []any
	if filter.ProjectID != nil {
		query += ` WHERE entity_id = $1`
		args = append(args, *filter.ProjectID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	jobs, err := r.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue snapshot: %w", err)
	}
	return jobs, nil
}

// GetByID returns one queue row or NotFound.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.QueuedJob, error) {
	if id == "" {
		return nil, ErrTaskIDRequired
	}
	jobs, err := r.queryTasks(ctx, `SELECT `+taskColumns+` FROM ce_queue WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	if len(jobs) == 0 {
		return nil, apperrors.NotFoundf("task %s not found", id)
	}
	return jobs[0], nil
}

// ListByStatus returns every row in status, oldest first.
func (r *TaskRepo) ListByStatus(ctx context.Context, status model.TaskStatus) ([]*model.QueuedJob, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidArgumentf("invalid task status %q", status)
	}
	jobs, err := r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM ce_queue
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return jobs, nil
}

// ListWornOut returns at most limit PENDING rows that were started before and
// whose started_at is at or before cutoff.
func (r *TaskRepo) ListWornOut(ctx context.Context, cutoff time.Time, limit int) ([]*model.QueuedJob, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	jobs, err := r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM ce_queue
		WHERE status = 'PENDING'
		  AND started_at IS NOT NULL
		  AND started_at <= $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list worn-out tasks: %w", err)
	}
	return jobs, nil
}

// CountByStatus counts rows per status.
func (r *TaskRepo) CountByStatus(ctx context.Context) (*model.QueueStats, error) {
	var stats model.QueueStats
	if err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS')
		FROM ce_queue
	`).Scan(&stats.Pending, &stats.InProgress); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	return &stats, nil
}

// HasQueued reports whether any row matches filter.
func (r *TaskRepo) HasQueued(ctx context.Context, filter core.QueueFilter) (bool, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	switch {
	case filter.ProjectID != nil:
		add("entity_id = $%d", *filter.ProjectID)
	case filter.MatchNullProject:
		conds = append(conds, "entity_id IS NULL")
	}
	if filter.JobType != nil {
		add("job_type = $%d", *filter.JobType)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}

	query := `SELECT EXISTS(SELECT 1 FROM ce_queue`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += `)`

	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check queued tasks: %w", err)
	}
	return exists, nil
}

// HasIssueSyncPendingOrInProgress reports whether any issue-sync job is queued.
func (r *TaskRepo) HasIssueSyncPendingOrInProgress(ctx context.Context) (bool, error) {
	jobType := model.JobTypeIssueSync
	return r.HasQueued(ctx, core.QueueFilter{JobType: &jobType})
}

// WaitForNotification blocks until a task is inserted or ctx is done.
func (r *TaskRepo) WaitForNotification(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && r.logger != nil {
			r.logger.WarnContext(ctx, "close listen connection", "error", closeErr)
		}
	}()

	channel := pgx.Identifier{TaskAddedChannel}.Sanitize()
	if _, err = conn.ExecContext(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() {
		// ctx may already be done; UNLISTEN must still reach the server.
		if _, unlistenErr := conn.ExecContext(context.Background(), "UNLISTEN "+channel); unlistenErr != nil && r.logger != nil {
			r.logger.Warn("unlisten failed", "channel", TaskAddedChannel, "error", unlistenErr)
		}
	}()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		if _, waitErr := std.Conn().WaitForNotification(ctx); waitErr != nil {
			return fmt.Errorf("wait for notification: %w", waitErr)
		}
		return nil
	})
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*model.QueuedJob, error) {
	var jobs []*model.QueuedJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		jobs, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.QueuedJob])
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := r.attachCharacteristics(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *TaskRepo) attachCharacteristics(ctx context.Context, jobs []*model.QueuedJob) error {
	if len(jobs) == 0 {
		return nil
	}
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
		j.CreatedAt = j.CreatedAt.UTC()
		j.UpdatedAt = j.UpdatedAt.UTC()
		j.StartedAt = utcPtr(j.StartedAt)
	}
	chars, err := r.characteristics.ListByJobIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		j.Characteristics = chars[j.ID]
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
