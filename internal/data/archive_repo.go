package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/target/mmk-ce-queue/internal/data/pgxutil"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// ArchiveRepo moves queue rows into ce_activity.
type ArchiveRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewArchiveRepo creates a new ArchiveRepo.
func NewArchiveRepo(db *sql.DB, cfg RepoConfig) *ArchiveRepo {
	return &ArchiveRepo{DB: db, logger: cfg.logger("archive_repo")}
}

// Archive deletes the queue row and writes params.Record in one transaction.
// Worker id and start time of the deleted row are copied into the record.
// With RequireRow set, a missing row rolls everything back with NotFound;
// otherwise the record is written anyway and Removed is nil.
func (r *ArchiveRepo) Archive(ctx context.Context, params model.ArchiveParams) (*model.ArchiveResult, error) {
	if params.TaskID == "" {
		return nil, ErrTaskIDRequired
	}
	if params.Record == nil {
		return nil, ErrRecordRequired
	}

	result := &model.ArchiveResult{Record: params.Record}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			removed, err := deleteTaskReturning(ctx, tx, params)
			if err != nil {
				return err
			}
			switch {
			case removed == nil && params.HeldBy != nil:
				return apperrors.IllegalStatef("task %s is not held by worker %s", params.TaskID, *params.HeldBy)
			case removed == nil && params.RequireRow:
				return apperrors.NotFoundf("task %s not found", params.TaskID)
			}

			params.Record.ApplyExecution(removed)
			if err := insertActivityTx(ctx, tx, params.Record); err != nil {
				return err
			}
			result.Removed = removed
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func deleteTaskReturning(ctx context.Context, tx pgx.Tx, params model.ArchiveParams) (*model.QueuedJob, error) {
	chars, err := characteristicsTx(ctx, tx, params.TaskID)
	if err != nil {
		return nil, err
	}

	query := `DELETE FROM ce_queue WHERE id = $1`
	args := []any{params.TaskID}
	if params.IfStatus != nil {
		args = append(args, *params.IfStatus)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if params.HeldBy != nil {
		args = append(args, *params.HeldBy)
		query += fmt.Sprintf(` AND status = 'IN_PROGRESS' AND worker_id = $%d`, len(args))
	}
	query += ` RETURNING ` + taskColumns

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", apperrors.MapDBError(err))
	}
	deleted, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.QueuedJob])
	if err != nil {
		return nil, fmt.Errorf("collect deleted task: %w", err)
	}
	if len(deleted) == 0 {
		return nil, nil
	}

	job := deleted[0]
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	job.StartedAt = utcPtr(job.StartedAt)
	if len(chars) > 0 {
		job.Characteristics = chars
	}
	return job, nil
}

// characteristicsTx reads characteristics before the cascade removes them.
func characteristicsTx(ctx context.Context, tx pgx.Tx, taskID string) (map[string]string, error) {
	rows, err := tx.Query(ctx, `SELECT task_id, kv_key, kv_value FROM ce_task_characteristics WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, fmt.Errorf("read characteristics: %w", err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[characteristicRow])
	if err != nil {
		return nil, fmt.Errorf("collect characteristics: %w", err)
	}
	out := make(map[string]string, len(collected))
	for _, row := range collected {
		out[row.Key] = row.Value
	}
	return out, nil
}
