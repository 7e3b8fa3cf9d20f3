package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/mmk-ce-queue/internal/data/database"
	"github.com/target/mmk-ce-queue/internal/data/pgxutil"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

var activityColumnList = []string{
	"id", "task_id", "job_type", "entity_id", "component_id", "status",
	"worker_id", "node_name", "submitter_id", "analysis_id",
	"error_message", "error_stacktrace", "error_type", "is_last",
	"created_at", "started_at", "executed_at", "execution_time_ms",
}

var activityColumns = strings.Join(activityColumnList, ", ")

// ActivityRepo provides database operations for the ce_activity history table.
type ActivityRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *sql.DB, cfg RepoConfig) *ActivityRepo {
	return &ActivityRepo{DB: db, logger: cfg.logger("activity_repo")}
}

// Insert writes record as the newest entry of its lineage.
func (r *ActivityRepo) Insert(ctx context.Context, record *model.ActivityRecord) error {
	if record == nil {
		return ErrRecordRequired
	}
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return insertActivityTx(ctx, tx, record)
		},
	})
}

// insertActivityTx flips is_last on the record's (project, target) lineage and
// inserts record with is_last set. A transaction-scoped advisory lock per
// lineage serializes concurrent writers so exactly one row stays is_last.
func insertActivityTx(ctx context.Context, tx pgx.Tx, record *model.ActivityRecord) error {
	if record == nil {
		return ErrRecordRequired
	}
	if record.ID == "" || record.TaskID == "" {
		return apperrors.InvalidArgument("activity id and task id are required")
	}
	if !record.Outcome.Valid() {
		return apperrors.InvalidArgumentf("invalid outcome %q", record.Outcome)
	}

	if err := pgxutil.AdvisoryXactLock(ctx, tx, lineageLock(record.ProjectID, record.TargetID)); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE ce_activity
		SET is_last = FALSE
		WHERE is_last
		  AND entity_id IS NOT DISTINCT FROM $1::text
		  AND component_id IS NOT DISTINCT FROM $2::text
	`, record.ProjectID, record.TargetID); err != nil {
		return fmt.Errorf("clear previous is_last: %w", err)
	}

	record.IsLast = true
	if _, err := tx.Exec(ctx, `
		INSERT INTO ce_activity (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		record.ID, record.TaskID, record.JobType, record.ProjectID, record.TargetID, record.Outcome,
		record.WorkerID, record.NodeName, record.SubmitterID, record.AnalysisID,
		record.ErrorMessage, record.ErrorStacktrace, record.ErrorType, record.IsLast,
		record.CreatedAt.UTC(), utcPtr(record.StartedAt), record.ExecutedAt.UTC(), record.ExecutionTimeMs,
	); err != nil {
		return fmt.Errorf("insert activity: %w", apperrors.MapDBError(err))
	}
	return nil
}

// GetByID returns one history record or NotFound.
func (r *ActivityRepo) GetByID(ctx context.Context, id string) (*model.ActivityRecord, error) {
	if id == "" {
		return nil, apperrors.InvalidField("id", "activity id is required")
	}

	var rec *model.ActivityRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+activityColumns+` FROM ce_activity WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		rec, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.ActivityRecord])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("activity %s not found", id)
		}
		return nil, fmt.Errorf("get activity by id: %w", err)
	}
	return rec, nil
}

// List returns history records newest first.
func (r *ActivityRepo) List(ctx context.Context, opts model.ActivityListOptions) ([]*model.ActivityRecord, error) {
	query, args := buildActivityListQuery(opts)

	var records []*model.ActivityRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		records, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.ActivityRecord])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return records, nil
}

func buildActivityListQuery(opts model.ActivityListOptions) (string, []any) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}

	queryOpts := []database.ListQueryOption{
		database.WithColumns(activityColumnList...),
		database.WithOrderBy("executed_at", "DESC"),
		database.WithOrderBy("id", "DESC"),
		database.WithLimit(limit),
	}
	if opts.Offset > 0 {
		queryOpts = append(queryOpts, database.WithOffset(opts.Offset))
	}
	if opts.ProjectID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("entity_id", database.Equal, *opts.ProjectID),
		))
	}
	if opts.TargetID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("component_id", database.Equal, *opts.TargetID),
		))
	}
	if opts.JobType != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("job_type", database.Equal, *opts.JobType),
		))
	}
	if opts.Outcome != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, string(*opts.Outcome)),
		))
	}
	if opts.OnlyLast {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("is_last", database.Equal, true),
		))
	}

	return database.BuildListQuery(database.NewListQueryOptions("ce_activity", queryOpts...))
}
