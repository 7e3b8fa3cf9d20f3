package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/mmk-ce-queue/internal/data/pgxutil"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// CharacteristicRepo stores the key/value characteristics attached to queued tasks.
type CharacteristicRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewCharacteristicRepo creates a new CharacteristicRepo.
func NewCharacteristicRepo(db *sql.DB, cfg RepoConfig) *CharacteristicRepo {
	return &CharacteristicRepo{DB: db, logger: cfg.logger("characteristic_repo")}
}

// InsertTx writes characteristics for jobID inside tx. Keys are written in sorted order.
func (r *CharacteristicRepo) InsertTx(
	ctx context.Context,
	tx *sql.Tx,
	jobID string,
	characteristics map[string]string,
) error {
	if tx == nil {
		return ErrTxRequired
	}
	if len(characteristics) == 0 {
		return nil
	}

	keys := make([]string, 0, len(characteristics))
	for k := range characteristics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ce_task_characteristics (id, task_id, kv_key, kv_value)
			VALUES ($1, $2, $3, $4)
		`, uuid.NewString(), jobID, k, characteristics[k]); err != nil {
			return fmt.Errorf("insert characteristic %q: %w", k, apperrors.MapDBError(err))
		}
	}
	return nil
}

type characteristicRow struct {
	TaskID string `db:"task_id"`
	Key    string `db:"kv_key"`
	Value  string `db:"kv_value"`
}

// ListByJobIDs returns the characteristics of every id that has at least one.
func (r *CharacteristicRepo) ListByJobIDs(ctx context.Context, jobIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	if len(jobIDs) == 0 {
		return out, nil
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT task_id, kv_key, kv_value
			FROM ce_task_characteristics
			WHERE task_id = ANY($1::text[])
		`, jobIDs)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[characteristicRow])
		if err != nil {
			return err
		}
		for _, row := range collected {
			m, ok := out[row.TaskID]
			if !ok {
				m = make(map[string]string)
				out[row.TaskID] = m
			}
			m[row.Key] = row.Value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list characteristics: %w", err)
	}
	return out, nil
}
