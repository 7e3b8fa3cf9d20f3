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

// ComponentRepo reads the components catalog.
type ComponentRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewComponentRepo creates a new ComponentRepo.
func NewComponentRepo(db *sql.DB, cfg RepoConfig) *ComponentRepo {
	return &ComponentRepo{DB: db, logger: cfg.logger("component_repo")}
}

// GetByIDs returns the components found for ids, keyed by id. Unknown ids are absent.
func (r *ComponentRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Component, error) {
	out := make(map[string]*model.Component, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, entity_id, kee, name
			FROM components
			WHERE id = ANY($1::text[])
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		comps, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Component])
		if err != nil {
			return err
		}
		for _, c := range comps {
			out[c.ID] = c
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get components: %w", err)
	}
	return out, nil
}

// Upsert writes a catalog entry. Used by the admin CLI and tests to seed names.
func (r *ComponentRepo) Upsert(ctx context.Context, c *model.Component) error {
	if c == nil || c.ID == "" {
		return apperrors.InvalidField("id", "component id is required")
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO components (id, entity_id, kee, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET entity_id = EXCLUDED.entity_id,
		    kee = EXCLUDED.kee,
		    name = EXCLUDED.name
	`, c.ID, c.ProjectID, c.Key, c.Name); err != nil {
		return fmt.Errorf("upsert component: %w", apperrors.MapDBError(err))
	}
	return nil
}
