package data

import (
	"context"
	"database/sql"

	"github.com/target/mmk-ce-queue/internal/migrate"
)

// RunMigrations applies the embedded queue schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}

// MigrationStatus lists embedded migrations with their applied state.
func MigrationStatus(ctx context.Context, db *sql.DB) ([]migrate.Migration, error) {
	return migrate.Status(ctx, db)
}
