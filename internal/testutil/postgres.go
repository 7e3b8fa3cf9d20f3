package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/target/mmk-ce-queue/internal/migrate"
)

// TestDBConfig locates the integration Postgres instance.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* and falls back to the docker-compose
// test profile, which publishes Postgres on 55432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "cequeue"),
		Password: envOr("TEST_DB_PASSWORD", "cequeue"),
		DBName:   envOr("TEST_DB_NAME", "cequeue"),
	}
}

// DSN renders the connection URL. A non-empty schema is put first on the search_path.
func (c TestDBConfig) DSN(schema string) string {
	q := url.Values{}
	q.Set("sslmode", envOr("DB_SSL_MODE", "disable"))
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// queueTables lists the tables cleared between tests.
var queueTables = []string{"ce_task_characteristics", "ce_queue", "ce_activity", "components"}

func requireDB() bool { return envTrue("TEST_REQUIRE_DB", "TEST_REQUIRE_INFRA") }

// RunMigrations applies the embedded production migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}

func openPinged(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SkipIfNoTestDB skips t when the integration database cannot be reached.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := openPinged(ctx, DefaultTestDBConfig().DSN(""))
	if err != nil {
		unavailable(t, requireDB(), "test database not available: %v", err)
		return
	}
	closeQuietly(t, "probe db", db)
}

// SetupTestDB connects to the shared test database, migrates it and empties
// the queue tables. The handle is closed when the test ends.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := openPinged(ctx, DefaultTestDBConfig().DSN(""))
	if err != nil {
		t.Fatalf("connect test database (is docker-compose up?): %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		closeQuietly(t, "test db", db)
		t.Fatalf("migrate test database: %v", err)
	}
	truncateQueueTables(t, db)
	t.Cleanup(func() {
		truncateQueueTables(t, db)
		closeQuietly(t, "test db", db)
	})
	return db
}

func truncateQueueTables(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stmt := "TRUNCATE " + strings.Join(queueTables, ", ") + " CASCADE"
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		t.Fatalf("truncate queue tables: %v", err)
	}
}

// SetupSchemaDB migrates a throwaway schema so tests can run in parallel
// against one database. The schema is dropped on cleanup.
func SetupSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	cfg := DefaultTestDBConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admin, err := openPinged(ctx, cfg.DSN(""))
	if err != nil {
		t.Fatalf("connect admin database: %v", err)
	}
	schema := newSchemaName()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeQuietly(t, "admin db", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db, err := openPinged(ctx, cfg.DSN(schema))
	if err != nil {
		closeQuietly(t, "admin db", admin)
		t.Fatalf("connect schema %s: %v", schema, err)
	}
	db.SetMaxOpenConns(10)

	t.Logf("using schema %s", schema)
	t.Cleanup(func() {
		closeQuietly(t, "schema db", db)
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, err := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		closeQuietly(t, "admin db", admin)
	})

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return db
}

func newSchemaName() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "ceq_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "ceq_" + hex.EncodeToString(b)
}

// WithAutoDB runs fn against a per-test schema when TEST_DB_EPHEMERAL is set
// and against the shared test database otherwise.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	if envTrue("TEST_DB_EPHEMERAL") {
		fn(SetupSchemaDB(t))
		return
	}
	fn(SetupTestDB(t))
}
