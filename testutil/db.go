// Package testutil provides shared helpers for integration tests.
// Every helper skips the calling test when the backing service is not
// configured, so `go test ./...` passes on a machine with neither Postgres
// nor Redis.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
)

const (
	databaseEnv = "TEST_DATABASE_URL"
	redisEnv    = "TEST_REDIS_URL"
)

// NewPool opens a *pgxpool.Pool on TEST_DATABASE_URL and closes it when the
// test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), requireEnv(t, databaseEnv))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewTx begins a transaction on a fresh pool and rolls it back when the test
// finishes. Rows a test seeds through it are never visible to other tests.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := NewPool(t)

	tx, err := pool.Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	// Registered after the pool cleanup, so it runs first.
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// NewSQLDB opens a *sql.DB on TEST_DATABASE_URL using the pgx database/sql
// driver, for code that needs database/sql (goose).
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := openSQL(requireEnv(t, databaseEnv))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens a *sql.DB for dsn and panics on any error.
// Use this in TestMain functions where no *testing.T is available.
// Callers are responsible for closing the returned *sql.DB.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := openSQL(dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: " + err.Error())
	}
	return db
}

// RedisURL returns TEST_REDIS_URL, skipping the test if it is not set.
func RedisURL(t *testing.T) string {
	t.Helper()
	return requireEnv(t, redisEnv)
}

func openSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func requireEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set; skipping integration test", key)
	}
	return v
}
