// Package testutil provides database setup for postgres adapter tests.
//
// Tests are skipped unless TEST_DATABASE_URL points at a disposable
// database: the schema is applied and all tables are truncated on open.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherhall/events-api/internal/adapters/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id             UUID PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT,
	starts_at      TIMESTAMPTZ NOT NULL,
	author_id      UUID NOT NULL,
	max_attendees  INT,
	attendee_count INT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	event_id   UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	status     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (event_id, user_id)
);
`

// OpenMigratedPool connects to TEST_DATABASE_URL, applies the schema, and
// truncates every table. The pool is closed via t.Cleanup.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres adapter tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE reservations, events, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
