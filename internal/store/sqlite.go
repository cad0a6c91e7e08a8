// Package store provides SQLite-backed persistence for planning runs.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rogersf/strips-engine/internal/domain"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	problem_name    TEXT NOT NULL,
	direction       TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	heuristic       TEXT NOT NULL DEFAULT '',
	bound           REAL NOT NULL DEFAULT 0.0,
	status          TEXT NOT NULL DEFAULT 'running',
	cost            REAL NOT NULL DEFAULT 0.0,
	steps           INTEGER NOT NULL DEFAULT 0,
	expanded        INTEGER NOT NULL DEFAULT 0,
	pruned          INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT NOT NULL DEFAULT '',
	started_at_unix INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_unix);

CREATE TABLE IF NOT EXISTS plan_steps (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq_no  INTEGER NOT NULL,
	action  TEXT NOT NULL,
	cost    REAL NOT NULL DEFAULT 1.0,
	UNIQUE(run_id, seq_no)
);

CREATE TABLE IF NOT EXISTS run_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	seq_no       INTEGER NOT NULL,
	event_type   TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	UNIQUE(run_id, seq_no)
);
CREATE INDEX IF NOT EXISTS idx_run_events_run_seq ON run_events(run_id, seq_no);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrStoreInit, err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrSchemaMigration, err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}
