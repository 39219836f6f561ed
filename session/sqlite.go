package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/domlens/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_snapshots (
	session_id TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite persists baselines across service restarts. One row per session.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the baseline database at path. The caller
// must blank-import an SQLite driver (modernc.org/sqlite).
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithSchema(schema), dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// NewSQLite wraps an existing database handle (testing, shared handles).
// The schema must already be applied.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Schema returns the store's DDL for callers that manage the handle.
func Schema() string {
	return schema
}

// Get returns the session's baseline, ok=false when none exists.
func (s *SQLite) Get(ctx context.Context, sessionID string) (string, bool, error) {
	var snap string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM session_snapshots WHERE session_id = ?`, sessionID).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: get %s: %w", sessionID, err)
	}
	return snap, true, nil
}

// Set upserts the session's baseline.
func (s *SQLite) Set(ctx context.Context, sessionID, snapshot string) error {
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO session_snapshots (session_id, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		sessionID, snapshot, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("session: set %s: %w", sessionID, err)
	}
	return nil
}

// Remove deletes the session's baseline.
func (s *SQLite) Remove(ctx context.Context, sessionID string) error {
	_, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM session_snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("session: remove %s: %w", sessionID, err)
	}
	return nil
}

// Count implements Counter.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_snapshots`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("session: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
