// Package requestlog records pipeline runs in SQLite for operational
// visibility. Entries carry run metadata only — review text and summaries
// are never stored.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL,
	status       TEXT NOT NULL,
	review_count INTEGER NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_log_created ON request_log(created_at);
`

// Entry is one pipeline run.
type Entry struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Status      string `json:"status"` // "ok" | "failed"
	ReviewCount int    `json:"review_count"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Store writes and reads request log entries.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle. Call Init before first use.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Init applies the schema. Idempotent.
func (s *Store) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("requestlog: init: %w", err)
	}
	return nil
}

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_log (url, status, review_count, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.URL, e.Status, e.ReviewCount, e.DurationMs, e.Error, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("requestlog: record: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, status, review_count, duration_ms, error, created_at
		FROM request_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("requestlog: recent: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.URL, &e.Status, &e.ReviewCount,
			&e.DurationMs, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("requestlog: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
