// Package audit provides an optional PostgreSQL-backed, insert-only log
// of session creations for operational review. Entries hold the session
// id, its slug, and the creation timestamp — never the contact address.
// Inserts are best-effort side effects of creation.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store manages the session creation log in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the given URL and verifies the
// connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: database ping failed: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordCreation inserts one creation entry. created_at is the record's
// own RFC 3339 timestamp, not the insert time.
func (s *Store) RecordCreation(ctx context.Context, id, slug, createdAt string) error {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("audit: bad created_at %q: %w", createdAt, err)
	}

	const query = `
		INSERT INTO session_creations (session_id, slug, created_at)
		VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, id, slug, ts); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// CountRecent returns the number of creations within the given window,
// for operational dashboards and abuse review.
func (s *Store) CountRecent(ctx context.Context, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM session_creations
		WHERE created_at >= NOW() - make_interval(secs => $1)`

	var count int
	if err := s.db.QueryRowContext(ctx, query, window.Seconds()).Scan(&count); err != nil {
		return 0, fmt.Errorf("audit: count recent: %w", err)
	}
	return count, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
