package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists folded buckets to SQLite so history survives restarts.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	scope       TEXT    NOT NULL,
	start       INTEGER NOT NULL,
	requests    INTEGER NOT NULL,
	successes   INTEGER NOT NULL,
	failures    INTEGER NOT NULL,
	cost        REAL    NOT NULL,
	latency_ms  INTEGER NOT NULL,
	PRIMARY KEY (scope, start)
);
`

// OpenStore opens (or creates) the bucket store at path. The database uses
// WAL mode and a single writer connection, the standard arrangement for an
// embedded SQLite store.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening monitor store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing monitor store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveBucket upserts one folded bucket under scope ("hourly" or "daily").
func (s *Store) SaveBucket(ctx context.Context, scope string, b Bucket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (scope, start, requests, successes, failures, cost, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope, start) DO UPDATE SET
			requests = excluded.requests,
			successes = excluded.successes,
			failures = excluded.failures,
			cost = excluded.cost,
			latency_ms = excluded.latency_ms`,
		scope, b.Start.Unix(), b.Requests, b.Successes, b.Failures, b.Cost,
		b.LatencySum.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("saving %s bucket: %w", scope, err)
	}
	return nil
}

// LoadRecent returns the newest n buckets for scope, oldest first.
func (s *Store) LoadRecent(ctx context.Context, scope string, n int) ([]Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start, requests, successes, failures, cost, latency_ms
		FROM buckets WHERE scope = ?
		ORDER BY start DESC LIMIT ?`, scope, n)
	if err != nil {
		return nil, fmt.Errorf("loading %s buckets: %w", scope, err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		var start, latencyMS int64
		if err := rows.Scan(&start, &b.Requests, &b.Successes, &b.Failures, &b.Cost, &latencyMS); err != nil {
			return nil, fmt.Errorf("scanning %s bucket: %w", scope, err)
		}
		b.Start = time.Unix(start, 0).UTC()
		b.LatencySum = time.Duration(latencyMS) * time.Millisecond
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s buckets: %w", scope, err)
	}

	// Reverse to oldest-first order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune deletes buckets for scope older than the newest keep entries.
func (s *Store) Prune(ctx context.Context, scope string, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM buckets WHERE scope = ? AND start NOT IN (
			SELECT start FROM buckets WHERE scope = ? ORDER BY start DESC LIMIT ?
		)`, scope, scope, keep)
	if err != nil {
		return fmt.Errorf("pruning %s buckets: %w", scope, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
