package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// Nanoseconds are kept so that expiry comparisons stay exact
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000000Z", s)
}

//go:embed schema.sql
var schema string

// Store is a Cache backed by a local SQLite database
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL mode for better performance, and busy timeout for concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	// Create tables
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns an unexpired cached body
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	var body []byte
	var fetchedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT body, fetched_at FROM responses WHERE key = ? AND expires_at > ?
	`, key, formatTimestamp(time.Now())).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached response: %w", err)
	}

	entry := &Entry{}
	if entry.Body, err = decompress(body); err != nil {
		return nil, err
	}
	if entry.FetchedAt, err = parseTimestamp(fetchedAt); err != nil {
		return nil, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return entry, nil
}

// Put stores a body, replacing any previous entry for key
func (s *Store) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	data, err := compress(body)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (key, body, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, data, formatTimestamp(now), formatTimestamp(now.Add(ttl)))
	if err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

// Prune removes entries that expired at or before now
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE expires_at <= ?", formatTimestamp(now))
	if err != nil {
		return 0, fmt.Errorf("pruning responses: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of stored entries, expired or not
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses").Scan(&n)
	return n, err
}
