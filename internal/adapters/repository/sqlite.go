package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists values in a SQLite table, one row per key with the
// value kept as JSON text.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLiteStore opens (or creates) the database at path and applies the
// schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the stored values for keys.
func (s *SQLiteStore) Get(ctx context.Context, keys []string) (map[string]any, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	out := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	return scanValues(rows, out)
}

// All returns every stored value.
func (s *SQLiteStore) All(ctx context.Context) (map[string]any, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv")
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	return scanValues(rows, make(map[string]any))
}

// Set upserts values in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, values map[string]any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixMilli()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for k, raw := range encoded {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				k, string(raw), now,
			); err != nil {
				return fmt.Errorf("upsert %q: %w", k, err)
			}
		}
		return nil
	})
}

// Delete removes keys in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, keys []string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		return nil
	})
}

// Count returns the number of stored keys, or 0 if the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	if s.closed.Load() {
		return 0
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanValues(rows *sql.Rows, out map[string]any) (map[string]any, error) {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k, raw string
		if err := rows.Scan(&k, &raw); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		v, err := decodeValue(k, []byte(raw))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return out, nil
}
