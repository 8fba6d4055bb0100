package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/sherifkozman/red-council/internal/types"
)

// SQLiteStore implements Store on a single SQLite table. It is used when
// snapshots should live alongside the rest of the Red Council database
// (history, templates) rather than as loose files.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteConfig holds connection options for the snapshot store.
type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// DefaultSQLiteConfig returns sensible defaults for the given database path.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:            path,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
	}
}

// OpenSQLiteStore opens (or creates) the snapshot store at cfg.Path with WAL
// mode and a busy timeout for better concurrency.
func OpenSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to open snapshot database", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to ping snapshot database", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS kv_slots (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to create kv_slots table", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying connection so components that share the database
// file (template registry, history) can reuse it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// GetItem returns the value for key, or nil if no row exists.
func (s *SQLiteStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, types.NewError(types.STORAGE_KEY_INVALID, "key cannot be empty")
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_slots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.STORAGE_READ_FAILED, fmt.Sprintf("failed to read %q", key), err)
	}
	return value, nil
}

// SetItem upserts value under key.
func (s *SQLiteStore) SetItem(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.NewError(types.STORAGE_KEY_INVALID, "key cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to write %q", key), err)
	}
	return nil
}

// RemoveItem deletes the row for key. Missing keys are ignored.
func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return types.NewError(types.STORAGE_KEY_INVALID, "key cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_slots WHERE key = ?`, key); err != nil {
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to remove %q", key), err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
