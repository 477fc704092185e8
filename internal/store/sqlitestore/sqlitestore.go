// Package sqlitestore provides a SQLite-backed store.Backend. One database
// file holds any number of namespaces.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gravitas-games/cachegrid/internal/store/sqlitestore/migrations"
	_ "modernc.org/sqlite"
)

// DB is an open SQLite key-value database.
type DB struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path and applies the embedded
// migrations.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// Writes are serialised by SQLite anyway; one connection avoids
	// SQLITE_BUSY between pooled connections.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Backend returns a store.Backend scoped to namespace.
func (db *DB) Backend(namespace string) *Backend {
	return &Backend{db: db.sqlDB, namespace: namespace}
}

// Backend is one namespace of a DB.
type Backend struct {
	db        *sql.DB
	namespace string
}

func (b *Backend) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM kv_items WHERE namespace = ? AND key = ?`,
		b.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) SetItem(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx, `
INSERT INTO kv_items (namespace, key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at`,
		b.namespace, key, value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM kv_items WHERE namespace = ? AND key = ?`,
		b.namespace, key,
	); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM kv_items WHERE namespace = ?`,
		b.namespace,
	); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", b.namespace, err)
	}
	return nil
}

// Count returns the number of keys in the namespace.
func (b *Backend) Count(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv_items WHERE namespace = ?`,
		b.namespace,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count namespace %s: %w", b.namespace, err)
	}
	return n, nil
}
