// Package localstore is hirepanel's equivalent of browser localStorage: a
// flat map of string keys to opaque string values, persisted in a SQLite
// file so every hirepanel process on the machine sees the same session.
package localstore

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/db"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
)

// Well-known keys. Values are owned by the API / auth flow; the store
// never interprets them.
const (
	KeyToken            = "token"
	KeyUser             = "user"
	KeySidebarCollapsed = "sidebar_collapsed"
	KeyDefaultView      = "default_view"
)

// ErrNotFound is returned by Get when the key is absent
var ErrNotFound = errors.New("key not found")

// Store is a key/value store on a *sql.DB migrated by package db
type Store struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger
}

// Open opens (and migrates) the store at path
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	conn, err := db.OpenWithMigrations(path, log)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open local storage at %s", path)
	}
	return &Store{db: conn, path: path, log: logger.OrNop(log)}, nil
}

// New wraps an already migrated database (tests use sqlmock here)
func New(conn *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: conn, log: logger.OrNop(log)}
}

// Path is the backing file, empty for stores created with New
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapErr(err, "failed to read %q", key)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return wrapErr(err, "failed to write %q", key)
	}
	s.log.Debugw("local storage write", logger.FieldKey, key)
	return nil
}

// Remove deletes key; removing an absent key is not an error
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM local_storage WHERE key = ?", key); err != nil {
		return wrapErr(err, "failed to remove %q", key)
	}
	s.log.Debugw("local storage remove", logger.FieldKey, key)
	return nil
}

// Keys lists all stored keys in lexical order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM local_storage ORDER BY key")
	if err != nil {
		return nil, wrapErr(err, "failed to list keys")
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "failed to scan key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// wrapErr adds context and marks use-after-close so callers can tell
// shutdown from a broken file
func wrapErr(err error, format string, args ...interface{}) error {
	err = errors.Wrapf(err, format, args...)
	if db.IsDatabaseClosed(err) {
		return errors.Mark(err, db.ErrDatabaseClosed)
	}
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
