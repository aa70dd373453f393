package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// SQLiteStore implements Store on a prefs(namespace, key, value) table.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteStore opens (and creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath, namespace string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, derrors.StoreUnavailable("sqlite", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, derrors.StoreUnavailable("sqlite", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, namespace: namespace}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, derrors.StoreUnavailable("sqlite", err).WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS prefs (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context) (counter.State, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM prefs WHERE namespace = ?", s.namespace)
	if err != nil {
		return counter.State{}, derrors.StoreFailed("sqlite", "get", err)
	}
	defer rows.Close()

	fields := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return counter.State{}, derrors.StoreFailed("sqlite", "scan", err)
		}
		fields[k] = v
	}
	if err := rows.Err(); err != nil {
		return counter.State{}, derrors.StoreFailed("sqlite", "get", err)
	}
	return stateFromFields(fields), nil
}

func (s *SQLiteStore) Set(ctx context.Context, st counter.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return derrors.StoreFailed("sqlite", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range fieldsFromState(st) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prefs (namespace, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
			s.namespace, k, v,
		); err != nil {
			return derrors.StoreFailed("sqlite", "set", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return derrors.StoreFailed("sqlite", "commit", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
