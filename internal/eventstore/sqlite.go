package eventstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based event store.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, derrors.HistoryFailed("open", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, derrors.HistoryFailed("open", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, derrors.HistoryFailed("initialize schema", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL,
		day TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, kind, outcome, count, day, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, string(e.Kind), e.Outcome, e.Count, e.Day, e.Timestamp.UnixNano(),
	)
	if err != nil {
		return derrors.HistoryFailed("append", err)
	}
	return nil
}

// Range retrieves events within a time range.
func (s *SQLiteStore) Range(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, outcome, count, day, timestamp FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY seq",
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, derrors.HistoryFailed("query", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Recent retrieves the newest limit events.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, outcome, count, day, timestamp FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, derrors.HistoryFailed("query", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Prune deletes events older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp < ?", before.UnixNano())
	if err != nil {
		return 0, derrors.HistoryFailed("prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, derrors.HistoryFailed("prune", err)
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			e    Event
			kind string
			ts   int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Outcome, &e.Count, &e.Day, &ts); err != nil {
			return nil, derrors.HistoryFailed("scan", err)
		}
		e.Kind = Kind(kind)
		e.Timestamp = time.Unix(0, ts)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, derrors.HistoryFailed("iterate", err)
	}

	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
