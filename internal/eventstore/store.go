package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e Event) error

	// Range retrieves events with start <= timestamp <= end, oldest first.
	Range(ctx context.Context, start, end time.Time) ([]Event, error)

	// Recent retrieves the newest limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Prune deletes events older than before and reports how many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
