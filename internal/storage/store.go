// Package storage persists the counter record in a key-value namespace.
//
// Every backend stores the same two fields, waterCount and lastUpdateDate,
// under a namespace (WaterTrackerPrefs by default). Missing values read as
// zero and the empty string.
package storage

import (
	"context"
	"strconv"

	"git.home.luguber.info/inful/watertracker/internal/config"
	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/retry"
)

// Persisted field names.
const (
	KeyCount = "waterCount"
	KeyDate  = "lastUpdateDate"
)

// Store is the counter persistence surface. Set is atomic with respect to
// the store itself; concurrent writers resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context) (counter.State, error)
	Set(ctx context.Context, st counter.State) error
	Close() error
}

// Open builds the store selected by cfg.Backend. Network backends are
// wrapped in a RetryingStore unless retries are disabled.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendRedis, config.BackendNATS:
		st, err := openNetwork(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Retry.MaxRetries == 0 {
			return st, nil
		}
		return NewRetryingStore(st, string(cfg.Backend), retry.FromConfig(cfg.Retry), nil), nil
	}
	return openLocal(cfg)
}

func openNetwork(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	if cfg.Backend == config.BackendRedis {
		st, err := NewRedisStore(ctx, cfg.Redis, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := NewNATSStore(ctx, cfg.NATS, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func openLocal(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendJSON:
		return NewFSStore(cfg.Path, cfg.Namespace)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path, cfg.Namespace)
	default:
		return nil, derrors.ConfigInvalid("store.backend", "unsupported backend "+string(cfg.Backend))
	}
}

// stateFromFields decodes the two persisted fields. An absent or malformed
// count reads as zero.
func stateFromFields(fields map[string]string) counter.State {
	st := counter.State{LastUpdateDate: fields[KeyDate]}
	if raw, ok := fields[KeyCount]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			st.Count = n
		}
	}
	return st
}

func fieldsFromState(st counter.State) map[string]string {
	return map[string]string{
		KeyCount: strconv.Itoa(st.Count),
		KeyDate:  st.LastUpdateDate,
	}
}
