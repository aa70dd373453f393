package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
	"git.home.luguber.info/inful/watertracker/internal/retry"
)

// RetryingStore retries Get and Set on retryable store errors.
type RetryingStore struct {
	inner   Store
	backend string
	policy  retry.Policy
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewRetryingStore wraps inner with policy. A nil clock uses the real clock.
func NewRetryingStore(inner Store, backend string, policy retry.Policy, clock clockwork.Clock) *RetryingStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RetryingStore{
		inner:   inner,
		backend: backend,
		policy:  policy,
		clock:   clock,
		logger:  slog.Default().With(logfields.Backend(backend)),
	}
}

func (r *RetryingStore) onRetry(op string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		r.logger.Warn("Retrying store operation",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			logfields.DelayMS(delay),
			logfields.Error(err))
	}
}

func (r *RetryingStore) Get(ctx context.Context) (counter.State, error) {
	var st counter.State
	err := retry.Do(ctx, r.policy, r.clock, func() error {
		var err error
		st, err = r.inner.Get(ctx)
		return err
	}, r.onRetry("get"))
	return st, err
}

func (r *RetryingStore) Set(ctx context.Context, st counter.State) error {
	return retry.Do(ctx, r.policy, r.clock, func() error {
		return r.inner.Set(ctx, st)
	}, r.onRetry("set"))
}

func (r *RetryingStore) Close() error { return r.inner.Close() }

// Unwrap returns the wrapped store.
func (r *RetryingStore) Unwrap() Store { return r.inner }
