// Package retry applies backoff to operations that fail with retryable errors.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/watertracker/internal/config"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns the default policy (exponential, 100ms initial, 2s cap, 2 retries).
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffExponential,
		Initial:    config.DefaultRetryInitial,
		Max:        config.DefaultRetryMax,
		MaxRetries: config.DefaultRetryMaxRetries,
	}
}

// FromConfig builds a policy from store retry settings; zero/invalid values fall back to defaults.
func FromConfig(rc config.RetryConfig) Policy {
	p := DefaultPolicy()
	if rc.MaxRetries >= 0 {
		p.MaxRetries = rc.MaxRetries
	}
	if rc.Initial > 0 {
		p.Initial = rc.Initial
	}
	if rc.Max > 0 {
		p.Max = rc.Max
	}
	if rc.Backoff.Known() {
		p.Mode = rc.Backoff
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The last error is returned. onRetry, when set, is
// called before each wait.
func Do(ctx context.Context, p Policy, clock clockwork.Clock, fn func() error, onRetry func(attempt int, delay time.Duration, err error)) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !derrors.IsRetryable(err) {
			return err
		}
		delay := p.Delay(attempt + 1)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		select {
		case <-ctx.Done():
			return err
		case <-clock.After(delay):
		}
	}
}
