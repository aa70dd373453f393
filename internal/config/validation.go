package config

import (
	"fmt"
	"time"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// Validate checks a configuration after defaults were applied.
func Validate(cfg *Config) error {
	if err := cfg.DailyGoal().Validate(); err != nil {
		return derrors.ConfigInvalid("goal", err.Error())
	}
	if _, err := cfg.Location(); err != nil {
		return derrors.ConfigInvalid("timezone", err.Error())
	}
	if err := validateStore(&cfg.Store); err != nil {
		return err
	}
	if cfg.Surfaces.NATS.Enabled && cfg.Surfaces.NATS.URL == "" {
		return derrors.ConfigInvalid("surfaces.nats.url", "required when surfaces.nats.enabled is set")
	}
	if cfg.History.RetentionDays < 0 {
		return derrors.ConfigInvalid("history.retention_days", "must not be negative")
	}
	return nil
}

func validateStore(s *StoreConfig) error {
	if !s.Backend.Known() {
		return derrors.ConfigInvalid("store.backend", fmt.Sprintf("unsupported backend %q", s.Backend))
	}
	if !s.Retry.Backoff.Known() {
		return derrors.ConfigInvalid("store.retry.backoff", fmt.Sprintf("unsupported backoff mode %q", s.Retry.Backoff))
	}
	if s.Retry.MaxRetries < 0 {
		return derrors.ConfigInvalid("store.retry.max_retries", "must not be negative")
	}
	switch s.Backend {
	case BackendNATS:
		if s.NATS.URL == "" {
			return derrors.ConfigInvalid("store.nats.url", "required for the nats backend")
		}
	case BackendJSON, BackendSQLite:
		if s.Path == "" {
			return derrors.ConfigInvalid("store.path", "required for file-backed stores")
		}
	}
	return nil
}

// RetentionCutoff returns the oldest timestamp history should keep, or the
// zero time when retention is unlimited.
func (h HistoryConfig) RetentionCutoff(now time.Time) time.Time {
	if h.RetentionDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -h.RetentionDays)
}
