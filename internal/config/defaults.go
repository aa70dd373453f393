package config

import (
	"math"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/watertracker/internal/counter"
)

const (
	DefaultNamespace       = "WaterTrackerPrefs"
	DefaultDataDir         = "./data"
	DefaultHTTPAddr        = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultNATSBucket      = "watertracker"
	DefaultSurfaceSubject  = "watertracker.surface"
	DefaultRetryInitial    = 100 * time.Millisecond
	DefaultRetryMax        = 2 * time.Second
	DefaultRetryMaxRetries = 2
)

// goalUnset marks a goal that neither the file nor the environment set, so
// an explicit 0 still reaches validation.
const goalUnset = math.MinInt

func applyDefaults(cfg *Config) {
	if cfg.Goal == goalUnset {
		cfg.Goal = int(counter.DefaultGoal)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	applyStoreDefaults(&cfg.Store)
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Surfaces.NATS.Enabled && cfg.Surfaces.NATS.Subject == "" {
		cfg.Surfaces.NATS.Subject = DefaultSurfaceSubject
	}
	if cfg.Surfaces.NATS.Enabled && cfg.Surfaces.NATS.URL == "" {
		cfg.Surfaces.NATS.URL = cfg.Store.NATS.URL
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(DefaultDataDir, "history.db")
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Backend == "" {
		s.Backend = BackendJSON
	} else {
		s.Backend = NormalizeStoreBackend(string(s.Backend))
	}
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Path == "" {
		switch s.Backend {
		case BackendSQLite:
			s.Path = filepath.Join(DefaultDataDir, "watertracker.db")
		default:
			s.Path = DefaultDataDir
		}
	}
	if s.Backend == BackendRedis && s.Redis.Addr == "" {
		s.Redis.Addr = "localhost:6379"
	}
	if s.NATS.Bucket == "" {
		s.NATS.Bucket = DefaultNATSBucket
	}
	// An absent retry section gets the default policy; max_retries: 0 with
	// an explicit backoff disables retries.
	if s.Retry.Backoff == "" {
		s.Retry.Backoff = RetryBackoffExponential
		if s.Retry.MaxRetries == 0 {
			s.Retry.MaxRetries = DefaultRetryMaxRetries
		}
	}
	if s.Retry.Initial <= 0 {
		s.Retry.Initial = DefaultRetryInitial
	}
	if s.Retry.Max <= 0 {
		s.Retry.Max = DefaultRetryMax
	}
}
