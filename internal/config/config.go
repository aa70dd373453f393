// Package config loads the watertracker YAML configuration and applies
// defaults, .env files and WATERTRACKER_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WATERTRACKER_"

// Config represents the application configuration
type Config struct {
	Goal     int            `yaml:"goal" env:"GOAL"`
	Timezone string         `yaml:"timezone" env:"TIMEZONE"`
	Store    StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	Surfaces SurfacesConfig `yaml:"surfaces" envPrefix:"SURFACES_"`
	History  HistoryConfig  `yaml:"history" envPrefix:"HISTORY_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// StoreConfig selects and configures the counter store backend.
type StoreConfig struct {
	Backend   StoreBackend `yaml:"backend" env:"BACKEND"`
	Namespace string       `yaml:"namespace" env:"NAMESPACE"`
	// Path is the data directory for the json backend and the database file
	// for the sqlite backend.
	Path  string      `yaml:"path" env:"PATH"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	NATS  NATSConfig  `yaml:"nats" envPrefix:"NATS_"`
	// Retry applies to the network backends (redis, nats).
	Retry RetryConfig `yaml:"retry" envPrefix:"RETRY_"`
}

// RetryConfig controls backoff for transient store failures.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff" env:"BACKOFF"`
	Initial    time.Duration    `yaml:"initial" env:"INITIAL"`
	Max        time.Duration    `yaml:"max" env:"MAX"`
	MaxRetries int              `yaml:"max_retries" env:"MAX_RETRIES"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// NATSConfig configures the NATS JetStream key-value backend.
type NATSConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Bucket string `yaml:"bucket" env:"BUCKET"`
}

// HTTPConfig represents HTTP server configuration
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// SurfacesConfig configures where redraws go besides the in-process view cache.
type SurfacesConfig struct {
	Log  bool                  `yaml:"log" env:"LOG"`
	NATS SurfacesPublishConfig `yaml:"nats" envPrefix:"NATS_"`
}

// SurfacesPublishConfig publishes every redraw to NATS.
type SurfacesPublishConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	URL     string `yaml:"url" env:"URL"`
	Subject string `yaml:"subject" env:"SUBJECT"`
}

// HistoryConfig configures the mutation history log.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	Path          string `yaml:"path" env:"PATH"`
	RetentionDays int    `yaml:"retention_days" env:"RETENTION_DAYS"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// DailyGoal returns the configured goal as a counter.Goal.
func (c *Config) DailyGoal() counter.Goal {
	return counter.Goal(c.Goal)
}

// Location resolves the configured time zone. "Local" and "" mean the
// process time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Missing .env files are not an error.
	_ = loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, derrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, derrors.ConfigLoadFailed(configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding ${VAR} references, then applies
// environment overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Goal: goalUnset}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "failed to unmarshal config")
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Goal: goalUnset}
	applyDefaults(cfg)
	return cfg
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Store.Backend = BackendSQLite
	example.Store.Path = "./data/watertracker.db"
	example.Store.Redis.Addr = "localhost:6379"
	example.Store.NATS.URL = "nats://localhost:4222"
	example.History.Enabled = true
	example.History.RetentionDays = 90
	example.Metrics.Enabled = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
