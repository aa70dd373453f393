package config

import "strings"

// StoreBackend enumerates the counter store implementations.
type StoreBackend string

const (
	BackendMemory StoreBackend = "memory"
	BackendJSON   StoreBackend = "json"
	BackendSQLite StoreBackend = "sqlite"
	BackendRedis  StoreBackend = "redis"
	BackendNATS   StoreBackend = "nats"
)

var storeBackends = map[string]StoreBackend{
	"memory": BackendMemory,
	"json":   BackendJSON,
	"file":   BackendJSON,
	"sqlite": BackendSQLite,
	"redis":  BackendRedis,
	"nats":   BackendNATS,
}

// NormalizeStoreBackend maps aliases and case variants to a backend.
// Unknown values are returned unchanged so validation can report them.
func NormalizeStoreBackend(raw string) StoreBackend {
	if b, ok := storeBackends[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return b
	}
	return StoreBackend(raw)
}

// Known reports whether b is a supported backend.
func (b StoreBackend) Known() bool {
	_, ok := storeBackends[string(b)]
	return ok
}

// RetryBackoffMode selects how retry delays grow.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Known reports whether m is a supported backoff mode.
func (m RetryBackoffMode) Known() bool {
	switch m {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		return true
	}
	return false
}
