package storage

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/watertracker/internal/counter"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	state counter.State
	calls MemoryCalls
	// FailWith, when set, is returned by every Get and Set.
	FailWith error
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Get int
	Set int
}

// NewMemoryStore creates a store holding the zero state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a store seeded with st.
func NewMemoryStoreWith(st counter.State) *MemoryStore {
	return &MemoryStore{state: st}
}

func (m *MemoryStore) Get(_ context.Context) (counter.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++
	if m.FailWith != nil {
		return counter.State{}, m.FailWith
	}
	return m.state, nil
}

func (m *MemoryStore) Set(_ context.Context, st counter.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Set++
	if m.FailWith != nil {
		return m.FailWith
	}
	m.state = st
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Calls returns a copy of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
