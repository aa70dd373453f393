// Package surface tracks on-screen widget instances and redraws them.
package surface

import (
	"slices"
	"sync"
)

// Registry is the set of active surface ids. The first Add and the last
// Remove are reported so callers can drive widget activation and removal.
type Registry struct {
	mu  sync.RWMutex
	ids map[int]struct{}
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[int]struct{})}
}

// Add registers id. first is true when the registry was empty before.
// added is false when id was already present.
func (r *Registry) Add(id int) (added, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false, false
	}
	first = len(r.ids) == 0
	r.ids[id] = struct{}{}
	return true, first
}

// Remove unregisters id. last is true when the registry became empty.
func (r *Registry) Remove(id int) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return false, false
	}
	delete(r.ids, id)
	return true, len(r.ids) == 0
}

// Has reports whether id is active.
func (r *Registry) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

// IDs returns a sorted snapshot of the active ids.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
