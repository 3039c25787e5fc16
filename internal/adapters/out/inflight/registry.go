// Package inflight tracks keys that are currently being worked on so the same
// destination is never relayed twice at once.
package inflight

import (
	"sync"

	"github.com/bnema/imagerelay/internal/boundaries/out"
)

var _ out.InFlightTracker = (*Registry)(nil)

// Registry is an in-memory set of held keys.
type Registry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{held: make(map[string]struct{})}
}

// TryAcquire claims key without blocking. The release func frees it and may be
// called any number of times.
func (r *Registry) TryAcquire(key string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.held[key]; busy {
		return func() {}, false
	}
	r.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.held, key)
			r.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently claimed.
func (r *Registry) Held(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[key]
	return ok
}
