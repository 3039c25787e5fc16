// Package ratelimit provides per-client rate limiting for the HTTP boundary.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bnema/imagerelay/internal/boundaries/out"
)

var _ out.RateLimiter = (*MemoryStore)(nil)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in memory.
type MemoryStore struct {
	entries map[string]*entry
	mu      sync.RWMutex
	rps     float64
	burst   int
	log     zerolog.Logger
	now     func() time.Time
}

// NewMemoryStore creates a store granting rps requests per second with the
// given burst to every key.
func NewMemoryStore(rps float64, burst int, log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		rps:     rps,
		burst:   burst,
		log:     log.With().Str("adapter", "ratelimit").Logger(),
		now:     time.Now,
	}
}

// Allow reports whether a request identified by key may proceed.
func (s *MemoryStore) Allow(_ context.Context, key string) bool {
	allowed := s.getLimiter(key).AllowN(s.now(), 1)
	if !allowed {
		s.log.Debug().Str("key", key).Msg("request rate limited")
	}
	return allowed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict drops keys not seen for longer than idle and returns how many were removed.
func (s *MemoryStore) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Int("remaining", len(s.entries)).Msg("evicted idle rate limiters")
	}
	return removed
}

// RunEvictor calls Evict every interval until ctx is done.
func (s *MemoryStore) RunEvictor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict(idle)
		}
	}
}

func (s *MemoryStore) getLimiter(key string) *rate.Limiter {
	now := s.now()

	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if exists {
		s.mu.Lock()
		e.lastSeen = now
		s.mu.Unlock()
		return e.limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if e, exists = s.entries[key]; exists {
		e.lastSeen = now
		return e.limiter
	}

	e = &entry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst), lastSeen: now}
	s.entries[key] = e
	return e.limiter
}
