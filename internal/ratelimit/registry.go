package ratelimit

import (
	"sync"
	"time"
)

// Registry shares limiters across scheduling sessions by key. It replaces
// ambient global state with an explicit, lock-guarded map: callers that want
// one budget per provider (or per API key) construct a Registry and hand it
// to each session.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Get returns the limiter registered under key, creating it with the given
// parameters on first use. Later calls with different parameters return the
// original limiter unchanged.
func (r *Registry) Get(key string, maxConcurrent, requestsPerWindow int, window time.Duration) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := New(maxConcurrent, requestsPerWindow, window)
	r.limiters[key] = l
	return l
}

// Remove drops the limiter registered under key, if any.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.limiters, key)
	r.mu.Unlock()
}
