package fragment

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	content   string
	expiresAt time.Time
}

// Cache holds generated content fragments keyed by artifact path so repeated
// items within a session skip the backend. Entries carry a TTL on top of the
// LRU eviction. Nil receivers are no-ops, so callers can pass an optional
// cache without guarding.
type Cache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
}

// New builds a cache with the given entry cap and TTL. maxEntries < 1 is
// raised to 1; ttl <= 0 defaults to 30 minutes.
func New(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	inner, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: inner, ttl: ttl}, nil
}

// Get returns the fragment for path if present and fresh.
func (c *Cache) Get(path string) (string, bool) {
	if c == nil {
		return "", false
	}
	e, ok := c.lru.Get(path)
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(path)
		return "", false
	}
	return e.content, true
}

// Put stores a fragment under path with a fresh TTL.
func (c *Cache) Put(path, content string) {
	if c == nil {
		return
	}
	c.lru.Add(path, entry{content: content, expiresAt: time.Now().Add(c.ttl)})
}

// Invalidate drops the fragment for path, if any.
func (c *Cache) Invalidate(path string) {
	if c == nil {
		return
	}
	c.lru.Remove(path)
}

// Len reports the number of cached fragments (including stale ones not yet
// evicted).
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
