// Package cache provides the in-memory TTL store used to reuse search
// responses for identical requests.
package cache

import (
	"sync"
	"time"
)

// Entry is a stored value together with its lifetime.
type Entry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Size       int     `json:"size"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Cache maps request fingerprints to responses. Every operation runs under
// a single mutex; there is no per-entry locking and no request coalescing.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now. Used by tests to drive expiry.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*Entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key. An expired entry is removed and
// reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.ExpiresAt) {
			c.hits++
			return entry.Value, true
		}
		delete(c.entries, key)
	}

	c.misses++
	var zero V
	return zero, false
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &Entry[V]{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// Size purges expired entries and returns the number still live.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpiredLocked()
	return len(c.entries)
}

// Clear drops every entry and returns how many were removed.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string]*Entry[V])
	return count
}

// Stats reports size, counters and the configured ttl.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpiredLocked()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:       len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    hitRate,
		TTLSeconds: c.ttl.Seconds(),
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) purgeExpiredLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}
