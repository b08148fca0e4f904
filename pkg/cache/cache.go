// Package cache implements key-value memoization with per-entry expiry.
//
// Guarded operations are idempotent reads, so concurrent misses on the
// same key may both recompute; the last writer wins. Expired entries are
// swept lazily by ClearExpired, which the scheduler runs once per cycle.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value  any
	expiry time.Time
}

// Cache is a TTL-bounded memoization table shared by possibly-concurrent
// collectors.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a cache with the given default TTL.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the live cached value for key, or computes, stores, and
// returns a fresh one. A non-positive ttl selects the default. Compute
// errors are returned without storing, so the next call retries.
func (c *Cache) Get(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiry) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// Compute outside the lock: a slow compute must not block readers
	// of other keys, and duplicate computation on a concurrent miss is
	// acceptable for idempotent reads.
	value, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiry: c.now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

// ClearExpired removes all entries whose expiry has passed. It is
// advisory housekeeping to bound memory, not required for Get
// correctness.
func (c *Cache) ClearExpired() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
