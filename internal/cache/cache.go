// Package cache provides a small TTL cache used to reuse research results
// across workflows that target the same keyword.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a bounded string-keyed cache with per-entry expiry.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	maxSize int
}

// NewTTL creates a cache holding at most maxSize entries for ttl each.
func NewTTL[V any](maxSize int, ttl time.Duration) *TTLCache[V] {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V], maxSize),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Key normalizes a keyword into a cache key.
func Key(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Get returns the cached value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, evicting expired entries first and then the
// soonest-expiring entry when the cache is full.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Modify applies fn to the current value (zero when absent or expired) and
// stores the result under one lock. Returns the new value.
func (c *TTLCache[V]) Modify(key string, fn func(current V, ok bool) V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e, ok := c.entries[key]
	if ok && now.After(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	var current V
	if ok {
		current = e.value
	}

	next := fn(current, ok)
	if !ok && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}
	expiresAt := e.expiresAt
	if !ok {
		expiresAt = now.Add(c.ttl)
	}
	c.entries[key] = entry[V]{value: next, expiresAt: expiresAt}
	return next, true
}

// Delete removes an entry.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports live (unexpired) entries.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		n++
	}
	return n
}

func (c *TTLCache[V]) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
			first = false
		}
	}
	delete(c.entries, oldestKey)
}
