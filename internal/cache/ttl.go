// Package cache provides a small time-bound value cache.
package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// TTL caches a single value for a fixed duration. The zero ttl disables
// caching entirely, which tests use to force store round trips.
type TTL[T any] struct {
	mu    sync.Mutex
	clock clock.Clock
	ttl   time.Duration

	val   T
	stamp time.Time
	ok    bool
}

// NewTTL builds a cache with the given lifetime and clock.
func NewTTL[T any](ttl time.Duration, cl clock.Clock) *TTL[T] {
	return &TTL[T]{ttl: ttl, clock: cl}
}

// Get returns the cached value if it is still fresh.
func (c *TTL[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.ttl <= 0 || c.clock.Now().Sub(c.stamp) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.val, true
}

// Set stores a value and restarts its lifetime.
func (c *TTL[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.val = v
	c.stamp = c.clock.Now()
	c.ok = true
}

// Clear drops the cached value immediately.
func (c *TTL[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.val = zero
	c.ok = false
}
