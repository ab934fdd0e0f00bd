package hub

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// idempotencyCache deduplicates client-supplied idempotency keys: a command
// replayed within TTL returns the original cached result. Concurrent callers
// racing on the same key collapse onto one execution via singleflight,
// grounded on the teacher's auth.rateLimiter ticker-plus-map-prune idiom for
// the background TTL sweep, generalized from "prune stale login attempts" to
// "expire stale idempotent results".
type idempotencyCache struct {
	ttl   time.Duration
	sweep time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry

	group singleflight.Group
}

type cacheEntry struct {
	result    any
	err       error
	expiresAt time.Time
}

func newIdempotencyCache(ttl, sweepInterval time.Duration) *idempotencyCache {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &idempotencyCache{ttl: ttl, sweep: sweepInterval, entries: make(map[string]cacheEntry)}
}

// execute returns the cached result for key if present and unexpired;
// otherwise it runs fn exactly once (even under concurrent callers) and
// caches the outcome.
func (c *idempotencyCache) execute(key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.result, e.err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the singleflight: a concurrent caller may have
		// populated the cache while we waited to enter Do.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
			c.mu.Unlock()
			return e.result, e.err
		}
		c.mu.Unlock()

		result, err := fn()
		c.mu.Lock()
		c.entries[key] = cacheEntry{result: result, err: err, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return result, err
	})
	return v, err
}

// run sweeps expired entries on a fixed interval until ctx is cancelled.
func (c *idempotencyCache) run(ctx context.Context) {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *idempotencyCache) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
