package memory

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

// CacheRepoImpl is an in-process cache store with the same contract as
// the Redis implementation. It backs runs without a Redis deployment
// and the gateway's tests; the clock is injectable so TTL expiry can
// be exercised without sleeping.
type CacheRepoImpl struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCacheRepo creates an empty in-process cache.
func NewCacheRepo() *CacheRepoImpl {
	return &CacheRepoImpl{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// WithClock replaces the cache's clock. Test hook.
func (c *CacheRepoImpl) WithClock(now func() time.Time) *CacheRepoImpl {
	c.now = now
	return c
}

// Get returns the cached value for key. An entry past
// insertedAt+ttl is treated as absent and evicted; it is never
// returned, regardless of when the clock advanced.
func (c *CacheRepoImpl) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.insertedAt.Add(entry.ttl)) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key with the given TTL.
func (c *CacheRepoImpl) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, insertedAt: c.now(), ttl: ttl}
	return nil
}
