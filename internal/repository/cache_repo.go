package repository

import (
	"context"
	"time"
)

// CacheRepository is the shared cache store for gateway responses.
// The namespace is global across projects: cached external data is
// not project-specific, so keys are source+query+geo+lang only.
type CacheRepository interface {
	// Get returns the cached value for key. ok is false on a miss or
	// when the entry's TTL has elapsed; an expired entry is never
	// returned.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
