package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "gw:cache:"

// CacheRepoImpl provides the shared gateway cache on top of Redis.
// Keys are global across projects: cached provider responses are not
// project-specific, so all runs read and write the same namespace.
// TTL enforcement is delegated to Redis key expiry, which guarantees
// an expired entry is never returned.
type CacheRepoImpl struct {
	client *redis.Client
}

// NewCacheRepo creates a new instance of CacheRepoImpl.
func NewCacheRepo(client *redis.Client) *CacheRepoImpl {
	return &CacheRepoImpl{client: client}
}

// Get returns the cached value for key, reporting a miss for absent
// or expired entries.
func (r *CacheRepoImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key with the given TTL.
func (r *CacheRepoImpl) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.SetEx(ctx, cacheKeyPrefix+key, value, ttl).Err()
}
