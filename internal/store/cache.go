package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// entityCache is a bounded read-through cache in front of the user and
// project stores, replacing ambient process-wide maps. Entries expire after
// the configured TTL and are invalidated on every write, so staleness is
// bounded even when a write bypasses this process. Cache failures degrade to
// database reads; they are never surfaced to callers.
type entityCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func newEntityCache(rdb *redis.Client, prefix string, ttl time.Duration) *entityCache {
	return &entityCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *entityCache) get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	payload, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

func (c *entityCache) set(ctx context.Context, key string, value any) {
	if c == nil || c.rdb == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.prefix+key, payload, c.ttl)
}

func (c *entityCache) invalidate(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, c.prefix+key)
}
