package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/campusmint/backend/internal/config"
)

// InitRedis connects the cache client. Redis backs the bounded read-through
// cache in front of the user and project stores; the service degrades to
// uncached reads when it is absent, so connection failure is not fatal.
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rdb, nil
}
