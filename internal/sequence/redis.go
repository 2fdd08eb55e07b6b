// Package sequence provides a correlative allocator backed by Redis INCR,
// usable in front of any record store.
package sequence

import (
	"context"
	"fmt"

	"sortec/internal/config"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis returns nil, nil when Redis is not enabled.
func NewRedis(conf *config.Config) (*Redis, error) {
	if !conf.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, key: conf.Redis.Key}, nil
}

// Next is a single INCR: atomic across every process sharing the key.
func (r *Redis) Next(ctx context.Context) (int64, error) {
	value, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", r.key, err)
	}
	return value, nil
}

// Seed sets the key only if it does not exist.
func (r *Redis) Seed(ctx context.Context, floor int64) error {
	if err := r.client.SetNX(ctx, r.key, floor, 0).Err(); err != nil {
		return fmt.Errorf("setnx %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
