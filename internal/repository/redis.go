package repository

import (
	"context"
	"fmt"
	"time"

	"bookline/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisProcessedStore struct {
	client *redis.Client
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisProcessedStore(client *redis.Client) *RedisProcessedStore {
	return &RedisProcessedStore{client: client}
}

// MarkProcessed records a callback key with SETNX semantics. It returns true
// when this call was the first to record the key, false when the key was
// already present, which makes it the duplicate-delivery detector.
func (r *RedisProcessedStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	first, err := r.client.SetNX(ctx, "processed:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark callback processed: %w", err)
	}
	return first, nil
}

func (r *RedisProcessedStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	redisKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func (r *RedisProcessedStore) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.client.Ping(ctx).Err()
}
