package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefix for cached completions
const completionKeyPrefix = "completion:"

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client and checks the connection.
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetCompletion retrieves a cached completion by key
func (c *RedisCache) GetCompletion(ctx context.Context, key string) (*Completion, error) {
	data, err := c.client.Get(ctx, completionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var completion Completion
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

// SetCompletion stores a completion with TTL
func (c *RedisCache) SetCompletion(ctx context.Context, key string, completion *Completion, ttl time.Duration) error {
	data, err := json.Marshal(completion)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, completionKeyPrefix+key, string(data), ttl).Err()
}

// Close closes the cache connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
