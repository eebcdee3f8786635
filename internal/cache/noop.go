package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when no Redis address is configured or Redis is unreachable.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetCompletion always returns nil (cache miss)
func (c *NoOpCache) GetCompletion(ctx context.Context, key string) (*Completion, error) {
	return nil, nil
}

// SetCompletion does nothing and always succeeds
func (c *NoOpCache) SetCompletion(ctx context.Context, key string, completion *Completion, ttl time.Duration) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
