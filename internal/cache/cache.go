package cache

import (
	"context"
	"time"
)

// Cache stores model completions so identical prompts skip the network.
type Cache interface {
	// GetCompletion retrieves a cached completion by key.
	// Returns nil if not found.
	GetCompletion(ctx context.Context, key string) (*Completion, error)

	// SetCompletion stores a completion with TTL.
	SetCompletion(ctx context.Context, key string, completion *Completion, ttl time.Duration) error

	// Close closes the cache connection.
	Close() error
}

// Completion is a cached model response.
type Completion struct {
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
