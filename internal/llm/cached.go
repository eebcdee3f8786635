package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"tutorion/internal/cache"
)

// CachingClient serves repeated prompts from a cache before calling next.
type CachingClient struct {
	next  Client
	cache cache.Cache
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachingClient decorates next. The model name is part of every cache key.
func NewCachingClient(next Client, c cache.Cache, model string, ttl time.Duration, log *slog.Logger) *CachingClient {
	if log == nil {
		log = slog.Default()
	}
	return &CachingClient{next: next, cache: c, model: model, ttl: ttl, log: log}
}

// Complete returns a cached completion when present. Only completions that
// decode as a JSON array of objects are stored, so a malformed reply is
// asked for again on the next call. Cache failures are logged and never fail
// the call.
func (c *CachingClient) Complete(ctx context.Context, messages []Message) (string, error) {
	key, err := CacheKey(c.model, messages)
	if err != nil {
		return "", err
	}
	hit, err := c.cache.GetCompletion(ctx, key)
	if err != nil {
		c.log.Warn("completion cache read failed", "err", err)
	} else if hit != nil {
		c.log.Debug("completion cache hit", "key", key)
		return hit.Text, nil
	}

	text, err := c.next.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if _, err := parseArray(text); err != nil {
		c.log.Debug("completion not cached", "err", err)
		return text, nil
	}
	entry := &cache.Completion{Model: c.model, Text: text, CreatedAt: time.Now().UTC()}
	if err := c.cache.SetCompletion(ctx, key, entry, c.ttl); err != nil {
		c.log.Warn("completion cache write failed", "err", err)
	}
	return text, nil
}

// CacheKey hashes the model and messages into a stable hex key.
func CacheKey(model string, messages []Message) (string, error) {
	body, err := json.Marshal(struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}{model, messages})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
