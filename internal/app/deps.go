package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"

	"tutorion/internal/cache"
	"tutorion/internal/chunker"
	"tutorion/internal/config"
	"tutorion/internal/llm"
	"tutorion/internal/logger"
)

// Deps bundles the runtime dependencies shared by every command.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Cache     cache.Cache
	Extractor chunker.Extractor

	// NewClient builds the completion client once a credential is resolved.
	NewClient func(apiKey string) (llm.Client, error)
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// Build validates cfg and constructs shared components. No network call is
// made to the model provider here.
func Build(cfg config.Config) (Deps, error) {
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	c := buildCache(cfg, log)

	return Deps{
		Config:    cfg,
		Log:       log,
		Cache:     c,
		Extractor: chunker.PDFExtractor{Log: log},
		NewClient: func(apiKey string) (llm.Client, error) {
			return buildLLM(cfg, apiKey, c, log)
		},
	}, nil
}

// Tutor resolves a completion client for apiKey and wraps it in a Tutor.
func (d Deps) Tutor(apiKey string) (*llm.Tutor, error) {
	client, err := d.NewClient(apiKey)
	if err != nil {
		return nil, err
	}
	return llm.NewTutor(client, d.Log), nil
}

// Close releases the cache connection.
func (d Deps) Close() {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Close(); err != nil {
		d.Log.Warn("failed to close cache", "err", err)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewNoOpCache()
	}
	rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; completions will not be cached", "addr", cfg.RedisAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis completion cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return rc
}

func buildLLM(cfg config.Config, apiKey string, c cache.Cache, log *slog.Logger) (llm.Client, error) {
	client, err := llm.NewOpenAIClient(apiKey, openai.ChatModel(cfg.LLMModel), cfg.OpenAIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	log.Debug("using OpenAI LLM client", "model", cfg.LLMModel)
	if _, ok := c.(*cache.NoOpCache); ok {
		return client, nil
	}
	return llm.NewCachingClient(client, c, cfg.LLMModel, cfg.CacheTTL, log), nil
}
