package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// ErrMissingCredential is returned when no OpenAI API key can be resolved.
var ErrMissingCredential = errors.New("OPENAI_API_KEY is required")

// Config holds runtime configuration. CLI flags override these values.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	// LLM
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	LLMModel      string `env:"LLM_MODEL" envDefault:"gpt-5-mini" validate:"required"`

	// Chunking
	MaxChars int `env:"MAX_CHARS" envDefault:"1200" validate:"gt=0"`

	// Completion cache; disabled when RedisAddr is empty.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h" validate:"gte=0"`

	// Workspace server
	Port                int      `env:"PORT" envDefault:"8787" validate:"gt=0,lte=65535"`
	MaxUploadSize       int64    `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" validate:"gt=0"` // 10MB in bytes
	RequireAuth         bool     `env:"REQUIRE_AUTH" envDefault:"false"`
	ResourceBaseURL     string   `env:"RESOURCE_BASE_URL" envDefault:"https://example.tutorion.app" validate:"url"`
	AuthorizationServer string   `env:"AUTHORIZATION_SERVER" envDefault:"https://auth.example.com" validate:"url"`
	Scopes              []string `env:"SCOPES" envSeparator:" " envDefault:"materials:read materials:write"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

var validate = validator.New()

// Validate checks value ranges after flags have been applied.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolveAPIKey prefers an explicit flag value over OPENAI_API_KEY.
func (c Config) ResolveAPIKey(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if c.OpenAIKey != "" {
		return c.OpenAIKey, nil
	}
	return "", ErrMissingCredential
}
