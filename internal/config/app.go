package config

import (
	"fmt"
	"os"
	"time"

	"docdigest/internal/domain/entity"
	pkgconfig "docdigest/pkg/config"
)

// Provider names accepted by the application.
const (
	ProviderAuto   = "auto"
	ProviderOllama = "ollama"
	ProviderClaude = "claude"
	ProviderNoOp   = "noop"
)

// AppConfig holds the application-level configuration shared by all
// pipeline runs. Provider-specific settings (model, host, API key) are
// loaded by the respective summarizer constructors.
type AppConfig struct {
	// Provider selects the summarization backend. "auto" picks claude
	// when ANTHROPIC_API_KEY is set and ollama otherwise.
	// Default: auto
	Provider string

	// TokenLimit caps the per-call token budget regardless of the task
	// profile. Default: 3000
	TokenLimit int

	// Parallelism bounds concurrent summarize calls during the map
	// phase. Default: 4
	Parallelism int

	// MaxGenerations bounds reduction rounds before the degraded join
	// kicks in. Default: 8
	MaxGenerations int

	// CharsPerToken is the character-to-token estimation ratio. Zero
	// selects the engine default of 3. Default: 0
	CharsPerToken int

	// RequestsPerMinute paces calls to the summarization backend.
	// Zero disables pacing. Default: 0
	RequestsPerMinute int

	// RunTimeout bounds one complete pipeline run, transcription
	// included. Default: 30m
	RunTimeout time.Duration
}

// DefaultAppConfig returns the default application configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Provider:       ProviderAuto,
		TokenLimit:     3000,
		Parallelism:    4,
		MaxGenerations: 8,
		RunTimeout:     30 * time.Minute,
	}
}

// LoadAppConfig loads the application configuration from environment
// variables. Invalid numeric values fall back to defaults with a warning;
// an invalid provider name is an error because silently switching
// backends would be surprising.
//
// Environment variables:
//   - DIGEST_PROVIDER: "auto", "ollama", "claude", or "noop" (default: auto)
//   - DIGEST_TOKEN_LIMIT: per-call token budget cap (default: 3000)
//   - DIGEST_PARALLELISM: concurrent summarize calls (default: 4)
//   - DIGEST_MAX_GENERATIONS: reduction round bound (default: 8)
//   - DIGEST_REQUESTS_PER_MINUTE: backend call pacing, 0 disables (default: 0)
//   - DIGEST_RUN_TIMEOUT: whole-run deadline (default: 30m)
func LoadAppConfig() (AppConfig, error) {
	defaults := DefaultAppConfig()

	cfg := AppConfig{
		Provider:          pkgconfig.GetEnvString("DIGEST_PROVIDER", defaults.Provider),
		TokenLimit:        pkgconfig.GetEnvInt("DIGEST_TOKEN_LIMIT", defaults.TokenLimit),
		Parallelism:       pkgconfig.GetEnvInt("DIGEST_PARALLELISM", defaults.Parallelism),
		MaxGenerations:    pkgconfig.GetEnvInt("DIGEST_MAX_GENERATIONS", defaults.MaxGenerations),
		CharsPerToken:     pkgconfig.GetEnvInt("DIGEST_CHAR_RATIO", defaults.CharsPerToken),
		RequestsPerMinute: pkgconfig.GetEnvInt("DIGEST_REQUESTS_PER_MINUTE", defaults.RequestsPerMinute),
		RunTimeout:        pkgconfig.GetEnvDuration("DIGEST_RUN_TIMEOUT", defaults.RunTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid app config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency. Failures carry the
// offending field name so callers can report exactly which setting to fix.
func (c AppConfig) Validate() error {
	switch c.Provider {
	case ProviderAuto, ProviderOllama, ProviderClaude, ProviderNoOp:
	default:
		return &entity.ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q (expected auto, ollama, claude, or noop)", c.Provider),
		}
	}

	if c.TokenLimit <= 0 {
		return &entity.ValidationError{
			Field:   "token_limit",
			Message: fmt.Sprintf("must be positive, got %d", c.TokenLimit),
		}
	}
	if c.Parallelism <= 0 {
		return &entity.ValidationError{
			Field:   "parallelism",
			Message: fmt.Sprintf("must be positive, got %d", c.Parallelism),
		}
	}
	if c.MaxGenerations <= 0 {
		return &entity.ValidationError{
			Field:   "max_generations",
			Message: fmt.Sprintf("must be positive, got %d", c.MaxGenerations),
		}
	}
	if c.CharsPerToken < 0 {
		return &entity.ValidationError{
			Field:   "char_ratio",
			Message: fmt.Sprintf("must be non-negative, got %d", c.CharsPerToken),
		}
	}
	if c.RequestsPerMinute < 0 {
		return &entity.ValidationError{
			Field:   "requests_per_minute",
			Message: fmt.Sprintf("must be non-negative, got %d", c.RequestsPerMinute),
		}
	}

	if err := pkgconfig.ValidateDurationRange(c.RunTimeout, time.Minute, 2*time.Hour); err != nil {
		return &entity.ValidationError{
			Field:   "run_timeout",
			Message: err.Error(),
		}
	}

	return nil
}

// ResolveProvider resolves "auto" to a concrete provider name based on
// the presence of an Anthropic API key.
func (c AppConfig) ResolveProvider() string {
	if c.Provider != ProviderAuto {
		return c.Provider
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return ProviderClaude
	}
	return ProviderOllama
}

// ValidateTask checks that the task name maps to a known profile.
func ValidateTask(task string) (entity.TaskType, error) {
	t := entity.TaskType(task)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (expected short_summary, long_summary, detailed_analysis, or academic_paper)",
			entity.ErrUnknownTaskType, task)
	}
	return t, nil
}
