package config_test

import (
	"errors"
	"testing"
	"time"

	"docdigest/internal/config"
	"docdigest/internal/domain/entity"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := config.DefaultAppConfig()

	if cfg.Provider != config.ProviderAuto {
		t.Errorf("Provider = %q, want auto", cfg.Provider)
	}
	if cfg.TokenLimit != 3000 {
		t.Errorf("TokenLimit = %d, want 3000", cfg.TokenLimit)
	}
	if cfg.Parallelism != 4 {
		t.Errorf("Parallelism = %d, want 4", cfg.Parallelism)
	}
	if cfg.MaxGenerations != 8 {
		t.Errorf("MaxGenerations = %d, want 8", cfg.MaxGenerations)
	}
	if cfg.RunTimeout != 30*time.Minute {
		t.Errorf("RunTimeout = %v, want 30m", cfg.RunTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	t.Setenv("DIGEST_PROVIDER", "")
	t.Setenv("DIGEST_TOKEN_LIMIT", "")
	t.Setenv("DIGEST_PARALLELISM", "")
	t.Setenv("DIGEST_MAX_GENERATIONS", "")
	t.Setenv("DIGEST_REQUESTS_PER_MINUTE", "")
	t.Setenv("DIGEST_RUN_TIMEOUT", "")

	cfg, err := config.LoadAppConfig()
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}
	if cfg != config.DefaultAppConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadAppConfig_CustomValues(t *testing.T) {
	t.Setenv("DIGEST_PROVIDER", "ollama")
	t.Setenv("DIGEST_TOKEN_LIMIT", "1500")
	t.Setenv("DIGEST_PARALLELISM", "8")
	t.Setenv("DIGEST_MAX_GENERATIONS", "4")
	t.Setenv("DIGEST_REQUESTS_PER_MINUTE", "30")
	t.Setenv("DIGEST_RUN_TIMEOUT", "10m")

	cfg, err := config.LoadAppConfig()
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.TokenLimit != 1500 {
		t.Errorf("TokenLimit = %d", cfg.TokenLimit)
	}
	if cfg.Parallelism != 8 {
		t.Errorf("Parallelism = %d", cfg.Parallelism)
	}
	if cfg.MaxGenerations != 4 {
		t.Errorf("MaxGenerations = %d", cfg.MaxGenerations)
	}
	if cfg.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d", cfg.RequestsPerMinute)
	}
	if cfg.RunTimeout != 10*time.Minute {
		t.Errorf("RunTimeout = %v", cfg.RunTimeout)
	}
}

func TestLoadAppConfig_InvalidProvider(t *testing.T) {
	t.Setenv("DIGEST_PROVIDER", "gpt-banana")

	if _, err := config.LoadAppConfig(); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLoadAppConfig_InvalidNumericFallsBack(t *testing.T) {
	// Unparseable integers warn and fall back rather than failing
	t.Setenv("DIGEST_TOKEN_LIMIT", "lots")

	cfg, err := config.LoadAppConfig()
	if err != nil {
		t.Fatalf("LoadAppConfig() error = %v", err)
	}
	if cfg.TokenLimit != 3000 {
		t.Errorf("TokenLimit = %d, want default 3000", cfg.TokenLimit)
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{
			name:   "zero token limit",
			mutate: func(c *config.AppConfig) { c.TokenLimit = 0 },
		},
		{
			name:   "zero parallelism",
			mutate: func(c *config.AppConfig) { c.Parallelism = 0 },
		},
		{
			name:   "zero max generations",
			mutate: func(c *config.AppConfig) { c.MaxGenerations = 0 },
		},
		{
			name:   "negative pacing",
			mutate: func(c *config.AppConfig) { c.RequestsPerMinute = -1 },
		},
		{
			name:   "negative char ratio",
			mutate: func(c *config.AppConfig) { c.CharsPerToken = -1 },
		},
		{
			name:   "run timeout too short",
			mutate: func(c *config.AppConfig) { c.RunTimeout = time.Second },
		},
		{
			name:   "run timeout too long",
			mutate: func(c *config.AppConfig) { c.RunTimeout = 3 * time.Hour },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultAppConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestAppConfigValidate_NamesOffendingField(t *testing.T) {
	cfg := config.DefaultAppConfig()
	cfg.TokenLimit = -5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}

	var validationErr *entity.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *entity.ValidationError, got %T", err)
	}
	if validationErr.Field != "token_limit" {
		t.Errorf("Field = %q, want token_limit", validationErr.Field)
	}
}

func TestResolveProvider(t *testing.T) {
	cfg := config.DefaultAppConfig()

	t.Setenv("ANTHROPIC_API_KEY", "")
	if got := cfg.ResolveProvider(); got != config.ProviderOllama {
		t.Errorf("ResolveProvider() without key = %q, want ollama", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	if got := cfg.ResolveProvider(); got != config.ProviderClaude {
		t.Errorf("ResolveProvider() with key = %q, want claude", got)
	}

	cfg.Provider = config.ProviderNoOp
	if got := cfg.ResolveProvider(); got != config.ProviderNoOp {
		t.Errorf("ResolveProvider() explicit = %q, want noop", got)
	}
}

func TestValidateTask(t *testing.T) {
	for _, task := range []string{"short_summary", "long_summary", "detailed_analysis", "academic_paper"} {
		got, err := config.ValidateTask(task)
		if err != nil {
			t.Errorf("ValidateTask(%q) error = %v", task, err)
		}
		if got != entity.TaskType(task) {
			t.Errorf("ValidateTask(%q) = %q", task, got)
		}
	}

	if _, err := config.ValidateTask("haiku"); err == nil {
		t.Error("expected error for unknown task")
	}
}
