package extractor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FetchConfig holds the configuration for HTTP content fetching.
// This configuration controls security, performance, and behavior of the
// HTML and PDF extractors.
type FetchConfig struct {
	// Timeout is the maximum duration for a single HTTP request.
	// Default: 30s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Responses exceeding this limit are rejected to prevent memory
	// exhaustion. Enforced during response reading, not based on the
	// Content-Length header. Default: 52428800 (50MB, PDFs can be large)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is validated for security (SSRF check).
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs controls whether to block access to private IP
	// addresses. Should always be true in production. Default: true
	DenyPrivateIPs bool
}

// DefaultFetchConfig returns the default configuration for content fetching.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:        30 * time.Second,
		MaxBodySize:    50 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks if the configuration values are valid and safe.
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(500 * 1024 * 1024) // 500MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadFetchConfigFromEnv loads configuration from environment variables.
// If a variable is not set, the default value is used. After loading, the
// configuration is validated.
//
// Environment variables:
//   - DIGEST_FETCH_TIMEOUT: duration string, e.g., "30s" (default: 30s)
//   - DIGEST_FETCH_MAX_BODY_SIZE: integer in bytes (default: 52428800)
//   - DIGEST_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - DIGEST_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadFetchConfigFromEnv() (FetchConfig, error) {
	cfg := DefaultFetchConfig()

	if val := os.Getenv("DIGEST_FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid DIGEST_FETCH_TIMEOUT: %v (expected format: '30s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("DIGEST_FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid DIGEST_FETCH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("DIGEST_FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid DIGEST_FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	if val := os.Getenv("DIGEST_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid fetch configuration: %w", err)
	}

	return cfg, nil
}
