package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"docdigest/internal/observability/metrics"
	"docdigest/internal/resilience/circuitbreaker"
	"docdigest/internal/resilience/retry"
	"docdigest/internal/utils/text"
)

// ClaudeConfig holds configuration parameters for the Claude summarizer.
// Configuration is loaded from environment variables with fallback to defaults.
type ClaudeConfig struct {
	// Model is the Claude API model identifier to use for completion calls.
	// Loaded from DIGEST_MODEL when it names a claude model.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single completion call.
	Timeout time.Duration
}

// GetModel implements ProviderConfig.
func (c *ClaudeConfig) GetModel() string {
	return c.Model
}

// Validate implements ProviderConfig.
func (c *ClaudeConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if err := ValidateMaxTokens(c.MaxTokens); err != nil {
		return fmt.Errorf("invalid max tokens: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// LoadClaudeConfig loads configuration from environment variables.
//
// Environment variables:
//   - DIGEST_MODEL: model identifier (default: claude-sonnet-4-5)
func LoadClaudeConfig() ClaudeConfig {
	model := "claude-sonnet-4-5"
	if envModel := os.Getenv("DIGEST_MODEL"); envModel != "" && strings.HasPrefix(envModel, "claude") {
		model = envModel
	}

	return ClaudeConfig{
		Model:     model,
		MaxTokens: 4096,
		Timeout:   2 * time.Minute,
	}
}

// Claude implements the summarization port using Anthropic's Claude API.
// It includes circuit breaker and retry logic for improved reliability.
// Every call rebuilds its prompt from scratch, so no conversational context
// leaks between documents.
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          ClaudeConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewClaude creates a new Claude summarizer with the given API key.
// It automatically configures circuit breaker, retry logic, and metrics
// recording.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()

	slog.Info("Initialized Claude summarizer with configuration",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &Claude{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:     retry.LLMAPIConfig(),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// Summarize produces a summary of a single chunk of text.
// It uses circuit breaker and retry logic for improved reliability.
func (c *Claude) Summarize(ctx context.Context, chunk string) (string, error) {
	return c.complete(ctx, "summarize", buildSummarizePrompt(chunk))
}

// Merge combines an ordered sequence of partial summaries into one.
func (c *Claude) Merge(ctx context.Context, summaries []string) (string, error) {
	return c.complete(ctx, "merge", buildMergePrompt(summaries))
}

// SummarizeStream produces a summary of a single chunk, forwarding fragments
// to emit as they arrive, and returns the full summary.
func (c *Claude) SummarizeStream(ctx context.Context, chunk string, emit func(fragment string) error) (string, error) {
	return c.completeStream(ctx, "summarize", buildSummarizePrompt(chunk), emit)
}

// MergeStream combines partial summaries, forwarding fragments to emit as
// they arrive, and returns the full merged summary.
func (c *Claude) MergeStream(ctx context.Context, summaries []string, emit func(fragment string) error) (string, error) {
	return c.completeStream(ctx, "merge", buildMergePrompt(summaries), emit)
}

// complete executes a non-streaming completion with retry and circuit
// breaker protection.
func (c *Claude) complete(ctx context.Context, operation, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doComplete(ctx, operation, prompt)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		c.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("claude %s failed after retries: %w", operation, retryErr)
	}

	return result, nil
}

// doComplete performs the actual API call without retry or circuit breaker.
func (c *Claude) doComplete(ctx context.Context, operation, prompt string) (string, error) {
	inputLength := text.CountRunes(prompt)

	slog.InfoContext(ctx, "Starting completion",
		slog.String("provider", "claude"),
		slog.String("operation", operation),
		slog.String("model", c.config.Model),
		slog.Int("input_length", inputLength))

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Completion failed",
			slog.String("provider", "claude"),
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		metrics.RecordLLMCallError("claude", operation)
		return "", fmt.Errorf("claude api error: %w", err)
	}

	// Validate response structure
	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "Claude API returned empty response",
			slog.String("operation", operation),
			slog.Duration("duration", duration))
		metrics.RecordLLMCallError("claude", operation)
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "Claude API returned unexpected response type",
			slog.String("operation", operation),
			slog.Duration("duration", duration))
		metrics.RecordLLMCallError("claude", operation)
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	summary := strings.TrimSpace(textBlock.Text)
	summaryLength := text.CountRunes(summary)

	slog.InfoContext(ctx, "Completion finished",
		slog.String("provider", "claude"),
		slog.String("operation", operation),
		slog.Int("summary_length", summaryLength),
		slog.Duration("duration", duration))

	c.metricsRecorder.RecordLength(summaryLength)
	c.metricsRecorder.RecordDuration(duration)
	metrics.RecordLLMCall("claude", operation, duration)

	return summary, nil
}

// completeStream executes a streaming completion. Fragments already
// forwarded to emit cannot be unsent, so the streaming path goes through the
// circuit breaker but is never retried.
func (c *Claude) completeStream(ctx context.Context, operation, prompt string, emit func(string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if c.circuitBreaker.IsOpen() {
		slog.Warn("claude api circuit breaker open, stream rejected",
			slog.String("service", "claude-api"))
		c.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("claude api unavailable: circuit breaker open")
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doCompleteStream(ctx, operation, prompt, emit)
	})
	if err != nil {
		c.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("claude %s stream failed: %w", operation, err)
	}

	return result.(string), nil
}

// doCompleteStream performs the actual streaming API call, forwarding each
// text delta to emit and returning the full concatenation.
func (c *Claude) doCompleteStream(ctx context.Context, operation, prompt string, emit func(string) error) (string, error) {
	slog.InfoContext(ctx, "Starting streaming completion",
		slog.String("provider", "claude"),
		slog.String("operation", operation),
		slog.String("model", c.config.Model),
		slog.Int("input_length", text.CountRunes(prompt)))

	start := time.Now()

	stream := c.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	var sb strings.Builder
	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				fragment := deltaVariant.Text
				if fragment == "" {
					continue
				}
				sb.WriteString(fragment)
				c.metricsRecorder.RecordStreamFragment()
				if emitErr := emit(fragment); emitErr != nil {
					return "", fmt.Errorf("stream consumer rejected fragment: %w", emitErr)
				}
			}
		}
	}
	if streamErr := stream.Err(); streamErr != nil {
		metrics.RecordLLMCallError("claude", operation)
		return "", fmt.Errorf("claude stream error: %w", streamErr)
	}

	duration := time.Since(start)
	// Not trimmed: the concatenated fragments must equal the returned text.
	summary := sb.String()
	summaryLength := text.CountRunes(summary)

	slog.InfoContext(ctx, "Streaming completion finished",
		slog.String("provider", "claude"),
		slog.String("operation", operation),
		slog.Int("summary_length", summaryLength),
		slog.Duration("duration", duration))

	c.metricsRecorder.RecordLength(summaryLength)
	c.metricsRecorder.RecordDuration(duration)
	metrics.RecordLLMCall("claude", operation, duration)

	return summary, nil
}
