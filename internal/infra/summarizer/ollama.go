// Package summarizer provides LLM-backed implementations of the summarization
// port. It includes adapters for Ollama (OpenAI-compatible API) and Claude
// (Anthropic) with reliability patterns, structured logging, and Prometheus
// metrics.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"docdigest/internal/observability/metrics"
	"docdigest/internal/resilience/circuitbreaker"
	"docdigest/internal/resilience/retry"
	"docdigest/internal/utils/text"
)

// OllamaConfig holds configuration parameters for the Ollama summarizer.
// Configuration is loaded from environment variables with fallback to defaults.
type OllamaConfig struct {
	// Host is the base URL of the Ollama server.
	// Loaded from OLLAMA_HOST. Default: http://localhost:11434.
	Host string

	// Model is the model identifier to use for completion calls.
	// Loaded from DIGEST_MODEL. Default: qwen3:8b.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	// Loaded from DIGEST_MAX_TOKENS. Valid range: 64-32768. Default: 4096.
	MaxTokens int

	// Timeout is the maximum duration for a single completion call.
	// Local models can be slow on long inputs.
	Timeout time.Duration
}

// GetModel implements ProviderConfig.
func (c *OllamaConfig) GetModel() string {
	return c.Model
}

// Validate implements ProviderConfig.
func (c *OllamaConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("host must be an http(s) URL, got %q", c.Host)
	}
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

// LoadOllamaConfig loads configuration from environment variables.
// Returns an error if the configuration is invalid (fail-closed behavior).
//
// Environment variables:
//   - OLLAMA_HOST: Ollama server base URL (default: http://localhost:11434)
//   - DIGEST_MODEL: model identifier (default: qwen3:8b)
//   - DIGEST_MAX_TOKENS: response token cap (default: 4096, range: 64-32768)
func LoadOllamaConfig() (*OllamaConfig, error) {
	const (
		defaultHost      = "http://localhost:11434"
		defaultModel     = "qwen3:8b"
		defaultMaxTokens = 4096
	)

	host := defaultHost
	if envHost := os.Getenv("OLLAMA_HOST"); envHost != "" {
		host = envHost
	}

	model := defaultModel
	if envModel := os.Getenv("DIGEST_MODEL"); envModel != "" {
		model = envModel
	}

	maxTokens := defaultMaxTokens
	if envMax := os.Getenv("DIGEST_MAX_TOKENS"); envMax != "" {
		parsed, err := strconv.Atoi(envMax)
		if err != nil {
			return nil, fmt.Errorf("invalid DIGEST_MAX_TOKENS format: %s: %w", envMax, err)
		}
		if err := ValidateMaxTokens(parsed); err != nil {
			return nil, fmt.Errorf("DIGEST_MAX_TOKENS out of valid range: %w", err)
		}
		maxTokens = parsed
	}

	config := &OllamaConfig{
		Host:      host,
		Model:     model,
		MaxTokens: maxTokens,
		Timeout:   10 * time.Minute,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Ollama configuration: %w", err)
	}

	return config, nil
}

// Ollama implements the summarization port against an Ollama server through
// its OpenAI-compatible API. It includes circuit breaker and retry logic for
// improved reliability. Every call rebuilds its prompt from scratch, so no
// conversational context leaks between documents.
type Ollama struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          *OllamaConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewOllama creates a new Ollama summarizer with the given configuration.
// It automatically configures circuit breaker, retry logic, and metrics
// recording.
func NewOllama(config *OllamaConfig) *Ollama {
	clientConfig := openai.DefaultConfig("")
	clientConfig.BaseURL = strings.TrimSuffix(config.Host, "/") + "/v1"

	slog.Info("Initialized Ollama summarizer with configuration",
		slog.String("host", config.Host),
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &Ollama{
		client:          openai.NewClientWithConfig(clientConfig),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OllamaAPIConfig()),
		retryConfig:     retry.LLMAPIConfig(),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// Summarize produces a summary of a single chunk of text.
// It uses circuit breaker and retry logic for improved reliability.
func (o *Ollama) Summarize(ctx context.Context, chunk string) (string, error) {
	return o.complete(ctx, "summarize", buildSummarizePrompt(chunk))
}

// Merge combines an ordered sequence of partial summaries into one.
func (o *Ollama) Merge(ctx context.Context, summaries []string) (string, error) {
	return o.complete(ctx, "merge", buildMergePrompt(summaries))
}

// SummarizeStream produces a summary of a single chunk, forwarding fragments
// to emit as they arrive, and returns the full summary.
func (o *Ollama) SummarizeStream(ctx context.Context, chunk string, emit func(fragment string) error) (string, error) {
	return o.completeStream(ctx, "summarize", buildSummarizePrompt(chunk), emit)
}

// MergeStream combines partial summaries, forwarding fragments to emit as
// they arrive, and returns the full merged summary.
func (o *Ollama) MergeStream(ctx context.Context, summaries []string, emit func(fragment string) error) (string, error) {
	return o.completeStream(ctx, "merge", buildMergePrompt(summaries), emit)
}

// complete executes a non-streaming completion with retry and circuit
// breaker protection.
func (o *Ollama) complete(ctx context.Context, operation, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doComplete(ctx, operation, prompt)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("ollama api circuit breaker open, request rejected",
					slog.String("service", "ollama-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("ollama api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		o.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("ollama %s failed after retries: %w", operation, retryErr)
	}

	return result, nil
}

// doComplete performs the actual API call without retry or circuit breaker.
func (o *Ollama) doComplete(ctx context.Context, operation, prompt string) (string, error) {
	inputLength := text.CountRunes(prompt)

	slog.InfoContext(ctx, "Starting completion",
		slog.String("provider", "ollama"),
		slog.String("operation", operation),
		slog.String("model", o.config.Model),
		slog.Int("input_length", inputLength))

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Completion failed",
			slog.String("provider", "ollama"),
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		metrics.RecordLLMCallError("ollama", operation)
		return "", fmt.Errorf("ollama api error: %w", err)
	}

	// Safety check to prevent panic on array access
	if len(resp.Choices) == 0 {
		slog.ErrorContext(ctx, "Ollama API returned empty response",
			slog.String("operation", operation),
			slog.Duration("duration", duration))
		metrics.RecordLLMCallError("ollama", operation)
		return "", fmt.Errorf("ollama api returned empty response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	summaryLength := text.CountRunes(summary)

	slog.InfoContext(ctx, "Completion finished",
		slog.String("provider", "ollama"),
		slog.String("operation", operation),
		slog.Int("summary_length", summaryLength),
		slog.Duration("duration", duration))

	o.metricsRecorder.RecordLength(summaryLength)
	o.metricsRecorder.RecordDuration(duration)
	metrics.RecordLLMCall("ollama", operation, duration)

	return summary, nil
}

// completeStream executes a streaming completion. Fragments already
// forwarded to emit cannot be unsent, so the streaming path goes through the
// circuit breaker but is never retried.
func (o *Ollama) completeStream(ctx context.Context, operation, prompt string, emit func(string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	if o.circuitBreaker.IsOpen() {
		slog.Warn("ollama api circuit breaker open, stream rejected",
			slog.String("service", "ollama-api"))
		o.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("ollama api unavailable: circuit breaker open")
	}

	result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
		return o.doCompleteStream(ctx, operation, prompt, emit)
	})
	if err != nil {
		o.metricsRecorder.RecordFailure()
		return "", fmt.Errorf("ollama %s stream failed: %w", operation, err)
	}

	return result.(string), nil
}

// doCompleteStream performs the actual streaming API call, forwarding each
// content delta to emit and returning the full concatenation.
func (o *Ollama) doCompleteStream(ctx context.Context, operation, prompt string, emit func(string) error) (string, error) {
	slog.InfoContext(ctx, "Starting streaming completion",
		slog.String("provider", "ollama"),
		slog.String("operation", operation),
		slog.String("model", o.config.Model),
		slog.Int("input_length", text.CountRunes(prompt)))

	start := time.Now()

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Stream:    true,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		metrics.RecordLLMCallError("ollama", operation)
		return "", fmt.Errorf("ollama api error: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			metrics.RecordLLMCallError("ollama", operation)
			return "", fmt.Errorf("ollama stream error: %w", recvErr)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		sb.WriteString(fragment)
		o.metricsRecorder.RecordStreamFragment()
		if emitErr := emit(fragment); emitErr != nil {
			return "", fmt.Errorf("stream consumer rejected fragment: %w", emitErr)
		}
	}

	duration := time.Since(start)
	summary := sb.String()
	summaryLength := text.CountRunes(summary)

	slog.InfoContext(ctx, "Streaming completion finished",
		slog.String("provider", "ollama"),
		slog.String("operation", operation),
		slog.Int("summary_length", summaryLength),
		slog.Duration("duration", duration))

	o.metricsRecorder.RecordLength(summaryLength)
	o.metricsRecorder.RecordDuration(duration)
	metrics.RecordLLMCall("ollama", operation, duration)

	return summary, nil
}
