// Package main provides the docdigest CLI for summarizing long documents.
// Usage: docdigest [--task TYPE] [--stream] [--output FILE] [--provider NAME] SOURCE
//
// SOURCE may be a web article URL, a PDF path or URL, or a YouTube video
// URL. The task profile controls the token budget of the reduction.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docdigest/internal/config"
	"docdigest/internal/infra/extractor"
	"docdigest/internal/infra/summarizer"
	"docdigest/internal/observability/logging"
	"docdigest/internal/usecase/digest"
	"docdigest/internal/usecase/pipeline"
	"docdigest/pkg/ratelimit"
)

func main() {
	var (
		task         string
		stream       bool
		outputPath   string
		providerFlag string
	)

	flag.StringVar(&task, "task", "long_summary", "Task profile: short_summary, long_summary, detailed_analysis, or academic_paper")
	flag.BoolVar(&stream, "stream", false, "Stream the final summary as it is generated")
	flag.StringVar(&outputPath, "output", "", "Write the summary to a file instead of stdout")
	flag.StringVar(&providerFlag, "provider", "", "Summarization backend: ollama, claude, or noop (default: DIGEST_PROVIDER)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one source is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: docdigest [--task TYPE] [--stream] [--output FILE] [--provider NAME] SOURCE")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  docdigest https://example.com/article")
		fmt.Fprintln(os.Stderr, "  docdigest --task academic_paper paper.pdf")
		fmt.Fprintln(os.Stderr, "  docdigest --stream https://www.youtube.com/watch?v=dQw4w9WgXcQ")
		os.Exit(1)
	}
	source := flag.Arg(0)

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	taskType, err := config.ValidateTask(task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appConfig, err := config.LoadAppConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if providerFlag != "" {
		appConfig.Provider = providerFlag
		if err := appConfig.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	port, err := buildPort(appConfig)
	if err != nil {
		logger.Error("failed to initialize summarization backend", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sources, err := buildExtractors(logger)
	if err != nil {
		logger.Error("failed to initialize extractors", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	progress := func(message string) {
		fmt.Fprintln(os.Stderr, message)
	}

	service := pipeline.NewService(sources, port, pipeline.Config{
		Task:           taskType,
		TokenLimit:     appConfig.TokenLimit,
		CharsPerToken:  appConfig.CharsPerToken,
		MaxGenerations: appConfig.MaxGenerations,
		Parallelism:    appConfig.Parallelism,
	}, progress)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startMetricsServer(ctx, logger)

	ctx, timeoutCancel := context.WithTimeout(ctx, appConfig.RunTimeout)
	defer timeoutCancel()

	out, closeOut, err := openOutput(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var result digest.Result
	if stream {
		result, err = service.RunStream(ctx, source, func(fragment string) error {
			_, writeErr := io.WriteString(out, fragment)
			return writeErr
		})
		if err == nil {
			// Streamed fragments carry no trailing newline
			_, _ = io.WriteString(out, "\n")
		}
	} else {
		result, err = service.Run(ctx, source)
		if err == nil {
			_, err = fmt.Fprintln(out, result.Text)
		}
	}
	closeOut()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "Error: run exceeded %v\n", appConfig.RunTimeout)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if result.Degraded {
		fmt.Fprintln(os.Stderr, "Warning: summary is a plain join of partial summaries (reduction could not converge)")
	}
}

// buildPort constructs the summarization backend with optional call pacing.
func buildPort(appConfig config.AppConfig) (digest.Summarizer, error) {
	var port digest.Summarizer

	switch appConfig.ResolveProvider() {
	case config.ProviderClaude:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the claude provider")
		}
		port = summarizer.NewClaude(apiKey)
	case config.ProviderOllama:
		ollamaConfig, err := summarizer.LoadOllamaConfig()
		if err != nil {
			return nil, fmt.Errorf("ollama configuration: %w", err)
		}
		port = summarizer.NewOllama(ollamaConfig)
	case config.ProviderNoOp:
		port = summarizer.NewNoOp()
	default:
		return nil, fmt.Errorf("unknown provider %q", appConfig.Provider)
	}

	return summarizer.NewRateLimited(port, ratelimit.PerMinute(appConfig.RequestsPerMinute)), nil
}

// buildExtractors wires the source-routing factory. Transcription is
// optional: without a whisper model YouTube sources are rejected, but
// HTML and PDF keep working.
func buildExtractors(logger *slog.Logger) (*extractor.Factory, error) {
	fetchConfig, err := extractor.LoadFetchConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var transcript *extractor.Transcript
	if os.Getenv("WHISPER_MODEL_PATH") != "" {
		transcriptConfig, err := extractor.LoadTranscriptConfigFromEnv()
		if err != nil {
			return nil, err
		}
		transcript = extractor.NewTranscript(transcriptConfig)
	} else {
		logger.Info("transcription disabled (WHISPER_MODEL_PATH not set)")
	}

	return extractor.NewFactory(
		extractor.NewHTML(fetchConfig),
		extractor.NewPDF(fetchConfig, os.Getenv("PDFTOTEXT_BINARY_PATH")),
		transcript,
	), nil
}

// openOutput returns the summary writer and a close function. An empty
// path selects stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output file: %v\n", err)
		}
	}, nil
}
