package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docdigest/internal/domain/entity"
	"docdigest/internal/observability/metrics"
	"docdigest/internal/usecase/digest"
	"docdigest/internal/utils/text"
)

// fallbackMaxRunes bounds the content passed to the single-shot fallback
// summarize call when the reduction loop fails outright.
const fallbackMaxRunes = 5000

// Config holds the tunables for one pipeline.
type Config struct {
	// Task selects the budget profile. Default: long_summary.
	Task entity.TaskType

	// TokenLimit caps the recommended budget. Default: 3000.
	TokenLimit int

	// CharsPerToken is the estimation ratio. Default: digest.DefaultCharsPerToken.
	CharsPerToken int

	// MaxGenerations and Parallelism pass through to the reduction engine.
	MaxGenerations int
	Parallelism    int
}

// withDefaults fills unset optional fields.
func (c Config) withDefaults() Config {
	if c.Task == "" {
		c.Task = entity.TaskLongSummary
	}
	if c.TokenLimit <= 0 {
		c.TokenLimit = 3000
	}
	return c
}

// Service drives one source-to-summary flow: extract, select a budget,
// split, reduce. It never implements chunking or merging itself; all of
// that is delegated to the digest package.
type Service struct {
	extractor Extractor
	port      digest.Summarizer
	cfg       Config
	progress  digest.ProgressFunc
}

// NewService creates a pipeline Service. The progress callback may be nil.
func NewService(extractor Extractor, port digest.Summarizer, cfg Config, progress digest.ProgressFunc) *Service {
	return &Service{
		extractor: extractor,
		port:      port,
		cfg:       cfg.withDefaults(),
		progress:  progress,
	}
}

// Run extracts the source and reduces it to a single summary.
func (s *Service) Run(ctx context.Context, source string) (digest.Result, error) {
	return s.run(ctx, source, nil)
}

// RunStream behaves like Run but streams the final merge: fragments are
// forwarded to emit as they arrive. Failures surface as one terminal
// fragment carrying the error message before the stream closes.
func (s *Service) RunStream(ctx context.Context, source string, emit func(fragment string) error) (digest.Result, error) {
	return s.run(ctx, source, emit)
}

func (s *Service) run(ctx context.Context, source string, emit func(string) error) (digest.Result, error) {
	runID := uuid.New().String()
	start := time.Now()

	slog.InfoContext(ctx, "Starting summarization pipeline",
		slog.String("request_id", runID),
		slog.String("task", string(s.cfg.Task)),
		slog.String("source", source))

	doc, err := s.extractor.Extract(ctx, source)
	if err != nil {
		metrics.RecordPipelineRun(string(s.cfg.Task), "extraction_failed", time.Since(start))
		slog.ErrorContext(ctx, "Extraction failed",
			slog.String("request_id", runID),
			slog.Any("error", err))
		wrapped := fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		s.emitFailure(ctx, emit, wrapped)
		return digest.Result{}, wrapped
	}

	if doc.Empty() {
		metrics.RecordPipelineRun(string(s.cfg.Task), "empty_content", time.Since(start))
		slog.WarnContext(ctx, "Extraction yielded no usable text",
			slog.String("request_id", runID),
			slog.String("source", source))
		s.emitFailure(ctx, emit, ErrEmptyContent)
		return digest.Result{}, ErrEmptyContent
	}

	s.progress.Report(fmt.Sprintf("extraction complete: %d characters", doc.Len()))

	budget := RecommendedBudget(s.cfg.Task, doc.Len())
	if budget > s.cfg.TokenLimit {
		budget = s.cfg.TokenLimit
	}

	est := digest.NewEstimator(s.cfg.CharsPerToken)
	chunks := digest.NewSplitter(est).Split(doc.Text, budget)
	s.progress.Report(fmt.Sprintf("chunking complete: %d chunks", len(chunks)))
	metrics.RecordChunks(len(chunks))

	slog.InfoContext(ctx, "Document chunked",
		slog.String("request_id", runID),
		slog.Int("budget", budget),
		slog.Int("chunks", len(chunks)),
		slog.Int("estimated_tokens", est.Estimate(doc.Text)))

	engine, err := digest.NewEngine(s.port, est, digest.EngineConfig{
		Budget:         budget,
		MaxGenerations: s.cfg.MaxGenerations,
		Parallelism:    s.cfg.Parallelism,
	}, s.progress)
	if err != nil {
		return digest.Result{}, err
	}

	var res digest.Result
	if emit != nil {
		res, err = engine.RunStream(ctx, chunks, emit)
	} else {
		res, err = engine.Run(ctx, chunks)
	}

	if err != nil {
		if ctx.Err() != nil {
			return digest.Result{}, err
		}
		// Streaming runs already delivered their error sentinel; only the
		// non-streaming path gets the truncated single-shot fallback.
		if emit == nil {
			if fb, fbErr := s.fallbackSummary(ctx, doc); fbErr == nil {
				metrics.RecordPipelineRun(string(s.cfg.Task), "degraded", time.Since(start))
				slog.WarnContext(ctx, "Reduction failed, returned single-shot fallback summary",
					slog.String("request_id", runID),
					slog.Any("reduction_error", err))
				return digest.Result{Text: fb, Degraded: true}, nil
			}
		}
		metrics.RecordPipelineRun(string(s.cfg.Task), "failure", time.Since(start))
		return digest.Result{}, err
	}

	outcome := "success"
	if res.Degraded {
		outcome = "degraded"
		metrics.RecordDegraded()
	}
	metrics.RecordPipelineRun(string(s.cfg.Task), outcome, time.Since(start))
	metrics.RecordGenerations(res.Generations)
	metrics.RecordSummaryLength(text.CountRunes(res.Text))

	slog.InfoContext(ctx, "Summarization pipeline completed",
		slog.String("request_id", runID),
		slog.Int("generations", res.Generations),
		slog.Bool("degraded", res.Degraded),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}

// fallbackSummary truncates the document and performs one non-iterative
// summarize call. Used when the reduction loop cannot produce a result.
func (s *Service) fallbackSummary(ctx context.Context, doc entity.Document) (string, error) {
	content := doc.Text
	if runes := []rune(content); len(runes) > fallbackMaxRunes {
		content = string(runes[:fallbackMaxRunes]) + "..."
	}

	summary, err := s.port.Summarize(ctx, content)
	if err != nil {
		return "", fmt.Errorf("fallback summarize: %w", err)
	}
	if summary == "" {
		return "", fmt.Errorf("fallback summarize returned empty result")
	}
	return summary, nil
}

// emitFailure forwards a terminal error fragment on streaming runs so the
// caller sees an explicit sentinel instead of a silently closed stream.
func (s *Service) emitFailure(ctx context.Context, emit func(string) error, err error) {
	if emit != nil && ctx.Err() == nil {
		_ = emit(err.Error())
	}
}
