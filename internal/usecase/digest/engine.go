package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// defaultMaxGenerations caps the reduce loop. Budget-based shrinkage is
	// expected to converge in two or three generations; the cap is a safety
	// bound against adversarial inputs, never the normal exit.
	defaultMaxGenerations = 8

	// defaultParallelism bounds concurrent map-step summarize calls.
	defaultParallelism = 4
)

// EngineConfig holds the tunables for one reduction run.
type EngineConfig struct {
	// Budget is the maximum estimated token cost for one unit of text passed
	// to the Summarizer. Chosen once per run; constant for its duration.
	Budget int

	// MaxGenerations caps the number of reduce iterations. Default: 8.
	MaxGenerations int

	// Parallelism bounds concurrent map-step summarize calls. Default: 4.
	// Results are reassembled in input order regardless of this setting.
	Parallelism int
}

// Validate validates the configuration and returns an error if invalid.
func (c EngineConfig) Validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("token budget must be positive, got %d", c.Budget)
	}
	return nil
}

// withDefaults fills unset optional fields.
func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = defaultMaxGenerations
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	return c
}

// Result is the terminal output of a reduction run.
type Result struct {
	// Text is the final summary.
	Text string

	// Degraded is true when the no-progress guard returned a plain join of
	// un-mergeable summaries instead of a true merge. The text is usable but
	// of degraded quality; callers may want to surface that.
	Degraded bool

	// Generations counts the reduce iterations the run performed.
	Generations int
}

// Engine drives the iterative map-reduce loop: summarize each chunk, group
// and merge the summaries, and repeat until one summary remains or no
// further shrinkage is possible. Each run owns its own summary sequence; no
// state is shared across runs.
type Engine struct {
	port     Summarizer
	est      Estimator
	grouper  Grouper
	cfg      EngineConfig
	progress ProgressFunc
}

// NewEngine creates an Engine backed by the given Summarizer port.
// The progress callback may be nil.
func NewEngine(port Summarizer, est Estimator, cfg EngineConfig, progress ProgressFunc) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return &Engine{
		port:     port,
		est:      est,
		grouper:  NewGrouper(est),
		cfg:      cfg.withDefaults(),
		progress: progress,
	}, nil
}

// Run executes the map-reduce loop and returns the final summary.
func (e *Engine) Run(ctx context.Context, chunks []string) (Result, error) {
	return e.run(ctx, chunks, nil)
}

// RunStream executes the map-reduce loop with a streamed final step. All map
// and intermediate reduce generations are fully materialized; only the final
// merge is token-incremental, each fragment forwarded to emit immediately.
// On failure one terminal fragment carrying the error message is emitted and
// the stream halts, so callers can tell truncation from success by the
// sentinel rather than by silence.
func (e *Engine) RunStream(ctx context.Context, chunks []string, emit func(fragment string) error) (Result, error) {
	res, err := e.run(ctx, chunks, emit)
	if err != nil && ctx.Err() == nil {
		_ = emit(fmt.Sprintf("summary generation failed: %v", err))
	}
	return res, err
}

// run is the shared reduction loop. A nil emit means non-streaming mode; the
// Done result is then returned without being forwarded anywhere.
func (e *Engine) run(ctx context.Context, chunks []string, emit func(string) error) (Result, error) {
	if len(chunks) == 0 {
		return Result{}, ErrNoChunks
	}

	summaries, err := e.mapChunks(ctx, chunks)
	if err != nil {
		return Result{}, err
	}
	if len(summaries) == 0 {
		return Result{}, fmt.Errorf("map step: %w", ErrReductionFailed)
	}

	prevSize := -1
	generations := 0

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		size := len(summaries)

		// A single summary cannot shrink further; return it verbatim.
		if size == 1 {
			return e.finish(Result{Text: summaries[0], Generations: generations}, emit)
		}

		total := e.est.EstimateAll(summaries)

		// No-progress guard: everything fits but merging stopped shrinking
		// the set. Return a plain join as a degraded result instead of
		// spinning. Flagged on the Result, not hidden.
		if total <= e.cfg.Budget && size == prevSize {
			slog.Warn("reduction made no progress, returning joined summaries",
				slog.Int("summaries", size),
				slog.Int("generation", generations))
			return e.finish(Result{
				Text:        strings.Join(summaries, mergeJoiner),
				Degraded:    true,
				Generations: generations,
			}, emit)
		}

		// Safety bound against inputs that keep the loop busy without
		// converging. Return the best available result.
		if generations >= e.cfg.MaxGenerations {
			slog.Warn("reduction generation cap reached, returning joined summaries",
				slog.Int("summaries", size),
				slog.Int("max_generations", e.cfg.MaxGenerations))
			return e.finish(Result{
				Text:        strings.Join(summaries, mergeJoiner),
				Degraded:    true,
				Generations: generations,
			}, emit)
		}

		prevSize = size
		generations++

		groups := e.grouper.Group(summaries, e.cfg.Budget)

		// A single remaining group means this merge produces the Done
		// result, so it is the one executed incrementally when streaming.
		if len(groups) == 1 {
			return e.finalMerge(ctx, groups[0], generations, emit)
		}

		summaries, err = e.mergeGroups(ctx, groups)
		if err != nil {
			return Result{}, err
		}
		if len(summaries) == 0 {
			return Result{}, fmt.Errorf("merge generation %d: %w", generations, ErrReductionFailed)
		}
	}
}

// mapChunks summarizes every chunk through the port, bounded-parallel, and
// reassembles the non-empty results in input order. Per-chunk failures are
// absorbed (dropped and reported); cancellation aborts the whole run.
func (e *Engine) mapChunks(ctx context.Context, chunks []string) ([]string, error) {
	results := make([]string, len(chunks))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			summary, err := e.port.Summarize(gctx, chunk)
			n := completed.Add(1)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("chunk summarize failed, dropping from generation",
					slog.Int("chunk", i+1),
					slog.Int("total", len(chunks)),
					slog.Any("error", err))
				e.progress.Report(fmt.Sprintf("mapping step %d/%d failed: %v", i+1, len(chunks), err))
				return nil
			}
			results[i] = summary
			e.progress.Report(fmt.Sprintf("mapping step %d/%d", n, len(chunks)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			summaries = append(summaries, r)
		}
	}
	return summaries, nil
}

// mergeGroups performs one intermediate reduce generation. Singleton groups
// pass through unchanged; failed or empty merges are dropped and reported.
func (e *Engine) mergeGroups(ctx context.Context, groups [][]string) ([]string, error) {
	next := make([]string, 0, len(groups))

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(group) == 1 {
			next = append(next, group[0])
			e.progress.Report(fmt.Sprintf("merging step %d/%d", i+1, len(groups)))
			continue
		}

		merged, err := e.port.Merge(ctx, group)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("group merge failed, dropping from generation",
				slog.Int("group", i+1),
				slog.Int("total", len(groups)),
				slog.Any("error", err))
			e.progress.Report(fmt.Sprintf("merging step %d/%d failed: %v", i+1, len(groups), err))
			continue
		}
		if merged != "" {
			next = append(next, merged)
		}
		e.progress.Report(fmt.Sprintf("merging step %d/%d", i+1, len(groups)))
	}

	return next, nil
}

// finalMerge executes the merge that produces the Done result. In streaming
// mode the port yields fragments which are forwarded as they arrive, with
// the full concatenation kept for the returned Result.
func (e *Engine) finalMerge(ctx context.Context, group []string, generations int, emit func(string) error) (Result, error) {
	e.progress.Report("merging step 1/1")

	if len(group) == 1 {
		return e.finish(Result{Text: group[0], Generations: generations}, emit)
	}

	var merged string
	var err error
	if emit != nil {
		merged, err = e.port.MergeStream(ctx, group, emit)
	} else {
		merged, err = e.port.Merge(ctx, group)
	}
	if err != nil {
		return Result{}, fmt.Errorf("final merge: %w", err)
	}
	if merged == "" {
		return Result{}, fmt.Errorf("final merge: %w", ErrReductionFailed)
	}

	return Result{Text: merged, Generations: generations}, nil
}

// finish forwards a non-streamed Done result as a single fragment when
// streaming, preserving the property that the concatenated stream equals the
// non-streaming result.
func (e *Engine) finish(res Result, emit func(string) error) (Result, error) {
	if emit != nil {
		if err := emit(res.Text); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
