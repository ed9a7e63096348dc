package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSummarizer is a deterministic Summarizer for exercising the engine
// without any model. The default behavior is identity summarize and
// join-merge; individual calls can be overridden per test.
type fakeSummarizer struct {
	mu             sync.Mutex
	summarizeCalls int
	mergeCalls     int
	streamCalls    int

	summarizeFn func(text string) (string, error)
	mergeFn     func(texts []string) (string, error)
	fragments   []string // fragments MergeStream yields before returning
	streamErr   error    // error MergeStream returns after its fragments
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.summarizeCalls++
	fn := f.summarizeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(text)
	}
	return text, nil
}

func (f *fakeSummarizer) SummarizeStream(ctx context.Context, text string, emit func(string) error) (string, error) {
	s, err := f.Summarize(ctx, text)
	if err != nil {
		return "", err
	}
	if err := emit(s); err != nil {
		return "", err
	}
	return s, nil
}

func (f *fakeSummarizer) Merge(_ context.Context, texts []string) (string, error) {
	f.mu.Lock()
	f.mergeCalls++
	fn := f.mergeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(texts)
	}
	return strings.Join(texts, "\n\n"), nil
}

func (f *fakeSummarizer) MergeStream(ctx context.Context, texts []string, emit func(string) error) (string, error) {
	f.mu.Lock()
	f.streamCalls++
	fragments := f.fragments
	streamErr := f.streamErr
	f.mu.Unlock()

	if fragments == nil {
		full, err := f.Merge(ctx, texts)
		if err != nil {
			return "", err
		}
		if err := emit(full); err != nil {
			return "", err
		}
		return full, nil
	}

	var b strings.Builder
	for _, frag := range fragments {
		if err := emit(frag); err != nil {
			return "", err
		}
		b.WriteString(frag)
	}
	if streamErr != nil {
		return "", streamErr
	}
	return b.String(), nil
}

func newTestEngine(t *testing.T, port Summarizer, budget int) *Engine {
	t.Helper()
	eng, err := NewEngine(port, NewEstimator(3), EngineConfig{Budget: budget}, nil)
	require.NoError(t, err)
	return eng
}

func TestNewEngine_RejectsInvalidBudget(t *testing.T) {
	_, err := NewEngine(&fakeSummarizer{}, NewEstimator(3), EngineConfig{Budget: 0}, nil)
	require.Error(t, err)
}

func TestEngine_SingleChunkNoMerge(t *testing.T) {
	// One chunk under budget: summarize is called exactly once and its
	// result returned directly, with no merge call issued.
	fake := &fakeSummarizer{}
	eng := newTestEngine(t, fake, 100)

	res, err := eng.Run(context.Background(), []string{"the only chunk"})
	require.NoError(t, err)
	require.Equal(t, "the only chunk", res.Text)
	require.False(t, res.Degraded)
	require.Equal(t, 1, fake.summarizeCalls)
	require.Equal(t, 0, fake.mergeCalls)
}

func TestEngine_NoChunks(t *testing.T) {
	eng := newTestEngine(t, &fakeSummarizer{}, 100)
	_, err := eng.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoChunks)
}

func TestEngine_ReducesTenChunksToOne(t *testing.T) {
	// Ten chunks, budget allowing groups of three summaries: one map
	// generation, then merge generations until a single summary remains.
	fixed := strings.Repeat("s", 30)
	fake := &fakeSummarizer{
		summarizeFn: func(string) (string, error) { return fixed, nil },
		mergeFn:     func([]string) (string, error) { return fixed, nil },
	}
	eng := newTestEngine(t, fake, 31)

	chunks := make([]string, 10)
	for i := range chunks {
		chunks[i] = strings.Repeat("c", 30)
	}

	res, err := eng.Run(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, fixed, res.Text)
	require.False(t, res.Degraded)
	require.Equal(t, 10, fake.summarizeCalls)
	require.Greater(t, fake.mergeCalls, 0)
	require.GreaterOrEqual(t, res.Generations, 2)
}

func TestEngine_OrderPreservedThroughMap(t *testing.T) {
	// The map step may run concurrently, but results must come back in
	// input order. Identity summarize plus join-merge makes order visible.
	fake := &fakeSummarizer{}
	eng := newTestEngine(t, fake, 1000)

	chunks := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	res, err := eng.Run(context.Background(), chunks)
	require.NoError(t, err)

	last := -1
	for _, marker := range chunks {
		idx := strings.Index(res.Text, marker)
		require.GreaterOrEqual(t, idx, 0, "marker %q missing", marker)
		require.Greater(t, idx, last, "marker %q out of order", marker)
		last = idx
	}
}

func TestEngine_AllMergesEmptyFailsCleanly(t *testing.T) {
	// Every merge returns empty: the generation produces zero usable
	// summaries and the run must reach Done with ErrReductionFailed
	// instead of spinning.
	fake := &fakeSummarizer{
		summarizeFn: func(string) (string, error) { return strings.Repeat("s", 30), nil },
		mergeFn:     func([]string) (string, error) { return "", nil },
	}
	eng := newTestEngine(t, fake, 31)

	chunks := make([]string, 6) // packs into two groups of three
	for i := range chunks {
		chunks[i] = strings.Repeat("c", 30)
	}

	_, err := eng.Run(context.Background(), chunks)
	require.ErrorIs(t, err, ErrReductionFailed)
}

func TestEngine_AllSummarizeFailuresEscalate(t *testing.T) {
	fake := &fakeSummarizer{
		summarizeFn: func(string) (string, error) { return "", errors.New("model unavailable") },
	}
	eng := newTestEngine(t, fake, 100)

	_, err := eng.Run(context.Background(), []string{"one", "two"})
	require.ErrorIs(t, err, ErrReductionFailed)
}

func TestEngine_PartialSummarizeFailureAbsorbed(t *testing.T) {
	// A failing chunk is dropped from its generation; the run continues
	// with the remaining summaries.
	fake := &fakeSummarizer{
		summarizeFn: func(text string) (string, error) {
			if strings.Contains(text, "poison") {
				return "", errors.New("model choked")
			}
			return text, nil
		},
	}
	eng := newTestEngine(t, fake, 1000)

	res, err := eng.Run(context.Background(), []string{"good one", "poison pill", "good two"})
	require.NoError(t, err)
	require.NotContains(t, res.Text, "poison")
	require.Contains(t, res.Text, "good one")
	require.Contains(t, res.Text, "good two")
}

func TestEngine_GenerationCapReturnsBestAvailable(t *testing.T) {
	// Merges that never shrink below the budget exhaust the generation cap;
	// the engine must exit with a degraded join, not hang.
	huge := strings.Repeat("m", 400)
	fake := &fakeSummarizer{
		summarizeFn: func(string) (string, error) { return strings.Repeat("s", 60), nil },
		mergeFn:     func([]string) (string, error) { return huge, nil },
	}
	eng, err := NewEngine(fake, NewEstimator(3),
		EngineConfig{Budget: 31, MaxGenerations: 3}, nil)
	require.NoError(t, err)

	chunks := make([]string, 6)
	for i := range chunks {
		chunks[i] = strings.Repeat("c", 30)
	}

	res, err := eng.Run(context.Background(), chunks)
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.NotEmpty(t, res.Text)
	require.LessOrEqual(t, res.Generations, 3)
}

func TestEngine_NoProgressGuardJoins(t *testing.T) {
	// Summaries fit the budget in total but merging cannot shrink the set
	// (joining any two would overflow, so every group is a singleton): the
	// no-progress guard returns a join instead of looping forever.
	fake := &fakeSummarizer{
		summarizeFn: func(string) (string, error) { return strings.Repeat("s", 47), nil },
	}
	eng := newTestEngine(t, fake, 31)

	res, err := eng.Run(context.Background(), []string{
		strings.Repeat("a", 30), strings.Repeat("b", 30),
	})
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, strings.Repeat("s", 47)+"\n\n"+strings.Repeat("s", 47), res.Text)
}

func TestEngine_ProgressReported(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	progress := func(msg string) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
	}

	fake := &fakeSummarizer{}
	eng, err := NewEngine(fake, NewEstimator(3), EngineConfig{Budget: 1000}, progress)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), []string{"first chunk", "second chunk"})
	require.NoError(t, err)

	var sawMapping, sawMerging bool
	for _, m := range messages {
		if strings.HasPrefix(m, "mapping step") {
			sawMapping = true
		}
		if strings.HasPrefix(m, "merging step") {
			sawMerging = true
		}
	}
	require.True(t, sawMapping, "no mapping progress reported")
	require.True(t, sawMerging, "no merging progress reported")
}

func TestEngine_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newTestEngine(t, &fakeSummarizer{}, 100)
	_, err := eng.Run(ctx, []string{"one", "two", "three"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngine_StreamConcatenationEqualsResult(t *testing.T) {
	fake := &fakeSummarizer{
		fragments: []string{"part one, ", "part two, ", "part three."},
	}
	eng := newTestEngine(t, fake, 1000)

	var got strings.Builder
	res, err := eng.RunStream(context.Background(), []string{"first chunk", "second chunk"},
		func(frag string) error {
			got.WriteString(frag)
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, res.Text, got.String())
	require.Equal(t, "part one, part two, part three.", got.String())
	require.Equal(t, 1, fake.streamCalls, "only the final merge may stream")
}

func TestEngine_StreamSingleSummaryEmittedOnce(t *testing.T) {
	fake := &fakeSummarizer{}
	eng := newTestEngine(t, fake, 1000)

	var fragments []string
	res, err := eng.RunStream(context.Background(), []string{"only chunk"},
		func(frag string) error {
			fragments = append(fragments, frag)
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, []string{"only chunk"}, fragments)
	require.Equal(t, res.Text, "only chunk")
	require.Equal(t, 0, fake.streamCalls)
}

func TestEngine_StreamErrorEmitsSentinelFragment(t *testing.T) {
	// A failure mid-stream must surface as one terminal fragment carrying
	// the error message, never as silent truncation.
	fake := &fakeSummarizer{
		fragments: []string{"partial "},
		streamErr: errors.New("connection reset"),
	}
	eng := newTestEngine(t, fake, 1000)

	var fragments []string
	_, err := eng.RunStream(context.Background(), []string{"first chunk", "second chunk"},
		func(frag string) error {
			fragments = append(fragments, frag)
			return nil
		})
	require.Error(t, err)
	require.NotEmpty(t, fragments)
	last := fragments[len(fragments)-1]
	require.Contains(t, last, "summary generation failed")
	require.Contains(t, last, "connection reset")
}
