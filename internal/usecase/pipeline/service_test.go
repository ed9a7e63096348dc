package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"docdigest/internal/domain/entity"
)

type fakeExtractor struct {
	doc entity.Document
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (entity.Document, error) {
	return f.doc, f.err
}

// fakePort records call counts and delegates to configurable functions.
type fakePort struct {
	mu            sync.Mutex
	summarizeFn   func(text string) (string, error)
	mergeFn       func(texts []string) (string, error)
	summarizeCnt  int
	mergeCnt      int
	mergeStreams  int
	lastSummarize string
}

func (f *fakePort) Summarize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.summarizeCnt++
	f.lastSummarize = text
	f.mu.Unlock()
	if f.summarizeFn != nil {
		return f.summarizeFn(text)
	}
	return "summary of " + text[:min(10, len(text))], nil
}

func (f *fakePort) SummarizeStream(ctx context.Context, text string, emit func(string) error) (string, error) {
	out, err := f.Summarize(ctx, text)
	if err != nil {
		return "", err
	}
	if err := emit(out); err != nil {
		return "", err
	}
	return out, nil
}

func (f *fakePort) Merge(_ context.Context, texts []string) (string, error) {
	f.mu.Lock()
	f.mergeCnt++
	f.mu.Unlock()
	if f.mergeFn != nil {
		return f.mergeFn(texts)
	}
	return "merged", nil
}

func (f *fakePort) MergeStream(ctx context.Context, texts []string, emit func(string) error) (string, error) {
	f.mu.Lock()
	f.mergeStreams++
	f.mu.Unlock()
	out, err := f.Merge(ctx, texts)
	if err != nil {
		return "", err
	}
	if err := emit(out); err != nil {
		return "", err
	}
	return out, nil
}

func (f *fakePort) calls() (summarize, merge int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summarizeCnt, f.mergeCnt
}

func TestServiceRun_ExtractionFailureSkipsPort(t *testing.T) {
	port := &fakePort{}
	svc := NewService(
		&fakeExtractor{err: errors.New("connection refused")},
		port,
		Config{Task: entity.TaskLongSummary},
		nil,
	)

	_, err := svc.Run(context.Background(), "https://example.com/article")

	require.ErrorIs(t, err, ErrExtractionFailed)
	summarize, merge := port.calls()
	require.Zero(t, summarize, "extraction failure must not invoke the port")
	require.Zero(t, merge)
}

func TestServiceRun_EmptyContent(t *testing.T) {
	port := &fakePort{}
	svc := NewService(
		&fakeExtractor{doc: entity.NewDocument(entity.SourceHTML, "https://example.com", "   \n\t ")},
		port,
		Config{},
		nil,
	)

	_, err := svc.Run(context.Background(), "https://example.com")

	require.ErrorIs(t, err, ErrEmptyContent)
	summarize, _ := port.calls()
	require.Zero(t, summarize)
}

func TestServiceRun_ShortDocumentSingleCall(t *testing.T) {
	doc := entity.NewDocument(entity.SourceHTML, "https://example.com", "A short article about gardening.")
	port := &fakePort{
		summarizeFn: func(string) (string, error) { return "Gardening, briefly.", nil },
	}
	svc := NewService(&fakeExtractor{doc: doc}, port, Config{Task: entity.TaskShortSummary}, nil)

	res, err := svc.Run(context.Background(), "https://example.com")

	require.NoError(t, err)
	require.Equal(t, "Gardening, briefly.", res.Text)
	require.False(t, res.Degraded)
	summarize, merge := port.calls()
	require.Equal(t, 1, summarize)
	require.Zero(t, merge)
}

func TestServiceRun_LongDocumentReduces(t *testing.T) {
	// Ten paragraphs of 400 runes each: 4000 runes total keeps the tight
	// short-content cap out of play while forcing multiple chunks.
	paras := make([]string, 10)
	for i := range paras {
		paras[i] = strings.Repeat("a", 399) + "."
	}
	doc := entity.NewDocument(entity.SourcePDF, "paper.pdf", strings.Join(paras, "\n\n"))

	port := &fakePort{
		summarizeFn: func(string) (string, error) { return "partial summary.", nil },
		mergeFn:     func([]string) (string, error) { return "final merged summary.", nil },
	}
	svc := NewService(&fakeExtractor{doc: doc}, port, Config{
		Task:       entity.TaskShortSummary,
		TokenLimit: 200,
	}, nil)

	res, err := svc.Run(context.Background(), "paper.pdf")

	require.NoError(t, err)
	require.Equal(t, "final merged summary.", res.Text)
	summarize, merge := port.calls()
	require.Greater(t, summarize, 1)
	require.GreaterOrEqual(t, merge, 1)
}

func TestServiceRun_FallbackOnReductionFailure(t *testing.T) {
	paras := make([]string, 10)
	for i := range paras {
		paras[i] = strings.Repeat("b", 399) + "."
	}
	doc := entity.NewDocument(entity.SourceHTML, "https://example.com", strings.Join(paras, "\n\n"))

	var firstRound sync.Once
	failAfterMap := false
	port := &fakePort{}
	port.summarizeFn = func(text string) (string, error) {
		port.mu.Lock()
		fallback := failAfterMap
		port.mu.Unlock()
		if fallback {
			return "truncated fallback summary.", nil
		}
		return "partial.", nil
	}
	port.mergeFn = func([]string) (string, error) {
		firstRound.Do(func() {
			port.mu.Lock()
			failAfterMap = true
			port.mu.Unlock()
		})
		return "", errors.New("model overloaded")
	}

	svc := NewService(&fakeExtractor{doc: doc}, port, Config{
		Task:       entity.TaskShortSummary,
		TokenLimit: 200,
	}, nil)

	res, err := svc.Run(context.Background(), "https://example.com")

	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, "truncated fallback summary.", res.Text)
	// The fallback truncates oversized content before the single-shot call.
	require.LessOrEqual(t, len([]rune(port.lastSummarize)), fallbackMaxRunes+3)
}

func TestServiceRun_ProgressMessages(t *testing.T) {
	doc := entity.NewDocument(entity.SourceHTML, "https://example.com", "Some modest article text that fits one chunk.")
	port := &fakePort{}

	var mu sync.Mutex
	var messages []string
	svc := NewService(&fakeExtractor{doc: doc}, port, Config{}, func(msg string) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
	})

	_, err := svc.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(messages, "\n")
	require.Contains(t, joined, "extraction complete")
	require.Contains(t, joined, "chunking complete")
}

func TestServiceRunStream_ExtractionErrorEmitsSentinel(t *testing.T) {
	svc := NewService(
		&fakeExtractor{err: errors.New("dns lookup failed")},
		&fakePort{},
		Config{},
		nil,
	)

	var fragments []string
	_, err := svc.RunStream(context.Background(), "https://example.com", func(f string) error {
		fragments = append(fragments, f)
		return nil
	})

	require.ErrorIs(t, err, ErrExtractionFailed)
	require.Len(t, fragments, 1)
	require.Contains(t, fragments[0], "failed to extract")
}

func TestServiceRunStream_FragmentsMatchResult(t *testing.T) {
	doc := entity.NewDocument(entity.SourceHTML, "https://example.com", "One small article, nothing fancy.")
	port := &fakePort{
		summarizeFn: func(string) (string, error) { return "small summary.", nil },
	}
	svc := NewService(&fakeExtractor{doc: doc}, port, Config{}, nil)

	var sb strings.Builder
	res, err := svc.RunStream(context.Background(), "https://example.com", func(f string) error {
		sb.WriteString(f)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, res.Text, sb.String())
}

func TestRecommendedBudget(t *testing.T) {
	tests := []struct {
		name         string
		task         entity.TaskType
		contentRunes int
		want         int
	}{
		{"short content capped", entity.TaskDetailedAnalysis, 4000, 1500},
		{"short content under cap", entity.TaskShortSummary, 4000, 1500},
		{"medium content base", entity.TaskLongSummary, 10000, 3000},
		{"medium content academic", entity.TaskAcademicPaper, 10000, 6000},
		{"long content scaled", entity.TaskLongSummary, 20000, 4500},
		{"long content ceiling", entity.TaskAcademicPaper, 20000, 6000},
		{"unknown task treated as long summary", entity.TaskType("mystery"), 10000, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RecommendedBudget(tt.task, tt.contentRunes))
		})
	}
}
