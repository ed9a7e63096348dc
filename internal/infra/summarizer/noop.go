// Package summarizer provides LLM-backed implementations of the summarization port.
package summarizer

import (
	"context"
	"strings"
)

// NoOp is a summarizer that returns truncated input without calling any
// model. This is useful for testing and development when a real LLM is not
// available.
type NoOp struct{}

// NewNoOp creates a new NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// maxLength bounds NoOp output to match the shape of a real summary.
const noOpMaxLength = 500

// Summarize returns the original text truncated to the first 500 runes.
func (n *NoOp) Summarize(_ context.Context, chunk string) (string, error) {
	return truncateRunes(chunk, noOpMaxLength), nil
}

// Merge joins the summaries and truncates the result.
func (n *NoOp) Merge(_ context.Context, summaries []string) (string, error) {
	return truncateRunes(strings.Join(summaries, "\n\n"), noOpMaxLength), nil
}

// SummarizeStream emits the truncated text as a single fragment.
func (n *NoOp) SummarizeStream(ctx context.Context, chunk string, emit func(fragment string) error) (string, error) {
	out, _ := n.Summarize(ctx, chunk)
	if err := emit(out); err != nil {
		return "", err
	}
	return out, nil
}

// MergeStream emits the truncated join as a single fragment.
func (n *NoOp) MergeStream(ctx context.Context, summaries []string, emit func(fragment string) error) (string, error) {
	out, _ := n.Merge(ctx, summaries)
	if err := emit(out); err != nil {
		return "", err
	}
	return out, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
