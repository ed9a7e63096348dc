package digest

import "context"

// Summarizer is the external LLM capability the reduction core depends on
// but does not implement. Every call is stateless from the core's
// perspective: adapters rebuild their conversational context from scratch on
// each call, so concurrent or sequential runs never leak context between
// unrelated documents.
//
// Streaming variants invoke emit once per text fragment as it arrives and
// return the full concatenation. An emit callback returning an error aborts
// the stream.
type Summarizer interface {
	// Summarize produces a summary of a single chunk of text.
	Summarize(ctx context.Context, text string) (string, error)

	// SummarizeStream produces a summary of a single chunk, forwarding
	// fragments to emit as they arrive, and returns the full summary.
	SummarizeStream(ctx context.Context, text string, emit func(fragment string) error) (string, error)

	// Merge combines an ordered sequence of partial summaries into one.
	Merge(ctx context.Context, summaries []string) (string, error)

	// MergeStream combines partial summaries, forwarding fragments to emit
	// as they arrive, and returns the full merged summary.
	MergeStream(ctx context.Context, summaries []string, emit func(fragment string) error) (string, error)
}

// ProgressFunc receives human-readable progress messages at pipeline phase
// boundaries. A nil ProgressFunc is valid and changes no behavior.
type ProgressFunc func(message string)

// Report invokes the callback when one is set.
func (p ProgressFunc) Report(message string) {
	if p != nil {
		p(message)
	}
}
