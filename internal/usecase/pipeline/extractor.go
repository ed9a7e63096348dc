// Package pipeline wires document extraction to the reduction core. A driver
// obtains a Document from its extractor, selects the token budget from task
// type and content length, and delegates all chunking and merging to the
// digest package. On total reduction failure it falls back to a truncated
// single-shot summarize call.
package pipeline

import (
	"context"
	"errors"

	"docdigest/internal/domain/entity"
)

// Extractor obtains a plain-text Document from an external source. The
// pipeline treats every extractor as a black box producing text: PDF
// parsing, HTML scraping, and audio transcription all live behind this
// interface.
type Extractor interface {
	Extract(ctx context.Context, source string) (entity.Document, error)
}

// Sentinel errors for pipeline runs. Callers distinguish outcomes with
// errors.Is; none of these are retried by the pipeline itself.
var (
	// ErrExtractionFailed indicates no text could be obtained from the
	// source. Terminal for the run; the reduction engine is never invoked.
	ErrExtractionFailed = errors.New("failed to extract text from source")

	// ErrEmptyContent indicates extraction succeeded but yielded no usable
	// text. Terminal, with a message distinct from extraction failure.
	ErrEmptyContent = errors.New("source contains no usable text")
)
