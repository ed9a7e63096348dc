package digest

import "errors"

// Sentinel errors for the reduction core.
var (
	// ErrNoChunks is returned when the engine is given no input chunks.
	ErrNoChunks = errors.New("no chunks to summarize")

	// ErrReductionFailed is returned when a full generation produced zero
	// usable summaries. It is distinguishable from a successful run whose
	// summary happens to be short: callers check errors.Is, not text length.
	ErrReductionFailed = errors.New("reduction produced no usable summaries")
)
