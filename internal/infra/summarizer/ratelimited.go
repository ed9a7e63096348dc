package summarizer

import (
	"context"

	"docdigest/internal/usecase/digest"
	"docdigest/pkg/ratelimit"
)

// RateLimited decorates a Summarizer with call pacing. Each operation
// waits for a rate limit token before reaching the underlying provider,
// keeping local model servers responsive and hosted APIs under their
// request quotas during large reduction runs.
type RateLimited struct {
	inner   digest.Summarizer
	limiter *ratelimit.Limiter
}

// NewRateLimited wraps a Summarizer with a call pacer. A nil limiter
// returns the inner Summarizer unchanged.
func NewRateLimited(inner digest.Summarizer, limiter *ratelimit.Limiter) digest.Summarizer {
	if limiter == nil {
		return inner
	}
	return &RateLimited{inner: inner, limiter: limiter}
}

func (r *RateLimited) Summarize(ctx context.Context, text string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Summarize(ctx, text)
}

func (r *RateLimited) SummarizeStream(ctx context.Context, text string, emit func(fragment string) error) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.SummarizeStream(ctx, text, emit)
}

func (r *RateLimited) Merge(ctx context.Context, summaries []string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Merge(ctx, summaries)
}

func (r *RateLimited) MergeStream(ctx context.Context, summaries []string, emit func(fragment string) error) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.MergeStream(ctx, summaries, emit)
}
