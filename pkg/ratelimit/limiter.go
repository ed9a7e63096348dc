// Package ratelimit paces calls to external services using a token
// bucket. It exists to keep local model servers responsive and hosted
// APIs under their rate limits during large reduction runs.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter paces calls with a token bucket. A nil *Limiter is valid and
// never blocks, so callers can thread an optional limiter without nil
// checks at every call site.
type Limiter struct {
	bucket *rate.Limiter
}

// PerMinute creates a Limiter allowing n calls per minute with a burst of
// one: calls beyond the first always wait their turn. Non-positive n
// returns a nil Limiter, which disables pacing.
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return nil
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(float64(n)/60.0), 1),
	}
}

// Wait blocks until the next call is allowed or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Allow reports whether a call may proceed immediately, consuming a token
// if so. Used where blocking is not an option.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.bucket.Allow()
}
