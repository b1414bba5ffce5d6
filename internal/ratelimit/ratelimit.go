// Package ratelimit provides the token-bucket limiter that guards
// model-backend calls and the HTTP API. Budgets are expressed in
// tokens per minute to match provider quota language.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// DefaultTokensPerMinute mirrors the provider-side quota the service
// was tuned for.
const DefaultTokensPerMinute = 3000

// maxWait bounds how long Acquire will stall a caller before failing
// fast with a RateLimitError.
const maxWait = 30 * time.Second

// TokenBucket admits work against a per-minute token budget.
type TokenBucket struct {
	limiter *rate.Limiter
	perMin  int
}

// NewTokenBucket builds a bucket replenishing tokensPerMinute tokens
// per minute with a burst of one full minute's budget.
func NewTokenBucket(tokensPerMinute int) *TokenBucket {
	if tokensPerMinute <= 0 {
		tokensPerMinute = DefaultTokensPerMinute
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
		perMin:  tokensPerMinute,
	}
}

// Acquire blocks until tokens are available, the context is cancelled,
// or the required wait exceeds the fail-fast ceiling. An over-budget
// wait returns a RateLimitError rather than stalling the caller.
func (b *TokenBucket) Acquire(ctx context.Context, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	if tokens > b.perMin {
		tokens = b.perMin // a single oversized request must still be admissible
	}

	r := b.limiter.ReserveN(time.Now(), tokens)
	if !r.OK() {
		return &schemas.RateLimitError{Wait: maxWait}
	}
	delay := r.Delay()
	if delay > maxWait {
		r.Cancel()
		return &schemas.RateLimitError{Wait: delay}
	}
	if delay == 0 {
		return nil
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Allow reports whether n tokens are immediately available, consuming
// them if so. Used by the HTTP middleware where blocking is not an
// option.
func (b *TokenBucket) Allow(n int) bool {
	return b.limiter.AllowN(time.Now(), n)
}
