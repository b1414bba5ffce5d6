// Package resilience implements the role-level retry policy that wraps
// every individual model call. Transient network failures and
// malformed responses are retried with exponential backoff; explicit
// provider errors and precondition violations are not.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
)

// Defaults for the role-level policy: three attempts total, waiting
// base*2^attempt between failures.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 3 * time.Second
)

// RetryPolicy wraps an operation in bounded exponential backoff.
type RetryPolicy struct {
	maxAttempts uint64
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewRetryPolicy builds a policy. Non-positive arguments fall back to
// the defaults.
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &RetryPolicy{
		maxAttempts: uint64(maxAttempts),
		baseDelay:   baseDelay,
		logger:      logger.Named("retry"),
	}
}

// Do runs op up to the attempt budget. Only transient and malformed
// failures trigger another attempt; anything else aborts immediately.
// The error returned after the final attempt is the operation's own.
func (p *RetryPolicy) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.baseDelay << (p.maxAttempts - 1)
	b.MaxElapsedTime = 0 // the attempt budget bounds us, not wall-clock

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		p.logger.Warn("attempt failed, backing off",
			zap.String("op", label),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.WithContext(b, ctx), p.maxAttempts-1)
	return backoff.Retry(wrapped, policy)
}

// retryable reports whether the role-level policy may re-attempt after
// err. Malformed responses are retried here because a fresh generation
// frequently parses; the caller degrades to an absent role entry only
// after the budget is spent.
func retryable(err error) bool {
	return schemas.IsTransient(err) || schemas.IsMalformed(err)
}
