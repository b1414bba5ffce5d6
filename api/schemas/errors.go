package schemas

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetryBudgetExhausted marks the terminal session state after the
// last session-level retry fails. The session requires an explicit
// re-trigger to leave this state.
var ErrRetryBudgetExhausted = errors.New("analysis retry budget exhausted")

// PreconditionError rejects a request before dispatch (blank text,
// empty focus set). Never retried.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition violated: " + e.Reason
}

// TransientError wraps connection and timeout class failures talking
// to the model backend. Retried at both the role and session levels.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient backend failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// ProviderError is an explicit error reported by the model backend
// itself (a non-retryable status or an error payload). Surfaced
// immediately without retry.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return "provider error: " + e.Message
}

// MalformedResponseError reports sanitizer and parse exhaustion for a
// single role. The dispatcher recovers locally by leaving that role's
// entry absent.
type MalformedResponseError struct {
	Role Role
	Raw  string // truncated raw payload, for logging
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Role, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RateLimitError fails fast when the local token bucket cannot admit a
// request within a reasonable wait. Surfaced to callers as HTTP 429.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.Wait.Round(time.Second))
}

// IsTransient reports whether err belongs to the connection/timeout
// class that the retry layers are allowed to act on.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsMalformed reports whether err is a per-role parse exhaustion.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
