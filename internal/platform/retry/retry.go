// Package retry runs an operation until it succeeds, the error is
// classified as permanent, or the attempt budget runs out. Backoff doubles
// between attempts; rate-limited errors switch to a longer base delay.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Action tells Do how to treat a failed attempt.
type Action int

const (
	Stop  Action = iota // permanent, abort immediately
	Retry               // transient, back off and try again
	After               // rate limited, back off longer
)

type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration

	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action

// Do runs op up to p.MaxAttempts times and returns its first successful
// result. Waits between attempts respect ctx.
func Do[T any](ctx context.Context, p Policy, classify Classify, op func() (T, error)) (T, error) {
	var zero T
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled during retry: %w", err)
		}

		val, err := op()
		if err == nil {
			return val, nil
		}

		switch classify(err) {
		case Stop:
			return zero, &PermanentError{Err: err}
		case After:
			backoff = p.RateLimitBackoff
		}

		if attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// PermanentError wraps an error classified as Stop so the caller can tell
// "gave up" from "never worth trying again".
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
