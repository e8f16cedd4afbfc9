// Package retry reruns failing calls with exponential backoff. The caller
// classifies each error: permanent errors abort immediately, transient ones
// back off and retry, rate limits wait out a longer delay before retrying.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Action is the verdict of a Classify function for one error.
type Action int

const (
	// Stop marks the error permanent; no further attempts are made.
	Stop Action = iota
	// Retry marks the error transient; the normal backoff applies.
	Retry
	// After marks a rate limit; the longer RateLimitBackoff applies.
	After
)

type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action

type Operation[T any] func() (T, error)

type VoidOperation func() error

// Do runs op until it succeeds, is classified permanent, or the attempt
// budget runs out. Backoff doubles between attempts and the wait is
// interruptible through ctx.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if action == After {
			backoff = p.RateLimitBackoff
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

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, p Policy, classify Classify, op VoidOperation) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// PermanentError wraps an error the classifier ruled out of retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
