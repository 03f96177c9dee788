package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrExhausted matches any *ExhaustedError via errors.Is.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy configures how an operation is retried.
type Policy struct {
	// Attempts is the maximum number of times the operation is invoked.
	// Values below 1 are treated as 1.
	Attempts int

	// Backoff is the wait before the second attempt. It doubles on every
	// further attempt. Zero disables waiting.
	Backoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
}

// DefaultPolicy returns a policy with 5 attempts, 1s initial backoff and 30s cap.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   5,
		Backoff:    time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// ExhaustedError is returned by Do when every attempt failed. Err is the
// failure of the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is reports ErrExhausted as matching.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Do invokes op until it succeeds or the policy's attempts are used up.
// Attempts run strictly one after another; attempt numbers start at 1.
// If ctx is done while waiting between attempts, Do returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.wait(ctx, attempt-1); err != nil {
				return zero, err
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Delay returns the jittered wait before retry number n (n >= 1).
func (p Policy) Delay(n int) time.Duration {
	if p.Backoff <= 0 || n < 1 {
		return 0
	}
	backoff := p.Backoff
	for i := 1; i < n; i++ {
		backoff *= 2
		if p.MaxBackoff > 0 && backoff >= p.MaxBackoff {
			backoff = p.MaxBackoff
			break
		}
	}
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	return time.Duration(float64(backoff) * (0.5 + rand.Float64()))
}

func (p Policy) wait(ctx context.Context, n int) error {
	d := p.Delay(n)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
