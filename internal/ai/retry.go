package ai

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// MaxRetryAttempts is the retry ceiling: 3 attempts total.
const MaxRetryAttempts = 3

// RetryBackoff is an exponential backoff: delay(n) = 2^n + uniform(0,1)
// seconds, n starting at 1.
func RetryBackoff(n int) time.Duration {
	jitter := rand.Float64()
	seconds := math.Pow(2, float64(n)) + jitter
	return time.Duration(seconds * float64(time.Second))
}

// WithRetry calls fn up to MaxRetryAttempts times, sleeping RetryBackoff(n)
// between attempts, and returns the first success or the last error.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= MaxRetryAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt == MaxRetryAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryBackoff(attempt)):
			}
			continue
		}
		return nil
	}
	return lastErr
}
