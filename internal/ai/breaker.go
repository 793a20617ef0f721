package ai

import (
	"sync"
	"time"
)

// CircuitBreaker is a mutex-guarded consecutive-failure cap
// with a cooldown clock: after 5 consecutive failures it opens for a
// 5-minute cooldown, during which calls should be short-circuited to a
// fallback insight instead of reaching the provider.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
	maxFailures         int
	cooldown            time.Duration
	now                 func() time.Time
}

// NewCircuitBreaker builds a breaker with the default 5-failure /
// 5-minute cooldown policy.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: 5,
		cooldown:    5 * time.Minute,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed to the provider right now.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().After(b.openUntil)
}

// RecordSuccess resets the failure streak, closing the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.openUntil = time.Time{}
}

// RecordFailure increments the failure streak, opening the breaker for
// the cooldown window once the threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.maxFailures {
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// IsOpen reports whether the breaker is currently short-circuiting calls.
func (b *CircuitBreaker) IsOpen() bool {
	return !b.Allow()
}
