package ai

import (
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFiveFailures(t *testing.T) {
	b := NewCircuitBreaker()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		if !b.Allow() {
			t.Fatalf("breaker should stay closed before the 5th failure, failure #%d", i+1)
		}
	}
	b.RecordFailure() // 5th failure
	if b.Allow() {
		t.Error("expected breaker to open after 5 consecutive failures")
	}
}

func TestCircuitBreakerClosesAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if b.Allow() {
		t.Fatal("expected breaker open immediately after 5th failure")
	}

	clock = clock.Add(5*time.Minute + time.Second)
	if !b.Allow() {
		t.Error("expected breaker to close after the cooldown window elapses")
	}
}

func TestCircuitBreakerSuccessResetsStreak(t *testing.T) {
	b := NewCircuitBreaker()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	if !b.Allow() {
		t.Error("expected breaker to stay closed: success should have reset the streak")
	}
}
