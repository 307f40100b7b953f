package delivery

import (
	"sync"
	"time"
)

// Breaker counts consecutive delivery failures across all recipients. After
// threshold failures it refuses every call until cooldown has elapsed.
// Once the cooldown expires the next call is let through; if that call fails
// the breaker opens again immediately since the streak was never reset.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
	open      bool
	now       func() time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return NewBreakerWithClock(threshold, cooldown, time.Now)
}

func NewBreakerWithClock(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: now}
}

// Allow returns nil when a call may proceed, or a *CircuitOpenError with the
// remaining wait.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	elapsed := b.now().Sub(b.openedAt)
	if elapsed >= b.cooldown {
		b.open = false
		return nil
	}
	return &CircuitOpenError{Remaining: b.cooldown - elapsed}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.now()
	}
}

func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) Open() bool {
	return b.Allow() != nil
}
