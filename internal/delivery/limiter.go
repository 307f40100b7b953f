package delivery

import (
	"context"
	"sync"
	"time"
)

// Limiter caps calls per sliding window. Wait throttles instead of rejecting:
// once the cap is reached it sleeps until the oldest call leaves the window.
type Limiter struct {
	max    int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLimiter(maxPerMinute int) *Limiter {
	return NewLimiterWithClock(maxPerMinute, time.Minute, time.Now, sleepCtx)
}

func NewLimiterWithClock(max int, window time.Duration, now func() time.Time, sleep func(context.Context, time.Duration) error) *Limiter {
	if max <= 0 {
		max = 20
	}
	return &Limiter{
		max:    max,
		window: window,
		calls:  make([]time.Time, 0, max),
		now:    now,
		sleep:  sleep,
	}
}

// Wait records a call, blocking first if the window is full.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve records the call and returns 0, or returns how long to wait.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.expire(now)

	if len(l.calls) < l.max {
		l.calls = append(l.calls, now)
		return 0
	}
	wait := l.calls[0].Add(l.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

// expire drops timestamps outside the window. Must be called with mu held.
func (l *Limiter) expire(now time.Time) {
	cutoff := now.Add(-l.window)
	n := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			break
		}
		n++
	}
	l.calls = l.calls[n:]
}

// InWindow returns the number of calls currently counted.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.now())
	return len(l.calls)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
