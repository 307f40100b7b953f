package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_UnderLimitDoesNotSleep(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	var slept []time.Duration
	l := NewLimiterWithClock(20, time.Minute, clock.Now, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock.Advance(d)
		return nil
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Wait(context.Background()))
		clock.Advance(time.Second)
	}
	assert.Empty(t, slept)
	assert.Equal(t, 20, l.InWindow())
}

func TestLimiter_TwentyFirstCallBlocksUntilWindowAdmitsIt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &mockClock{now: start}
	var slept []time.Duration
	l := NewLimiterWithClock(20, time.Minute, clock.Now, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock.Advance(d)
		return nil
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	clock.Advance(10 * time.Second)

	require.NoError(t, l.Wait(context.Background()))

	require.Len(t, slept, 1)
	assert.Equal(t, 50*time.Second, slept[0])
	assert.Equal(t, start.Add(time.Minute), clock.Now())
	// the 21st call was admitted, not dropped
	assert.Equal(t, 1, l.InWindow())
}

func TestLimiter_WaitHonoursCancellation(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	l := NewLimiterWithClock(1, time.Minute, clock.Now, sleepCtx)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
