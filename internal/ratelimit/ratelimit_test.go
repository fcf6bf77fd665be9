package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitEnforcesMinimumSpacing(t *testing.T) {
	limiter := NewSimpleLimiter(20*time.Millisecond, 20*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWaitReturnsOnCancelledContext(t *testing.T) {
	limiter := NewSimpleLimiter(time.Minute, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateDelayStaysInRange(t *testing.T) {
	limiter := NewSimpleLimiter(10*time.Millisecond, 50*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := limiter.calculateDelay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 50*time.Millisecond)
	}
}

func TestMaxBelowMinIsClamped(t *testing.T) {
	limiter := NewSimpleLimiter(30*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, limiter.calculateDelay())
}
