package githubapp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(minDelay time.Duration) *githubRateLimiter {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRateLimiter(log, minDelay).(*githubRateLimiter)
}

// limiterState reads the budget a limiter currently tracks
func limiterState(l RateLimiter) (int, time.Time) {
	r := l.(*githubRateLimiter)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime
}

func TestRateLimiterRejectsWhenExhausted(t *testing.T) {
	limiter := newTestLimiter(0)
	limiter.UpdateLimit(reserveCalls, time.Now().Add(30*time.Minute))

	start := time.Now()
	err := limiter.Wait(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	limiter := newTestLimiter(0)
	limiter.UpdateLimit(0, time.Now().Add(-time.Minute))

	require.NoError(t, limiter.Wait(context.Background()))

	remaining, reset := limiterState(limiter)
	assert.Equal(t, 4999, remaining)
	assert.True(t, reset.After(time.Now()))
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	limiter := newTestLimiter(50 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	limiter := newTestLimiter(time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
