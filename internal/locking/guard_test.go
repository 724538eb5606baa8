package locking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/smallbiznis/stockwise/internal/config"
)

func TestNewGuardWithoutRedisIsDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	guard, err := NewGuard(lc, config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, guard)
	assert.False(t, guard.Enabled())
}

func TestNewGuardValidatesLimits(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	_, err := NewGuard(lc, config.Config{RedisAddr: "localhost:6379"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestDisabledGuardRunsCallbacks(t *testing.T) {
	var guard *Guard
	ctx := context.Background()

	called := false
	err := guard.WithOrderLock(ctx, "1", "2", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, guard.WithOrderLock(ctx, "1", "2", func() error { return boom }), boom)
	assert.NoError(t, guard.AllowSweep(ctx, "1"))
}

func TestPerMinuteLimit(t *testing.T) {
	l := perMinute(6, 3)
	assert.True(t, l.valid())
	assert.Equal(t, 10*time.Second, l.interval)
	assert.Equal(t, 30*time.Second, l.tolerance())

	assert.False(t, perMinute(0, 3).valid())
	assert.False(t, perMinute(6, 0).valid())
}

func TestRateLimitedErrorMatchesSentinel(t *testing.T) {
	var err error = &RateLimitedError{RetryAfter: 1500 * time.Millisecond}
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrBusy)

	var rl *RateLimitedError
	require.ErrorAs(t, fmt.Errorf("sweep: %w", err), &rl)
	assert.Equal(t, 1500*time.Millisecond, rl.RetryAfter)
}

func TestMutexRejectsMissingKey(t *testing.T) {
	m := newMutex(nil)
	_, err := m.acquire(context.Background(), "", time.Second)
	assert.Error(t, err)
	_, err = m.acquire(context.Background(), "k", 0)
	assert.Error(t, err)
}

func TestLimiterRejectsInvalidLimit(t *testing.T) {
	r := newRateLimiter(nil)
	_, _, err := r.take(context.Background(), "k", limit{})
	assert.Error(t, err)
}
