// ABOUTME: Tests for the shared retry policy
// ABOUTME: Verifies attempt counts, permanent errors and context cancellation
package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	p := retryPolicy{maxRetries: 3, retryDelay: time.Millisecond, timeout: time.Second}
	calls := 0
	err := p.do(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_GivesUp(t *testing.T) {
	p := retryPolicy{maxRetries: 2, retryDelay: time.Millisecond, timeout: time.Second}
	calls := 0
	err := p.do(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryPolicy_PermanentErrorStops(t *testing.T) {
	permanent := errors.New("permanent")
	p := retryPolicy{
		maxRetries: 5,
		retryDelay: time.Millisecond,
		timeout:    time.Second,
		permanent:  func(err error) bool { return errors.Is(err, permanent) },
	}
	calls := 0
	err := p.do(context.Background(), "test op", func(ctx context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retryPolicy{maxRetries: 5, retryDelay: time.Hour, timeout: time.Second}
	calls := 0
	err := p.do(ctx, "test op", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_AttemptTimeout(t *testing.T) {
	p := retryPolicy{maxRetries: 0, timeout: 10 * time.Millisecond}
	err := p.do(context.Background(), "slow op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	l := newLimiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
