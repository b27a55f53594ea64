package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	tests := []struct {
		name             string
		failUntilN       int
		maxRetries       int
		expectedAttempts int
		shouldSucceed    bool
	}{
		{name: "第二次成功", failUntilN: 2, maxRetries: 3, expectedAttempts: 2, shouldSucceed: true},
		{name: "最后一次重试成功", failUntilN: 4, maxRetries: 3, expectedAttempts: 4, shouldSucceed: true},
		{name: "全部失败", failUntilN: 10, maxRetries: 3, expectedAttempts: 4, shouldSucceed: false},
		{name: "不重试", failUntilN: 10, maxRetries: 0, expectedAttempts: 1, shouldSucceed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0

			err := Do(context.Background(), func() error {
				attempts++
				if attempts < tt.failUntilN {
					return errors.New("temporary failure")
				}
				return nil
			}, WithMaxRetries(tt.maxRetries), WithInitialDelay(time.Millisecond))

			if tt.shouldSucceed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tt.expectedAttempts, attempts)
		})
	}
}

func TestDo_RetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	attempts := 0

	err := Do(context.Background(), func() error {
		attempts++
		return permanent
	},
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return !errors.Is(err, permanent) }),
	)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDo_OnRetryCalledPerBackoff(t *testing.T) {
	var delays []time.Duration

	_ = Do(context.Background(), func() error {
		return errors.New("boom")
	},
		WithMaxRetries(3),
		WithInitialDelay(time.Millisecond),
		WithMultiplier(2),
		WithOnRetry(func(attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		}),
	)

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestDo_MaxDelayCapsBackoff(t *testing.T) {
	var delays []time.Duration

	_ = Do(context.Background(), func() error {
		return errors.New("boom")
	},
		WithMaxRetries(3),
		WithInitialDelay(time.Millisecond),
		WithMultiplier(10),
		WithMaxDelay(5*time.Millisecond),
		WithOnRetry(func(attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		}),
	)

	assert.Equal(t, []time.Duration{time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, delays)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func() error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return errors.New("fail")
	}, WithInitialDelay(time.Second))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_ErrorWrapping(t *testing.T) {
	sentinel := errors.New("sentinel")

	err := Do(context.Background(), func() error {
		return sentinel
	}, WithMaxRetries(1), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "retry failed after 2 attempts")
}

func TestDo_NilFunction(t *testing.T) {
	assert.Error(t, Do(context.Background(), nil))
}

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{name: "第一次", attempt: 1, expected: time.Second},
		{name: "第二次", attempt: 2, expected: 2 * time.Second},
		{name: "第三次", attempt: 3, expected: 4 * time.Second},
		{name: "封顶", attempt: 10, expected: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateDelay(tt.attempt, time.Second, 30*time.Second, 2.0))
		})
	}
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestAppError(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapError(ErrCodeDatabase, "upsert failed", inner)

	assert.Equal(t, "[DATABASE_ERROR] upsert failed: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ErrCodeDatabase, CodeOf(err))
	assert.Equal(t, "[NOT_FOUND] missing", NewError(ErrCodeNotFound, "missing").Error())
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}
