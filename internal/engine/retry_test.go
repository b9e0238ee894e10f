package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{errors.New("connection refused"), CategoryNetwork},
		{errors.New("dial tcp: network is unreachable"), CategoryNetwork},
		{errors.New("request timed out"), CategoryTimeout},
		{errors.New("connection timed out"), CategoryTimeout},
		{context.DeadlineExceeded, CategoryTimeout},
		{fmt.Errorf("send email: %w", context.DeadlineExceeded), CategoryTimeout},
		{errors.New("401 unauthorized"), CategoryAuthentication},
		{errors.New("invalid credentials"), CategoryAuthentication},
		{errors.New("403 forbidden"), CategoryPermission},
		{errors.New("access denied for user"), CategoryPermission},
		{errors.New("validation failed: email missing"), CategoryValidation},
		{errors.New("invalid phone number"), CategoryValidation},
		{errors.New("api rate limit exceeded"), CategoryAPI},
		{errors.New("503 service unavailable"), CategoryAPI},
		{errors.New("something odd happened"), CategoryUnknown},
		{nil, CategoryUnknown},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCategoryRetryable(t *testing.T) {
	assert.True(t, CategoryNetwork.Retryable())
	assert.True(t, CategoryTimeout.Retryable())
	assert.True(t, CategoryAuthentication.Retryable())
	assert.True(t, CategoryAPI.Retryable())
	assert.True(t, CategoryUnknown.Retryable())

	// Deterministic failures: the same call fails the same way.
	assert.False(t, CategoryPermission.Retryable())
	assert.False(t, CategoryValidation.Retryable())
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestWithRetryBound(t *testing.T) {
	attempts := 0
	_, cat, err := withRetry(context.Background(), fastRetry(3), "test", slog.Default(), func(context.Context) (ActionResult, error) {
		attempts++
		return ActionResult{}, errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts, "maxRetries=3 means 4 total attempts")
	assert.Equal(t, CategoryNetwork, cat)
}

func TestWithRetryNonRetryablePropagatesImmediately(t *testing.T) {
	attempts := 0
	_, cat, err := withRetry(context.Background(), fastRetry(3), "test", slog.Default(), func(context.Context) (ActionResult, error) {
		attempts++
		return ActionResult{}, errors.New("403 forbidden")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, CategoryPermission, cat)
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	res, _, err := withRetry(context.Background(), fastRetry(3), "test", slog.Default(), func(context.Context) (ActionResult, error) {
		attempts++
		if attempts < 3 {
			return ActionResult{}, errors.New("connection refused")
		}
		return ActionResult{Result: map[string]any{"ok": true}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, true, res.Result["ok"])
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Minute, BackoffFactor: 2, MaxDelay: time.Minute}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, _, err := withRetry(ctx, cfg, "test", slog.Default(), func(context.Context) (ActionResult, error) {
		attempts++
		return ActionResult{}, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation during backoff stops further attempts")
}
