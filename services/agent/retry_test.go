// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northshore-ai/breakwater/services/llm"
)

// testPolicy keeps delays tiny so retry tests stay fast.
func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MinDelay:    time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func transientErr(msg string) error {
	return &llm.APIError{Backend: "test", StatusCode: 503, Message: msg}
}

func permanentErr(msg string) error {
	return &llm.APIError{Backend: "test", StatusCode: 400, Message: msg}
}

func TestRetryDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDo_RecoversFromTransient(t *testing.T) {
	policy := testPolicy()
	var retriedOps []string
	policy.OnRetry = func(op string, attempt int, delay time.Duration, err error) {
		retriedOps = append(retriedOps, op)
	}

	calls := 0
	err := policy.Do(context.Background(), "judge", func(context.Context) error {
		calls++
		if calls < 3 {
			return transientErr("overloaded")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"judge", "judge"}, retriedOps)
}

func TestRetryDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "judge", func(context.Context) error {
		calls++
		return transientErr("still down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsExhausted(err))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "judge", exhausted.Op)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestRetryDo_PermanentFailureNotRetried(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func(context.Context) error {
		calls++
		return permanentErr("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsExhausted(err))
}

func TestRetryDo_CancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	policy := testPolicy()
	policy.MinDelay = time.Minute
	policy.MaxDelay = time.Minute

	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.Do(ctx, "op", func(context.Context) error {
			calls++
			return transientErr("down")
		})
	}()

	// Let the first attempt fail, then cancel during the backoff sleep.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls, "no attempt may run after cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestRetryDelay_Clamped(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MinDelay:    2 * time.Second,
		MaxDelay:    10 * time.Second,
	}

	// Attempt 2 backs off base*1 clamped up to the floor; later attempts
	// double until the ceiling.
	assert.Equal(t, 2*time.Second, policy.delay(2))
	assert.Equal(t, 2*time.Second, policy.delay(3))
	assert.Equal(t, 4*time.Second, policy.delay(4))
	assert.Equal(t, 8*time.Second, policy.delay(5))
	assert.Equal(t, 10*time.Second, policy.delay(6))
}

func TestDoValue(t *testing.T) {
	calls := 0
	result, err := DoValue(context.Background(), testPolicy(), "op",
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", transientErr("hiccup")
			}
			return "answer", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "answer", result)
	assert.Equal(t, 2, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"transient api error", transientErr("x"), true},
		{"permanent api error", permanentErr("x"), false},
		{"wrapped transient", fmt.Errorf("call failed: %w", transientErr("x")), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
