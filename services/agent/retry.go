// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy governs how upstream calls are reattempted on transient
// failures. Delays double per attempt and are clamped to [MinDelay, MaxDelay].
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// MinDelay is the floor applied to every computed delay.
	MinDelay time.Duration
	// MaxDelay is the ceiling applied to every computed delay.
	MaxDelay time.Duration
	// Retryable decides whether a failure is worth another attempt.
	// Defaults to IsTransient when nil.
	Retryable func(error) bool
	// OnRetry is called before each sleep with the upcoming attempt number
	// (2-based) and the error that triggered the retry. Optional.
	OnRetry func(op string, attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy matches the upstream-call budget used across the
// pipeline: three attempts with exponential backoff between two and ten
// seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MinDelay:    2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// delay computes the backoff before the given attempt (2-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 2)
	if d < p.MinDelay {
		d = p.MinDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails permanently, or the attempt budget is
// spent. Sleeps are interruptible: a cancelled context aborts immediately and
// no attempt runs after cancellation.
//
// A permanent (non-retryable) failure is returned as-is. A transient failure
// that survives every attempt is wrapped in ExhaustedError.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			d := p.delay(attempt)
			slog.Warn("Retrying upstream call",
				"op", op,
				"attempt", attempt,
				"delay", d,
				"error", lastErr,
			)
			if p.OnRetry != nil {
				p.OnRetry(op, attempt, d, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return &ExhaustedError{Op: op, Attempts: p.MaxAttempts, Err: lastErr}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p RetryPolicy, op string,
	fn func(ctx context.Context) (T, error)) (T, error) {

	var result T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}
