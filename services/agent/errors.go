// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError is implemented by errors that represent a temporary upstream
// condition worth retrying. llm.APIError implements it.
type TransientError interface {
	error
	Transient() bool
}

// IsTransient classifies an error as retryable.
//
// Transient: errors implementing TransientError and reporting true, network
// timeouts, and deadline expiry. Context cancellation is never transient; a
// caller that went away must not trigger retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var transient TransientError
	if errors.As(err, &transient) {
		return transient.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// ExhaustedError reports that an upstream operation kept failing transiently
// until the retry budget was spent. It wraps the last attempt's error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err is a retry-budget exhaustion.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
