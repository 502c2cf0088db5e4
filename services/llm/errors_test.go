package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorTransient(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"transport failure", 0, true},
		{"rate limited", 429, true},
		{"internal error", 500, true},
		{"bad gateway", 502, true},
		{"unavailable", 503, true},
		{"gateway timeout", 504, true},
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"not found", 404, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := &APIError{Backend: "test", StatusCode: tc.statusCode, Message: "x"}
			assert.Equal(t, tc.want, err.Transient())
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := &APIError{Backend: "ollama", Message: inner.Error(), Err: inner}
	assert.ErrorIs(t, err, inner)

	var apiErr *APIError
	wrapped := fmt.Errorf("chat failed: %w", err)
	assert.True(t, errors.As(wrapped, &apiErr))
}

func TestAPIErrorMessage(t *testing.T) {
	withStatus := &APIError{Backend: "openai", StatusCode: 429, Message: "slow down"}
	assert.Contains(t, withStatus.Error(), "429")
	assert.Contains(t, withStatus.Error(), "openai")

	noStatus := &APIError{Backend: "ollama", Message: "refused"}
	assert.NotContains(t, noStatus.Error(), "status")
}

func TestTruncateBody(t *testing.T) {
	short := []byte("short body")
	assert.Equal(t, "short body", truncateBody(short))

	long := []byte(strings.Repeat("x", 2048))
	truncated := truncateBody(long)
	assert.Len(t, truncated, 512+len("..."))
}
