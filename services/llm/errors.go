package llm

import (
	"fmt"
	"net/http"
)

// APIError wraps a failed call to an LLM backend with enough structure for
// callers to decide whether a retry is worthwhile.
type APIError struct {
	// Backend identifies which client produced the error ("ollama", "openai").
	Backend string
	// StatusCode is the upstream HTTP status, or 0 for transport failures.
	StatusCode int
	// Message is the upstream error body, truncated. Never shown to end users.
	Message string
	// Err is the underlying error, if any.
	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Backend, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Transient reports whether the failure class is worth retrying. Transport
// failures (no status code) and overload/gateway statuses are transient;
// client errors such as bad requests or auth failures are not.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case 0:
		return true
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// truncateBody bounds upstream error bodies before they reach logs.
func truncateBody(body []byte) string {
	const maxErrBody = 512
	if len(body) > maxErrBody {
		return string(body[:maxErrBody]) + "..."
	}
	return string(body)
}
