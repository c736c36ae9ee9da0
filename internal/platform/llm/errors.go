package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates no API key is set. It is returned before any
	// network call is made.
	ErrNotConfigured = errors.New("llm provider is not configured: OPENAI_API_KEY is missing")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the response could not be decoded into the
	// expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRefused indicates the model declined to answer.
	ErrRefused = errors.New("llm refused the request")
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func errorCode(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "NOT_CONFIGURED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	case errors.Is(err, ErrRefused):
		return "REFUSED"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("HTTP_%d", apiErr.StatusCode)
	default:
		return "UNKNOWN"
	}
}
