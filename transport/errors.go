package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches every *HTTPError with status 401. The session has
	// already been cleared when it is returned.
	ErrUnauthorized = errors.New("transport: unauthorized")

	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("transport: invalid configuration")
)

// NetworkError is returned when the backend could not be reached.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for any non-2xx response. Body is the raw response
// body, or "" when it could not be read.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: %s %s: HTTP %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("transport: %s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Is reports 401 responses as ErrUnauthorized.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Retryable reports whether repeating the request may succeed. Client errors
// (4xx) are final.
func (e *HTTPError) Retryable() bool {
	return e.Status >= 500
}

// DecodeError is returned when a successful response is not valid JSON.
type DecodeError struct {
	Method string
	URL    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transport: decode %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
