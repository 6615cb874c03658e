package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the error body returned by the query services.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the payload of an ErrorResponse.
type ErrorDetail struct {
	Code          string        `json:"code"`
	Message       string        `json:"message"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Inner         *ErrorDetail  `json:"innererror,omitempty"`
	Details       []ErrorDetail `json:"details,omitempty"`
}

// Innermost returns the most specific message in the error chain.
func (d *ErrorDetail) Innermost() string {
	msg := d.Message
	for inner := d.Inner; inner != nil; inner = inner.Inner {
		if inner.Message != "" {
			msg = inner.Message
		}
	}
	return msg
}

// APIError is a non-2xx response from a query service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API error %d", e.StatusCode)
	}
}

// ContextualError wraps a failure with the request that caused it.
// StatusCode is 0 when no response was received.
type ContextualError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *ContextualError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (%d): %s", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *ContextualError) Unwrap() error {
	return e.Err
}

func wrapContext(method, url string, err error) error {
	if err == nil {
		return nil
	}
	return &ContextualError{Method: method, URL: url, StatusCode: statusCode(err), Err: err}
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	return statusCode(err)
}

func statusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// parseRetryAfter accepts seconds or an HTTP date. Returns 0 if unparseable.
func parseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
