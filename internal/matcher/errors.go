package matcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory is the normalized matcher failure taxonomy.
type ErrorCategory string

const (
	// ErrorTimeout indicates the matcher took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorProviderOutage indicates the matcher could not be reached or the
	// circuit breaker is open
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorBadStatus indicates a non-200 response
	ErrorBadStatus ErrorCategory = "bad_status"

	// ErrorBadData indicates a response body that could not be decoded
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorInternal indicates a failure on our side (encoding, request building)
	ErrorInternal ErrorCategory = "internal"
)

// MatcherError wraps matcher failures with normalized categorization.
type MatcherError struct {
	Category   ErrorCategory
	Dataset    string
	Message    string
	Underlying error
	Retryable  bool // Whether this error is worth retrying
	StatusCode int  // HTTP status when the matcher answered, else 0
}

// Error implements the error interface
func (e *MatcherError) Error() string {
	target := e.Dataset
	if target == "" {
		target = "readyz"
	}
	if e.Underlying != nil {
		return fmt.Sprintf("matcher %s [%s]: %s: %v", target, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("matcher %s [%s]: %s", target, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *MatcherError) Unwrap() error {
	return e.Underlying
}

// NewMatcherError creates a normalized matcher error. Timeouts and outages
// are retryable.
func NewMatcherError(category ErrorCategory, dataset, message string, underlying error) *MatcherError {
	return &MatcherError{
		Category:   category,
		Dataset:    dataset,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorProviderOutage,
	}
}

// newStatusError classifies a non-200 answer. 5xx and 429 are transient.
func newStatusError(dataset string, status int, body string) *MatcherError {
	e := NewMatcherError(ErrorBadStatus, dataset, fmt.Sprintf("status %d: %s", status, body), nil)
	e.StatusCode = status
	e.Retryable = status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	return e
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var me *MatcherError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error
func CategoryOf(err error) ErrorCategory {
	var me *MatcherError
	if errors.As(err, &me) {
		return me.Category
	}
	return ErrorInternal
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var me *MatcherError
	if errors.As(err, &me) {
		return me.StatusCode
	}
	return 0
}
