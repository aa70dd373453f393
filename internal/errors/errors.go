// Package errors provides a lightweight structured error type (TrackerError)
// for category-based classification in the HTTP API and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a tracker error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Backend errors
	CategoryStore     ErrorCategory = "store"
	CategoryHistory   ErrorCategory = "history"
	CategoryTransport ErrorCategory = "transport"

	// Runtime and infrastructure errors
	CategoryScheduler ErrorCategory = "scheduler"
	CategoryDaemon    ErrorCategory = "daemon"
	CategoryInternal  ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"
)

// TrackerError is a structured error with category, retryability, and context
type TrackerError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for TrackerError
type ContextFields map[string]any

// Error implements the error interface
func (e *TrackerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *TrackerError) WithContext(key string, value any) *TrackerError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new TrackerError
func New(category ErrorCategory, severity ErrorSeverity, message string) *TrackerError {
	return &TrackerError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new TrackerError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *TrackerError {
	return &TrackerError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable TrackerError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *TrackerError {
	e := Wrap(err, category, severity, message)
	e.Retryable = true
	return e
}

// As extracts the outermost TrackerError from an error chain.
func As(err error) (*TrackerError, bool) {
	var te *TrackerError
	if stdErrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if te, ok := As(err); ok {
		return te.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if te, ok := As(err); ok {
		return te.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a TrackerError
func GetCategory(err error) ErrorCategory {
	if te, ok := As(err); ok {
		return te.Category
	}
	return CategoryInternal
}
