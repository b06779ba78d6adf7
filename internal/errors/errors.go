package errors

import (
	"fmt"
)

// SentryError is the structured error type for FileSentry.
// It provides context for error handling, logging, and user presentation.
type SentryError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_PATH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *SentryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SentryError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SentryError.
func (e *SentryError) Is(target error) bool {
	if t, ok := target.(*SentryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SentryError) WithDetail(key, value string) *SentryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SentryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SentryError {
	return &SentryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SentryError from an existing error.
// The error's message becomes the SentryError message.
func Wrap(code string, err error) *SentryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InvalidPath creates a path validation error.
func InvalidPath(message string, cause error) *SentryError {
	return New(ErrCodeInvalidPath, message, cause)
}

// WatcherClosed creates a disposed-watcher error.
func WatcherClosed(operation string) *SentryError {
	return New(ErrCodeWatcherClosed, "watcher is closed", nil).
		WithDetail("operation", operation)
}

// WatchError creates a watch handle I/O error.
func WatchError(message string, cause error) *SentryError {
	return New(ErrCodeWatchCreate, message, cause)
}

// WatchOverflow creates a native event overflow error. Raised when the
// backend reports a failure that may have dropped events.
func WatchOverflow(cause error) *SentryError {
	return New(ErrCodeWatchOverflow, "native watch failure, events may have been dropped", cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SentryError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// JournalError creates an event journal error.
func JournalError(message string, cause error) *SentryError {
	return New(ErrCodeJournal, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SentryError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SentryError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SentryError); ok {
		return se.Retryable
	}
	return false
}

// GetCode extracts the error code from a SentryError.
// Returns empty string if not a SentryError.
func GetCode(err error) string {
	if se, ok := err.(*SentryError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SentryError.
// Returns empty string if not a SentryError.
func GetCategory(err error) Category {
	if se, ok := err.(*SentryError); ok {
		return se.Category
	}
	return ""
}
