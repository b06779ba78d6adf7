// Package errors provides structured error handling for FileSentry.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (watch handles, journal)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates watch handle and journal I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeWatchCreate   = "ERR_201_WATCH_CREATE"
	ErrCodeWatchOverflow = "ERR_202_WATCH_OVERFLOW"
	ErrCodeJournal       = "ERR_203_JOURNAL"
	ErrCodeJournalLocked = "ERR_204_JOURNAL_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidPath = "ERR_401_INVALID_PATH"
	ErrCodeEmptyPath   = "ERR_402_EMPTY_PATH"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeWatcherClosed = "ERR_502_WATCHER_CLOSED"
	ErrCodeRebuildFailed = "ERR_503_REBUILD_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit of the numeric portion
	// (e.g., '1' from "ERR_102_CONFIG_INVALID").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeWatcherClosed:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Watch handle creation can fail transiently (fd pressure, inotify
// instance limits) and is worth retrying with backoff.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeWatchCreate, ErrCodeWatchOverflow, ErrCodeJournalLocked:
		return true
	default:
		return false
	}
}
