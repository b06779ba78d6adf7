package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := err.(*SentryError)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))

	if len(se.Details) > 0 {
		for key, value := range se.Details {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", key, value))
		}
	}

	sb.WriteString(fmt.Sprintf("[%s]", se.Code))

	return sb.String()
}

// FormatForLog formats an error for structured log fields.
// Returns the code and root-cause message suitable for slog attributes.
func FormatForLog(err error) (code string, message string) {
	if err == nil {
		return "", ""
	}

	se, ok := err.(*SentryError)
	if !ok {
		return ErrCodeInternal, err.Error()
	}

	message = se.Message
	if se.Cause != nil {
		message = fmt.Sprintf("%s: %v", se.Message, se.Cause)
	}
	return se.Code, message
}
