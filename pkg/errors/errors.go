package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeBrowser      ErrorType = "browser"
	ErrorTypePageLoad     ErrorType = "page_load"
	ErrorTypeNoCandidates ErrorType = "no_candidates"
	ErrorTypeNavigation   ErrorType = "navigation"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeCancelled    ErrorType = "cancelled"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error represents a per-query error with type and stage information
type Error struct {
	Type    ErrorType
	Stage   string
	Message string
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error for the given stage
func New(errorType ErrorType, stage, message string) *Error {
	return &Error{Type: errorType, Stage: stage, Message: message}
}

// Newf creates a typed error with a formatted message
func Newf(errorType ErrorType, stage, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Sentinel renders the error as the legacy output-file marker.
// Record files carry string markers with an "ERROR:" prefix; the typed
// error keeps the same information available to callers that want
// structure instead of strings.
func (e *Error) Sentinel() string {
	switch e.Type {
	case ErrorTypeNoCandidates:
		return "ERROR: no suitable link found"
	case ErrorTypePageLoad:
		return fmt.Sprintf("ERROR: could not load search page: %s", e.Message)
	default:
		return fmt.Sprintf("ERROR: %s", e.Message)
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeBrowser, ErrorTypePageLoad:
		return true
	case ErrorTypeNoCandidates, ErrorTypeNavigation, ErrorTypeParsing, ErrorTypeCancelled:
		return false
	default:
		return false
	}
}
