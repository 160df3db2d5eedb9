// Package apierrors provides severity-aware error types.
package apierrors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a structured error with context.
type Error struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	ResourceID  string   `json:"resource_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *Error) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("[%s] %s: %s (resource: %s)", e.Severity, e.Code, e.Message, e.ResourceID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// New creates a structured error.
func New(code, message string, severity Severity) *Error {
	return &Error{Code: code, Message: message, Severity: severity}
}

// Configf creates a fatal configuration error. Configuration problems are
// setup-time failures and are never recoverable per request.
func Configf(format string, args ...interface{}) *Error {
	return &Error{
		Code:     ErrCodeConfigInvalid,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityFatal,
	}
}

// NotFound creates a not-found error for a specific resource.
func NotFound(resourceID string) *Error {
	return &Error{
		Code:        ErrCodeNotFound,
		Message:     "access point not found",
		Severity:    SeverityError,
		ResourceID:  resourceID,
		Recoverable: true,
	}
}
