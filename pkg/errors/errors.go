package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures at component boundaries
type ErrorType string

const (
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeAuth     ErrorType = "auth"
	ErrorTypeParsing  ErrorType = "parsing"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeMetadata ErrorType = "metadata"
	ErrorTypeDownload ErrorType = "download"
	ErrorTypePublish  ErrorType = "publish"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error carries an error type alongside a human-readable message
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates an Error of the given type
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
	}
}

// GetType extracts the error type from an error chain, ErrorTypeUnknown
// for plain errors
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether the error chain carries the given type
func IsType(err error, t ErrorType) bool {
	return GetType(err) == t
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient
// condition worth retrying within the same request. Item-level failures are
// never retried: once an inbox item is marked processed it stays processed.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
