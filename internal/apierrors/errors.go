package apierrors

import (
	"errors"
	"net/http"
)

// Machine-readable error codes returned to API clients.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeCallUnavailable = "CALL_UNAVAILABLE"
	CodeInternalError   = "INTERNAL_ERROR"
)

// APIError pairs an HTTP status with a sanitized client-facing message.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// New creates an APIError with the given status, code and message.
func New(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// MapError converts an arbitrary error into an APIError. Unrecognized errors
// become sanitized 500s so internal details never reach the client.
func MapError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
	}
}
