package common

import "errors"

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// NotFound builds a 404 AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: 404}
}

// BadRequest builds a 400 AppError wrapping the underlying cause.
func BadRequest(message string, err error) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: 400, Err: err}
}

// Conflict builds a 409 AppError. Used for retryable commit conflicts such
// as stock discovered insufficient at finalize time.
func Conflict(message string, err error) *AppError {
	return &AppError{Code: "CONFLICT", Message: message, HTTPStatus: 409, Err: err}
}
