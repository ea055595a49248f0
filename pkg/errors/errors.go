package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes a single invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Status  int          `json:"-"`
	Err     error        `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Common error constructors

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err)
}

// Validation creates a 400 error carrying field-level detail
func Validation(details []FieldError) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Message: "Input validation failed",
		Details: details,
		Status:  http.StatusBadRequest,
	}
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return NewAppError("FORBIDDEN", message, http.StatusForbidden, err)
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return NewAppError("CONFLICT", message, http.StatusConflict, err)
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return NewAppError("INTERNAL_ERROR", message, http.StatusInternalServerError, err)
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, err)
}

// Domain-specific errors

var (
	ErrUserNotFound   = NotFound("User not found", nil)
	ErrTaskNotFound   = NotFound("Task not found", nil)
	ErrRatingNotFound = NotFound("Rating not found", nil)

	ErrInvalidCredentials = Unauthorized("Invalid username or password", nil)
	ErrInvalidToken       = Unauthorized("Invalid or expired token", nil)

	ErrIdempotencyInProgress = &AppError{
		Code:    "IDEMPOTENCY_IN_PROGRESS",
		Message: "A request with this Idempotency-Key is still being processed",
		Status:  http.StatusConflict,
	}

	ErrRateLimitExceeded = &AppError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "Rate limit exceeded. Please try again later",
		Status:  http.StatusTooManyRequests,
	}
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	// Return generic internal error if not an AppError
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WithCause returns a copy of appErr carrying err as its cause
func WithCause(appErr *AppError, err error) *AppError {
	if appErr == nil {
		return nil
	}
	c := *appErr
	c.Err = err
	return &c
}
