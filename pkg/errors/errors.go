package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"visitstats/internal/domain"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewInvalidResolutionError wraps domain.ErrInvalidResolution for the given input
func NewInvalidResolutionError(resolution string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    "resolution must be one of hour, day, month, year",
		StatusCode: http.StatusBadRequest,
		Internal:   fmt.Errorf("%w: %q", domain.ErrInvalidResolution, resolution),
		Details:    map[string]interface{}{"resolution": resolution},
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewStorageError creates a new storage error
func NewStorageError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Internal:   internal,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// IsType reports whether err is, or wraps, an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsStorage reports whether err is a storage failure
func IsStorage(err error) bool {
	return IsType(err, ErrorTypeStorage)
}

// From converts any error into an AppError, keeping existing ones as they are
func From(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case stderrors.Is(err, domain.ErrInvalidResolution):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    "resolution must be one of hour, day, month, year",
			StatusCode: http.StatusBadRequest,
			Internal:   err,
		}
	case stderrors.Is(err, domain.ErrInvalidTime):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    "time must be YYYY-MM-DD, YYYY-MM-DDTHH or RFC 3339",
			StatusCode: http.StatusBadRequest,
			Internal:   err,
		}
	case stderrors.Is(err, domain.ErrEmptyClientID):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    "client id must not be empty",
			StatusCode: http.StatusBadRequest,
			Internal:   err,
		}
	}
	return NewInternalError("unexpected error", err)
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
