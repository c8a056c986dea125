package domain

import (
	"errors"
	"fmt"
	"time"
)

// AppError represents a standardized error response
type AppError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrStorage        = "STORAGE_ERROR"
	ErrViewFailed     = "VIEW_COMPUTATION_ERROR"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
)

// ErrSourceUnavailable is returned by sources whose backend cannot be reached
var ErrSourceUnavailable = errors.New("record source unavailable")

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAppError creates a new AppError with timestamp
func NewAppError(code, message, details, requestID string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode extracts the AppError code from err, or ErrInternalServer
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ErrValidation
	}
	return ErrInternalServer
}
