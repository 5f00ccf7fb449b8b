package errors

import (
	"fmt"
	"net/http"
)

// DispatchErrorType categorizes different kinds of dispatch failures
type DispatchErrorType string

const (
	ValidationError  DispatchErrorType = "validation"
	ExecutionError   DispatchErrorType = "execution"
	NotFoundError    DispatchErrorType = "not_found"
	UnavailableError DispatchErrorType = "unavailable"
	InternalError    DispatchErrorType = "internal"
)

// DispatchError provides structured error information with HTTP status suggestions
type DispatchError struct {
	Type    DispatchErrorType `json:"type"`
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Details map[string]any    `json:"details,omitempty"`
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Constructor functions for common error types
func NewValidationError(message string, details ...map[string]any) *DispatchError {
	var d map[string]any
	if len(details) > 0 {
		d = details[0]
	}
	return &DispatchError{
		Type:    ValidationError,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: d,
	}
}

func NewExecutionError(message string, details ...map[string]any) *DispatchError {
	var d map[string]any
	if len(details) > 0 {
		d = details[0]
	}
	return &DispatchError{
		Type:    ExecutionError,
		Message: message,
		Code:    http.StatusUnprocessableEntity,
		Details: d,
	}
}

func NewNotFoundError(message string) *DispatchError {
	return &DispatchError{
		Type:    NotFoundError,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewUnavailableError covers broker hand-off failures: the request was valid
// but the queue could not accept the publish.
func NewUnavailableError(message string, details ...map[string]any) *DispatchError {
	var d map[string]any
	if len(details) > 0 {
		d = details[0]
	}
	return &DispatchError{
		Type:    UnavailableError,
		Message: message,
		Code:    http.StatusServiceUnavailable,
		Details: d,
	}
}

func NewInternalError(message string) *DispatchError {
	return &DispatchError{
		Type:    InternalError,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// IsDispatchError checks if an error is a DispatchError and returns it
func IsDispatchError(err error) (*DispatchError, bool) {
	if dispatchErr, ok := err.(*DispatchError); ok {
		return dispatchErr, true
	}
	return nil, false
}
