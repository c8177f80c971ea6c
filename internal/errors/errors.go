package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeMalformedPayload ErrorType = "malformed_payload"
	ErrorTypeBusy             ErrorType = "busy"
	ErrorTypeNotSubmittable   ErrorType = "not_submittable"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeInternal         ErrorType = "internal"
)

var (
	// ErrBusy is returned when a submission is attempted while another one is in flight
	ErrBusy = errors.New("analyzer is already submitting")

	// ErrNotSubmittable is returned when the pending request lacks the fields its analyzer needs
	ErrNotSubmittable = errors.New("pending request is not submittable")
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNetworkError creates a new transport failure error. status is the upstream
// HTTP status when one was received, zero otherwise.
func NewNetworkError(message string, status int, cause error) *AppError {
	e := &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
	if status != 0 {
		e.Details = fmt.Sprintf("upstream status %d", status)
	}
	return e
}

// NewMalformedPayloadError creates an error for a response body that does not match the expected schema
func NewMalformedPayloadError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeMalformedPayload,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewBusyError wraps ErrBusy for the given analyzer
func NewBusyError(analyzer string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusy,
		Message:    fmt.Sprintf("%s analyzer has a submission in flight", analyzer),
		StatusCode: http.StatusConflict,
		Cause:      ErrBusy,
	}
}

// NewNotSubmittableError wraps ErrNotSubmittable for the given analyzer
func NewNotSubmittableError(analyzer string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotSubmittable,
		Message:    fmt.Sprintf("%s analyzer input is incomplete", analyzer),
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      ErrNotSubmittable,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
