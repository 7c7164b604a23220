package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Lamina error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"        // 404
	ErrConflict       ErrorCode = "CONFLICT"         // 409
	ErrFormatLocked   ErrorCode = "FORMAT_LOCKED"    // 409
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"   // 404
	ErrRecordTooLarge ErrorCode = "RECORD_TOO_LARGE" // 413
	ErrCancelled      ErrorCode = "CANCELLED"        // 499
	ErrInternal       ErrorCode = "INTERNAL"         // 500
)

// LaminaError represents a structured error with code, status, and details.
type LaminaError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *LaminaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *LaminaError {
	return &LaminaError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error. kind is "slide" or "record".
func NewNotFound(kind, identifier string) *LaminaError {
	return &LaminaError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *LaminaError {
	return &LaminaError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewFormatLocked creates a 409 error when a slide's format would change
// after interaction records were captured against it.
func NewFormatLocked(slideID, current, requested string, records int) *LaminaError {
	return &LaminaError{
		Code:   ErrFormatLocked,
		Status: 409,
		Message: fmt.Sprintf("slide %s has %d interaction records; format cannot change from %s to %s",
			slideID, records, current, requested),
		Details: map[string]any{
			"slide_id":  slideID,
			"current":   current,
			"requested": requested,
			"records":   records,
		},
	}
}

// NewRecordTooLarge creates a 413 error when a record holds too many ink points.
func NewRecordTooLarge(max, actual int) *LaminaError {
	return &LaminaError{
		Code:    ErrRecordTooLarge,
		Status:  413,
		Message: fmt.Sprintf("interaction record exceeds maximum size: %d points (max %d)", actual, max),
		Details: map[string]any{"max_points": max, "actual_points": actual},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *LaminaError {
	return &LaminaError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *LaminaError {
	return &LaminaError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The
// message is generic; the cause is kept in Details for logging only.
func NewInternal(err error) *LaminaError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &LaminaError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// As returns the LaminaError in err's chain, if any.
func As(err error) (*LaminaError, bool) {
	var lErr *LaminaError
	if stderrors.As(err, &lErr) {
		return lErr, true
	}
	return nil, false
}

// Is checks if an error, or one it wraps, is a LaminaError with the given code.
func Is(err error, code ErrorCode) bool {
	if lErr, ok := As(err); ok {
		return lErr.Code == code
	}
	return false
}
