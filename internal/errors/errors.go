package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeAccessDenied ErrCode = "ACCESS_DENIED"
	ErrCodeNetwork      ErrCode = "NETWORK_ERROR"
	ErrCodeRateLimited  ErrCode = "RATE_LIMITED"
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeForbidden    ErrCode = "FORBIDDEN"
	ErrCodeCancelled    ErrCode = "CANCELLED"
	ErrCodeInternal     ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAccessError creates an error for a failed organization access check
func NewAccessError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeAccessDenied,
		Message: message,
		Err:     err,
	}
}

// NewNetworkError creates an error for an enumeration-level network failure
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewRateLimitError creates an error for an exhausted rate budget
func NewRateLimitError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

// NewCancelledError creates an error for a cancelled run
func NewCancelledError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCancelled,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

func codeOf(err error) (ErrCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// IsAccessDenied checks if the error is an access error
func IsAccessDenied(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeAccessDenied
}

// IsNetwork checks if the error is a network error
func IsNetwork(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNetwork
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeRateLimited
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeForbidden
}

// IsCancelled checks if the error is a cancellation error
func IsCancelled(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeCancelled
}
