// Package errors defines the error kinds surfaced by the compute engine queue.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of queue error.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates the caller violated an operation's contract
	// (missing worker id, error supplied with a non-FAILED outcome, invalid submission).
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	// ErrCodeIllegalState indicates the task is not in a state that allows the operation.
	ErrCodeIllegalState ErrorCode = "illegal_state"
	// ErrCodeNotFound indicates the task or record does not exist.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeDuplicateKey indicates a unique constraint violation.
	ErrCodeDuplicateKey ErrorCode = "duplicate_key"
	// ErrCodeInternal indicates an unclassified storage failure.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates the operation deadline expired.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation context was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError is a structured queue error carrying a code, message and optional cause.
// It supports errors.Is and errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input for InvalidArgument errors.
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// InvalidArgument creates a new InvalidArgument error.
func InvalidArgument(message string) *AppError {
	return newError(ErrCodeInvalidArgument, message)
}

// InvalidArgumentf creates a new InvalidArgument error with a formatted message.
func InvalidArgumentf(format string, args ...any) *AppError {
	return newError(ErrCodeInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidField creates an InvalidArgument error bound to a specific input field.
func InvalidField(field, message string) *AppError {
	e := newError(ErrCodeInvalidArgument, message)
	e.Field = field
	return e
}

// IllegalState creates a new IllegalState error.
func IllegalState(message string) *AppError {
	return newError(ErrCodeIllegalState, message)
}

// IllegalStatef creates a new IllegalState error with a formatted message.
func IllegalStatef(format string, args ...any) *AppError {
	return newError(ErrCodeIllegalState, fmt.Sprintf(format, args...))
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return newError(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// DuplicateKey creates a new DuplicateKey error.
func DuplicateKey(message string) *AppError {
	return newError(ErrCodeDuplicateKey, message)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return newError(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return isCode(err, ErrCodeInvalidArgument) }

// IsIllegalState reports whether err is an IllegalState error.
func IsIllegalState(err error) bool { return isCode(err, ErrCodeIllegalState) }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsDuplicateKey reports whether err is a DuplicateKey error.
func IsDuplicateKey(err error) bool { return isCode(err, ErrCodeDuplicateKey) }

// IsInternal reports whether err is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout reports whether err is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled reports whether err is a Canceled error.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// GetCode returns the ErrorCode carried by err, or an empty code.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field carried by err, or an empty string.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
