package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable identifier returned in the "error" field.
type ErrorCode string

const (
	ErrValidation             ErrorCode = "validation_error"
	ErrConflict               ErrorCode = "conflict"
	ErrNotFound               ErrorCode = "not_found"
	ErrUnauthorized           ErrorCode = "unauthorized"
	ErrForbidden              ErrorCode = "forbidden"
	ErrPaymentRequired        ErrorCode = "payment_required"
	ErrReconciliationRequired ErrorCode = "reconciliation_required"
	ErrTooMany                ErrorCode = "too_many_requests"
	ErrInternal               ErrorCode = "internal_error"
)

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	err        error
	message    string
	code       ErrorCode
	httpStatus int
	fields     map[string]string
}

// New creates a new AppError with supplied details.
func New(message string, status int, code ErrorCode, err error) *AppError {
	return &AppError{
		err:        err,
		message:    message,
		httpStatus: status,
		code:       code,
	}
}

// NotFound builds a 404 error.
func NotFound(message string) *AppError {
	return New(message, http.StatusNotFound, ErrNotFound, nil)
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *AppError {
	return New(message, http.StatusUnauthorized, ErrUnauthorized, nil)
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	return New(message, http.StatusForbidden, ErrForbidden, nil)
}

// Validation builds a 400 error.
func Validation(message string) *AppError {
	return New(message, http.StatusBadRequest, ErrValidation, nil)
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Message returns a safe error message for clients.
func (e *AppError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status to use for this error.
func (e *AppError) StatusCode() int {
	return e.httpStatus
}

// Code returns the application level error code.
func (e *AppError) Code() ErrorCode {
	return e.code
}

// WithFields returns a copy carrying field-level validation messages.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	dup := *e
	dup.fields = fields
	return &dup
}

// Fields returns any field-level errors recorded on the AppError.
func (e *AppError) Fields() map[string]string {
	return e.fields
}

// Is reports whether err is an AppError carrying code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// Wrap converts a standard error into an AppError if needed.
func Wrap(err error, message string, status int, code ErrorCode) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(message, status, code, err)
}
