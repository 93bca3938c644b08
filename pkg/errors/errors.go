package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an application error.
type ErrorCode int

const (
	ErrValidation ErrorCode = iota + 1000
	ErrNotFound
	ErrUnauthenticated
	ErrForbidden
	ErrExpired
	ErrConflict
	ErrAdapter
	ErrStorage
	ErrInternal
)

// String returns the wire name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrValidation:
		return "VALIDATION"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrUnauthenticated:
		return "UNAUTHENTICATED"
	case ErrForbidden:
		return "FORBIDDEN"
	case ErrExpired:
		return "EXPIRED"
	case ErrConflict:
		return "CONFLICT"
	case ErrAdapter:
		return "ADAPTER"
	case ErrStorage:
		return "STORAGE"
	default:
		return "INTERNAL"
	}
}

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error class to its HTTP equivalent.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthenticated, ErrExpired:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrAdapter:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is lets errors.Is match two AppErrors by code.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// Error constructors
func Validation(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

// ValidationField reports a validation failure on a named inbound field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Field: field}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Code: ErrUnauthenticated, Message: message}
}

func Expired(message string) *AppError {
	return &AppError{Code: ErrExpired, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: ErrForbidden, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Code: ErrConflict, Message: message}
}

func Adapter(message string, err error) *AppError {
	return &AppError{Code: ErrAdapter, Message: message, Err: err}
}

func Storage(err error) *AppError {
	return &AppError{Code: ErrStorage, Message: "storage failure", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// CodeOf returns the AppError code, or ErrInternal for unclassified errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
