// Package apperr provides unified error handling with structured error codes.
// Codes map to HTTP statuses at the transport boundary; core packages attach
// codes and let the server layer translate.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeHashLengthMismatch Code = "HASH_LENGTH_MISMATCH"
	CodeDuplicateName      Code = "DUPLICATE_NAME"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnreadableImage    Code = "UNREADABLE_IMAGE"
	CodeFetchFailed        Code = "FETCH_FAILED"
	CodePersistence        Code = "PERSISTENCE_FAILURE"
)

// httpStatusMap maps error codes to HTTP status codes.
var httpStatusMap = map[Code]int{
	CodeUnknown:            http.StatusInternalServerError,
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeHashLengthMismatch: http.StatusBadRequest,
	CodeDuplicateName:      http.StatusConflict,
	CodeNotFound:           http.StatusNotFound,
	CodeUnreadableImage:    http.StatusBadRequest,
	CodeFetchFailed:        http.StatusBadGateway,
	CodePersistence:        http.StatusInternalServerError,
}

// AppError is the base error type with a structured code and optional cause.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsCode checks if an error (or anything it wraps) carries a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HTTPStatusOf returns the HTTP status for err, defaulting to 500.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
