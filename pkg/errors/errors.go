package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource already exists")
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrPathTraversal      = errors.New("path traversal attempt detected")
	ErrConfiguration      = errors.New("configuration error")
	ErrPermission         = errors.New("permission denied")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPayloadTooLarge    = errors.New("payload too large")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
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

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

func PayloadTooLarge(msg string) *AppError {
	return &AppError{Code: "PAYLOAD_TOO_LARGE", Message: msg, Err: ErrPayloadTooLarge}
}

// Configuration reports a misconfigured role or document type table. Never retried.
func Configuration(msg string) *AppError {
	return &AppError{Code: "CONFIGURATION", Message: msg, Err: ErrConfiguration}
}

// Validation reports unsafe or empty caller input.
func Validation(msg string) *AppError {
	return &AppError{Code: "VALIDATION", Message: msg, Err: ErrValidation}
}

// PathTraversal is a Validation error; both sentinels match.
func PathTraversal(msg string) *AppError {
	return &AppError{Code: "VALIDATION", Message: msg, Err: errors.Join(ErrValidation, ErrPathTraversal)}
}

func Permission(msg string) *AppError {
	return &AppError{Code: "PERMISSION_DENIED", Message: msg, Err: ErrPermission}
}

// StorageUnavailable wraps the last backend failure once retries are exhausted.
func StorageUnavailable(msg string, cause error) *AppError {
	if cause == nil {
		return &AppError{Code: "STORAGE_UNAVAILABLE", Message: msg, Err: ErrStorageUnavailable}
	}
	return &AppError{Code: "STORAGE_UNAVAILABLE", Message: msg, Err: errors.Join(ErrStorageUnavailable, cause)}
}

// Code returns the AppError code carried by err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
