// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
Package apperr defines the centralized error handling framework for Talentis.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Localization: Support for translated error messages (if needed in the future).
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the canonical error type for the Talentis API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Error Codes

// Machine-readable codes shared between the engine, the transport layer, and tests.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeExpired            = "EXPIRED"
	CodeAlreadyUsed        = "ALREADY_USED"
	CodeRevoked            = "REVOKED"
	CodeMismatch           = "MISMATCH"
	CodeExhausted          = "EXHAUSTED"
	CodeThrottled          = "THROTTLED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Account") // Returns "Account not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Unprocessable creates a 422 [AppError] for semantically invalid input.
func Unprocessable(msg string) *AppError {
	return &AppError{
		Code:       "UNPROCESSABLE",
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// # Credential Lifecycle Errors (4xx)

// InvalidCredentials creates a 401 [AppError] for failed authentication.
//
// # Security
//
// The same code and message are returned for an unknown username and for a
// wrong password, so that callers cannot enumerate registered accounts.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid login credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AccountLocked creates a 423 [AppError] for accounts under brute-force lockout.
func AccountLocked() *AppError {
	return &AppError{
		Code:       CodeAccountLocked,
		Message:    "Account temporarily locked due to repeated failed logins",
		HTTPStatus: http.StatusLocked,
	}
}

// Expired creates a 410 [AppError] for codes or tokens past their TTL.
func Expired(subject string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    subject + " has expired",
		HTTPStatus: http.StatusGone,
	}
}

// AlreadyUsed creates a 409 [AppError] for single-use secrets redeemed twice.
func AlreadyUsed(subject string) *AppError {
	return &AppError{
		Code:       CodeAlreadyUsed,
		Message:    subject + " has already been used",
		HTTPStatus: http.StatusConflict,
	}
}

// Revoked creates a 401 [AppError] for refresh tokens that were rotated or revoked.
func Revoked(subject string) *AppError {
	return &AppError{
		Code:       CodeRevoked,
		Message:    subject + " has been revoked",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Mismatch creates a 400 [AppError] for a supplied secret that does not match.
func Mismatch(subject string) *AppError {
	return &AppError{
		Code:       CodeMismatch,
		Message:    subject + " does not match",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Exhausted creates a 429 [AppError] for secrets that hit their attempt budget.
func Exhausted(subject string) *AppError {
	return &AppError{
		Code:       CodeExhausted,
		Message:    subject + " verification attempts exhausted",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Throttled creates a 429 [AppError] for operations requested too frequently.
func Throttled(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeThrottled,
		Message:    fmt.Sprintf("Requested too frequently. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for maintenance mode.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err carries the given machine-readable code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND [AppError].
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}
