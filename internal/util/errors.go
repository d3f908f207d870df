// Package util provides shared utility types for the auth service.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ValidationError, UpstreamError). Each
//     type implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
//
// The structured types below form the API error taxonomy: every failure
// surfaced by a route handler maps to exactly one of them, and each one
// maps to a fixed HTTP status code via HTTPStatus().
package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("resource conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUpstream        = errors.New("identity provider unavailable")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// AuthenticationError indicates missing or invalid credentials (401).
type AuthenticationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication error: %s", e.Message)
	}
	return "authentication error"
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *AuthenticationError) Is(target error) bool {
	if target == ErrUnauthenticated {
		return true
	}
	_, ok := target.(*AuthenticationError)
	return ok || errors.Is(e.Cause, target)
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

// NewAuthenticationErrorWithCause creates a new AuthenticationError with a cause.
func NewAuthenticationErrorWithCause(message string, cause error) *AuthenticationError {
	return &AuthenticationError{Message: message, Cause: cause}
}

// AuthorizationError indicates an authenticated caller lacking access (403).
type AuthorizationError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authorization error: %s", e.Message)
	}
	return "authorization error"
}

// Is checks if the error matches the target.
func (e *AuthorizationError) Is(target error) bool {
	if target == ErrForbidden {
		return true
	}
	_, ok := target.(*AuthorizationError)
	return ok
}

// NewAuthorizationError creates a new AuthorizationError.
func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// ValidationError indicates malformed or incomplete input (422).
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// NewValidationErrorWithFields creates a new ValidationError with field errors.
func NewValidationErrorWithFields(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// NotFoundError indicates a missing resource (404).
type NotFoundError struct {
	Resource string
	Message  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("not found: %s", e.Message)
}

// Is checks if the error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*NotFoundError)
	return ok
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// ConflictError indicates a state conflict such as a duplicate resource (409).
type ConflictError struct {
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// Is checks if the error matches the target.
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	_, ok := target.(*ConflictError)
	return ok
}

// NewConflictError creates a new ConflictError.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// UpstreamError indicates a failure of the identity provider (502).
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream error during %s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream error during %s: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstream {
		return true
	}
	_, ok := target.(*UpstreamError)
	return ok || errors.Is(e.Cause, target)
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(operation, message string) *UpstreamError {
	return &UpstreamError{Operation: operation, Message: message}
}

// NewUpstreamErrorWithCause creates a new UpstreamError with a cause.
func NewUpstreamErrorWithCause(operation, message string, cause error) *UpstreamError {
	return &UpstreamError{Operation: operation, Message: message, Cause: cause}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error to its HTTP status code and stable error kind.
// Unknown errors map to 500/"internal_error".
func HTTPStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication_error"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "authorization_error"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "external_service_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.StatusCode == 0 || upstreamErr.StatusCode >= 500
	}

	return errors.Is(err, ErrUpstream)
}

// IsClientError returns true if the error maps to a 4xx status.
func IsClientError(err error) bool {
	status, _ := HTTPStatus(err)
	return status >= 400 && status < 500
}

// IsServerError returns true if the error maps to a 5xx status.
func IsServerError(err error) bool {
	status, _ := HTTPStatus(err)
	return status >= 500
}
