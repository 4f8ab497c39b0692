package passbook

// errors.go defines the errors returned by the passbook engine and how they map to HTTP status codes.
//
// Device facing handlers answer with the bare status code (the Wallet client does not read error bodies).

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPassNotFound is returned by the store when no pass has the requested ID
	ErrPassNotFound = errors.New("pass not found")

	// ErrRegistrationNotFound is returned when a device is not registered for a pass
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrUnknownOriginType is returned when an origin type has no registered content provider
	ErrUnknownOriginType = errors.New("unknown origin type")

	// ErrOriginNotFound is returned by content providers when the origin record does not exist
	ErrOriginNotFound = errors.New("origin record not found")
)

// ErrorCode classifies a PassbookError
type ErrorCode string

const (
	// ErrCodeUnauthorized is used when the authentication token is missing, malformed or wrong
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeBadRequest is used for malformed request bodies
	ErrCodeBadRequest ErrorCode = "bad_request"

	// ErrCodeValidation is used when origin content cannot be made into a valid pass.
	// The details are logged; the caller only sees a 500.
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeInternal is used for unexpected failures
	ErrCodeInternal ErrorCode = "internal"
)

// PassbookError is a structured error from the passbook package
type PassbookError struct {
	// code is the error classification
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *PassbookError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *PassbookError) Code() ErrorCode { return e.code }
func (e *PassbookError) Unwrap() error   { return e.wrapped }

// NewUnauthorizedError creates an authorization failure.
//
// The returned error will have code ErrCodeUnauthorized.
func NewUnauthorizedError(msg string) error {
	return &PassbookError{code: ErrCodeUnauthorized, message: msg}
}

// NewBadRequestError creates an error for malformed requests.
//
// The returned error will have code ErrCodeBadRequest.
func NewBadRequestError(msg string) error {
	return &PassbookError{code: ErrCodeBadRequest, message: msg}
}

// WrapBadRequestError wraps an existing error as a malformed request error.
func WrapBadRequestError(err error, msg string) error {
	return &PassbookError{code: ErrCodeBadRequest, message: msg, wrapped: err}
}

// NewValidationError creates a validation error.
// Use this for origin content that cannot be turned into a valid pass.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &PassbookError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &PassbookError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &PassbookError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &PassbookError{code: ErrCodeInternal, message: msg, wrapped: err}
}

// MapErrorToStatus returns the HTTP status code for an error returned by the engine.
//
// Pass content problems (pkpass.ContentError, crypto errors, ErrCodeValidation) are server side
// problems and map to 500 along with anything else not listed here.
func MapErrorToStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrPassNotFound),
		errors.Is(err, ErrRegistrationNotFound),
		errors.Is(err, ErrOriginNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	var passbookErr *PassbookError
	if errors.As(err, &passbookErr) {
		switch passbookErr.Code() {
		case ErrCodeUnauthorized:
			return http.StatusUnauthorized
		case ErrCodeBadRequest:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}
