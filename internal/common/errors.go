package common

import (
	"errors"
	"net/http"
)

// Error codes
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodePolicyViolation = "POLICY_VIOLATION"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeBadCredentials  = "INVALID_CREDENTIALS"
	CodeRateLimited     = "TOO_MANY_REQUESTS"
)

// Error is the typed error returned by services and mapped to an HTTP response by the API layer.
type Error struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	StatusCode int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
	cause      error
}

func NewError(code, message string, statusCode int) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode}
}

var (
	ErrUnauthorized    = NewError(CodeUnauthorized, "authentication required", http.StatusUnauthorized)
	ErrForbidden       = NewError(CodeForbidden, "you do not have permission to perform this action", http.StatusForbidden)
	ErrNotFound        = NewError(CodeNotFound, "resource not found", http.StatusNotFound)
	ErrPolicyViolation = NewError(CodePolicyViolation, "operation violates access policy", http.StatusBadRequest)
	ErrValidation      = NewError(CodeValidation, "invalid input", http.StatusBadRequest)
	ErrInternal        = NewError(CodeInternal, "internal server error", http.StatusInternalServerError)

	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = NewError(CodeBadCredentials, "Invalid credentials", http.StatusBadRequest)
	ErrTooManyRequests    = NewError(CodeRateLimited, "too many requests, try again later", http.StatusTooManyRequests)
)

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Is matches on Code so that errors.Is(err, ErrNotFound) holds for any NOT_FOUND error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithMessage returns a copy of e carrying msg.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// WithDetails returns a copy of e carrying field level details.
func (e *Error) WithDetails(details map[string]string) *Error {
	c := *e
	c.Details = details
	return &c
}

// Wrap returns a copy of e that unwraps to cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// NotFound builds a NOT_FOUND error naming the missing resource.
func NotFound(resource string) *Error {
	return ErrNotFound.WithMessage(resource + " not found")
}

// PolicyViolation builds a POLICY_VIOLATION error with an explicit message.
func PolicyViolation(msg string) *Error {
	return ErrPolicyViolation.WithMessage(msg)
}

// Validation builds a VALIDATION_ERROR for a single field.
func Validation(field, msg string) *Error {
	return ErrValidation.WithDetails(map[string]string{field: msg})
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return ErrInternal.Wrap(err)
}

// StatusCode returns the HTTP status an error maps to. Untyped errors are 500.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
