package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is matching by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Engine errors for the result lifecycle and enrollment capacity rules.
var (
	ErrCapacityExceeded        = New("CAPACITY_EXCEEDED", http.StatusConflict, "section is at full capacity")
	ErrDuplicateEnrollment     = New("DUPLICATE_ENROLLMENT", http.StatusConflict, "student already enrolled in section")
	ErrSectionClosed           = New("SECTION_CLOSED", http.StatusConflict, "section term is not accepting enrollment")
	ErrDuplicateResult         = New("DUPLICATE_RESULT", http.StatusConflict, "result already exists for student and section")
	ErrAlreadyPublished        = New("ALREADY_PUBLISHED", http.StatusConflict, "result is already published")
	ErrResultNotPublished      = New("RESULT_NOT_PUBLISHED", http.StatusConflict, "result is not published")
	ErrDuplicatePendingRequest = New("DUPLICATE_PENDING_REQUEST", http.StatusConflict, "a pending change request already exists for this result")
	ErrAlreadyResolved         = New("ALREADY_RESOLVED", http.StatusConflict, "change request is already resolved")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
