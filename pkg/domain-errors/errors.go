// Package domainerrors defines the coded error type shared by all services.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded domain errors that handlers can
// map onto HTTP statuses without string matching. Structured detail (missing
// field groups, conflict descriptions) rides on the error value so message
// rendering stays a presentation concern.
package domainerrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvalidState       Code = "invalid_state"
	CodeInvariantViolation Code = "invariant_violation"
	CodeDownstream         Code = "downstream_failure"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// ConflictDetail describes a uniqueness or consistency conflict with enough
// context for the caller to correct and retry.
type ConflictDetail struct {
	Field         string `json:"field,omitempty"`
	Value         string `json:"value,omitempty"`
	ConflictingID string `json:"conflicting_id,omitempty"`
	ExpectedSex   string `json:"expected_sex,omitempty"`
	DetectedSex   string `json:"detected_sex,omitempty"`
}

type Error struct {
	Code    Code
	Message string

	// MissingGroups lists unsatisfied completeness groups for validation errors.
	MissingGroups []string
	// Conflict carries structured conflict detail for CodeConflict errors.
	Conflict *ConflictDetail

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is treat two domain errors with the same code and message as
// equivalent, which keeps assertions readable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As inspection.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// NewValidation builds a validation error carrying the unsatisfied group names.
func NewValidation(message string, missingGroups []string) *Error {
	return &Error{Code: CodeValidation, Message: message, MissingGroups: missingGroups}
}

// NewConflict builds a conflict error with structured detail.
func NewConflict(message string, detail ConflictDetail) *Error {
	return &Error{Code: CodeConflict, Message: message, Conflict: &detail}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is a readable alias for HasCode at call sites that test a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// GetCode returns the outermost domain error code, or CodeInternal when err
// is not a domain error.
func GetCode(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// Details extracts the outermost domain error for handlers that serialize
// structured detail. Returns nil when err is not a domain error.
func Details(err error) *Error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}
