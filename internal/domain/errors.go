package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures surfaced by the service layer.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindInvalidIdentifier ErrorKind = "InvalidIdentifier"
	KindNotFound          ErrorKind = "NotFound"
	KindCompletion        ErrorKind = "CompletionError"
	KindPersistence       ErrorKind = "PersistenceError"
	KindConflict          ErrorKind = "Conflict"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindForbidden         ErrorKind = "Forbidden"
)

// Error is the typed error returned by chatrelay operations.
// Detail carries upstream information (status, body, field violations)
// when there is any.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldViolation describes one failed validation rule.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// CompletionDetail is the upstream information attached to a completion failure.
type CompletionDetail struct {
	StatusCode int    `json:"status,omitempty"`
	Body       any    `json:"body,omitempty"`
	Transport  string `json:"transport,omitempty"`
}

func NewValidationError(message string, violations ...FieldViolation) *Error {
	e := &Error{Kind: KindValidation, Message: message}
	if len(violations) > 0 {
		e.Detail = violations
	}
	return e
}

func NewInvalidIdentifier(message string) *Error {
	return &Error{Kind: KindInvalidIdentifier, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewCompletionError(message string, detail CompletionDetail, err error) *Error {
	return &Error{Kind: KindCompletion, Message: message, Detail: detail, Err: err}
}

func NewPersistenceError(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
