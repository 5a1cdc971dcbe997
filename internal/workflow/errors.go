package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindIllegalTransition Kind = "illegal_transition"
	KindForbidden         Kind = "forbidden"
	KindPersistence       Kind = "persistence"
	KindIntegrity         Kind = "integrity"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "application not found"}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition, Message: "illegal transition"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrPersistence       = &Error{Kind: KindPersistence, Message: "persistence failure"}
	ErrIntegrity         = &Error{Kind: KindIntegrity, Message: "integrity violation"}
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error is returned by every workflow operation.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	// Retryable is set on persistence failures where state is unchanged.
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any workflow error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func IllegalTransition(msg string) *Error {
	return &Error{Kind: KindIllegalTransition, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Persistence wraps a store failure. State is unchanged and the whole
// operation is safe to retry.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Retryable: true, Err: err}
}

func Integrity(msg string) *Error {
	return &Error{Kind: KindIntegrity, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not a workflow error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}
