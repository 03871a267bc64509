// Package apperr holds the errors the case lifecycle returns to its callers. Each error
// carries a Kind so transports can tell "day full" from "time taken" without parsing text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error
type Kind string

// Error kinds
const (
	Validation     Kind = "validation"
	Capacity       Kind = "capacity"
	Conflict       Kind = "conflict"
	Spacing        Kind = "spacing"
	NotFound       Kind = "not_found"
	State          Kind = "state"
	Infrastructure Kind = "infrastructure"
)

// Error is a classified error
type Error struct {
	Kind    Kind
	Message string
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

// New returns an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validationf returns a validation error
func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, format, args...)
}

// NotFoundf returns a not found error
func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

// Statef returns a state error
func Statef(format string, args ...interface{}) *Error {
	return New(State, format, args...)
}

// Infra wraps a storage or driver failure
func Infra(err error, message string) *Error {
	return Wrap(Infrastructure, err, message)
}

// KindOf returns the kind of the first classified error in err's chain. Unclassified
// errors are reported as Infrastructure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Infrastructure
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
