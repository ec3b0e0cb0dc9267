// Package apperr defines the coded errors surfaced at the room/game action boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error class.
type Code string

const (
	CodeValidation Code = "VALIDATION" // missing or malformed required field
	CodeNotFound   Code = "NOT_FOUND"  // room or code does not resolve
	CodeConflict   Code = "CONFLICT"   // seat taken or status changed under a concurrent writer
	CodeNotReady   Code = "NOT_READY"  // start attempted before both seats and themes are set
	CodeStore      Code = "STORE"      // unclassified persistence or transport failure
	CodeAuth       Code = "AUTH"       // no verified identity present
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, apperr.ErrConflict) works for any conflict.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is matching.
var (
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict   = &Error{Code: CodeConflict, Message: "conflict"}
	ErrNotReady   = &Error{Code: CodeNotReady, Message: "not ready"}
	ErrStore      = &Error{Code: CodeStore, Message: "store error"}
	ErrAuth       = &Error{Code: CodeAuth, Message: "unauthenticated"}
)

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(message string) *Error { return New(CodeValidation, message) }
func NotFound(message string) *Error   { return New(CodeNotFound, message) }
func Conflict(message string) *Error   { return New(CodeConflict, message) }
func NotReady(message string) *Error   { return New(CodeNotReady, message) }
func Auth(message string) *Error       { return New(CodeAuth, message) }

// Store wraps a persistence failure. Errors that already carry a code pass
// through untouched so that a NotFound from the store is not reclassified.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return Wrap(CodeStore, op, err)
}

// CodeOf returns the code carried by err, or CodeStore for uncoded errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeStore
}
