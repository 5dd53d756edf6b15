// Package apperr defines the error kinds shared by the stores, the services
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error carries a Kind and a caller-safe message. Err, when set, is the
// underlying cause and is only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrAuth) holds
// for every authentication failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrInternal   = &Error{Kind: KindInternal}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }
func Auth(msg string) error       { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }

// Internal wraps an unexpected failure. The message shown to callers is
// always the generic one.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal for errors
// that carry no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var defaultMessages = map[Kind]string{
	KindValidation: "invalid input",
	KindConflict:   "already exists",
	KindAuth:       "unauthorized",
	KindNotFound:   "not found",
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "internal error"
	}
	if e.Message != "" {
		return e.Message
	}
	return defaultMessages[e.Kind]
}
