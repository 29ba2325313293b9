// Package apperr defines the domain error kinds shared by the services and
// mapped to HTTP statuses by the handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInvalid Kind = iota + 1
	KindForbidden
	KindNotFound
	KindInvalidTransition
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindPrecondition:
		return "precondition"
	}
	return "unknown"
}

// Error is a domain failure detected before any write.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind so callers can use errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalid           = &Error{Kind: KindInvalid}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrPrecondition      = &Error{Kind: KindPrecondition}
)

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InvalidTransition(msg string) error {
	return &Error{Kind: KindInvalidTransition, Message: msg}
}

func Precondition(msg string) error {
	return &Error{Kind: KindPrecondition, Message: msg}
}

// KindOf returns the Kind of a domain error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
