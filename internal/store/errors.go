package store

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure so callers can pick a retry policy.
type Kind int

// Storage failure kinds.
const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
	KindRejected
	KindUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindRejected:
		return "rejected"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified storage error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // driver error, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same Kind. A unique violation is also a rejection,
// so ErrAlreadyExists matches ErrRejected.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return t.Kind == KindRejected && e.Kind == KindAlreadyExists
}

// WithMessage returns a copy of e with msg.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists, Message: "resource already exists"}
	ErrRejected      = &Error{Kind: KindRejected, Message: "statement rejected"}
	ErrUnavailable   = &Error{Kind: KindUnavailable, Message: "database unavailable"}
	ErrTimeout       = &Error{Kind: KindTimeout, Message: "database timeout"}
)

// KindOf returns the Kind of a classified error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Retryable reports whether err is worth retrying with backoff.
// Rejected statements never are.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
