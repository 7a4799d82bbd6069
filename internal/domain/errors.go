package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes surfaced by task operations.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindAuthRequired
	KindNotFound
	KindSerialization
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthRequired:
		return "authentication_required"
	case KindNotFound:
		return "not_found"
	case KindSerialization:
		return "serialization"
	case KindInvalid:
		return "invalid"
	default:
		return "transport"
	}
}

var (
	ErrAuthRequired = errors.New("user not authenticated")
	ErrNotFound     = errors.New("task not found")
)

// Error tags an underlying error with its kind and the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinels by kind even when the wrapped cause differs.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthRequired:
		return e.Kind == KindAuthRequired
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func AuthRequired(op string) *Error {
	return &Error{Kind: KindAuthRequired, Op: op, Err: ErrAuthRequired}
}

func NotFound(op string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: ErrNotFound}
}

// KindOf classifies err. Anything not tagged is treated as a transport failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}
