package tools

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify a handler failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrBackend      = errors.New("backend failure")
	ErrNoSession    = errors.New("no authenticated session")
	ErrUnavailable  = errors.New("unavailable")
)

// Error is a classified handler failure. Msg is what the model is told.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invalid(msg string, err error) error {
	return &Error{Kind: ErrInvalidInput, Msg: msg, Err: err}
}

func backend(msg string, err error) error {
	return &Error{Kind: ErrBackend, Msg: msg, Err: err}
}

func unavailable(msg string, err error) error {
	return &Error{Kind: ErrUnavailable, Msg: msg, Err: err}
}

func noSession(resource string) error {
	return &Error{Kind: ErrNoSession, Msg: resource + " function is not available right now."}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Sorry, I ran into a problem handling that request."
}
