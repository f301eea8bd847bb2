// Package apperr tags errors with the failure class they belong to so the web
// layer can map them to a response status without inspecting error text.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindInput    Kind = "input"
	KindTooLarge Kind = "too_large"
	KindSchema   Kind = "schema"
	KindArtifact Kind = "artifact"
	KindInternal Kind = "internal"
)

// Error carries a kind, a message safe to show to clients and optional
// structured details. Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// WithDetails returns a copy of e with details attached.
func (e *Error) WithDetails(d any) *Error {
	cp := *e
	cp.Details = d
	return &cp
}

func Input(msg string, err error) *Error    { return Wrap(KindInput, msg, err) }
func Schema(msg string, err error) *Error   { return Wrap(KindSchema, msg, err) }
func Artifact(msg string, err error) *Error { return Wrap(KindArtifact, msg, err) }

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; untagged errors are internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to its HTTP status. Schema mismatches are server errors:
// the upload was well formed but cannot be scored by the loaded model.
func Status(k Kind) int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindSchema:
		return http.StatusInternalServerError
	case KindArtifact:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
