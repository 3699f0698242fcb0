// Package apperr defines the typed errors services return and the HTTP status each maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindSession
	KindChat
	KindValidation
	KindBadRequest
)

var kindStatus = map[Kind]int{
	KindInternal:     http.StatusInternalServerError,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindSession:      http.StatusBadRequest,
	KindChat:         http.StatusInternalServerError,
	KindValidation:   http.StatusBadRequest,
	KindBadRequest:   http.StatusBadRequest,
}

var kindLabel = map[Kind]string{
	KindInternal:     "Internal Server Error",
	KindUnauthorized: "Unauthorized",
	KindForbidden:    "Forbidden",
	KindNotFound:     "Not Found",
	KindConflict:     "Conflict",
	KindSession:      "Session Error",
	KindChat:         "Chat Service Error",
	KindValidation:   "Validation Failed",
	KindBadRequest:   "Bad Request",
}

// Error is an application error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps input field names to problems. Set only for validation errors.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code the API responds with.
func (e *Error) HTTPStatus() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Label is the short error name placed in the response envelope.
func (e *Error) Label() string {
	return kindLabel[e.Kind]
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(format string, args ...any) *Error { return newf(KindUnauthorized, format, args...) }

// Forbidden reports an authenticated caller acting on someone else's data.
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

// NotFound reports a missing resource.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Conflict reports a uniqueness clash.
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// BadRequest reports an illegal argument.
func BadRequest(format string, args ...any) *Error { return newf(KindBadRequest, format, args...) }

// Session reports a chat session failure.
func Session(err error, format string, args ...any) *Error {
	e := newf(KindSession, format, args...)
	e.Err = err
	return e
}

// Chat reports a failure while talking to the agent.
func Chat(err error, format string, args ...any) *Error {
	e := newf(KindChat, format, args...)
	e.Err = err
	return e
}

// Validation reports field-level input problems.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// Field is shorthand for a validation error on a single field.
func Field(name, problem string) *Error {
	return Validation(map[string]string{name: problem})
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
