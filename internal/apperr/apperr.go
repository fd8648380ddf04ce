package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
)

// Kind classifies an operational error.
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindBadRequest   Kind = "BadRequest"
	KindNotFound     Kind = "NotFound"
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindServer       Kind = "ServerError"
)

// Error is an expected failure whose message is safe to show to clients.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Fields  map[string]string
	Stack   string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// StatusText is "fail" for client errors and "error" for server errors.
func (e *Error) StatusText() string {
	if e.Status >= 400 && e.Status < 500 {
		return "fail"
	}
	return "error"
}

func newError(status int, kind Kind, msg string) *Error {
	return &Error{Status: status, Kind: kind, Message: msg, Stack: string(debug.Stack())}
}

func BadRequest(msg string) *Error { return newError(http.StatusBadRequest, KindBadRequest, msg) }

func NotFound(msg string) *Error { return newError(http.StatusNotFound, KindNotFound, msg) }

func Unauthorized(msg string) *Error {
	return newError(http.StatusUnauthorized, KindUnauthorized, msg)
}

func Forbidden(msg string) *Error { return newError(http.StatusForbidden, KindForbidden, msg) }

// Internal wraps an infrastructure failure with a client-safe message.
func Internal(msg string, cause error) *Error {
	e := newError(http.StatusInternalServerError, KindServer, msg)
	e.cause = cause
	return e
}

// Validation builds a 400 error carrying one message per offending field.
func Validation(fields map[string]string) *Error {
	msgs := make([]string, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		msgs = append(msgs, fields[k])
	}
	e := newError(http.StatusBadRequest, KindValidation, fmt.Sprintf("Invalid input data. %s", strings.Join(msgs, ". ")))
	e.Fields = fields
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
