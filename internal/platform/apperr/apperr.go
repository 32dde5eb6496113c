package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a failure for callers. Every error surfaced by a service
// maps to exactly one kind.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
)

// Error is a classified error. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func Invalid(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Wrap attaches a kind to an existing error.
func Wrap(kind Kind, cause error, msg string) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the kind of the first classified error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Body is the JSON shape of an error response.
type Body struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// InternalMessage is the only text clients see for internal errors.
const InternalMessage = "internal server error"

// ToHTTP converts err into an echo error carrying a structured Body. For
// internal errors the cause is kept on HTTPError.Internal, where the request
// logger picks it up, and never reaches the response body.
func ToHTTP(err error) *echo.HTTPError {
	kind := KindOf(err)
	if kind == KindInternal {
		return echo.NewHTTPError(http.StatusInternalServerError, Body{Kind: kind, Message: InternalMessage}).
			SetInternal(err)
	}
	return echo.NewHTTPError(Status(kind), Body{Kind: kind, Message: err.Error()})
}
