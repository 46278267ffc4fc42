// Package apperr defines the error kinds returned by handlers and the echo
// error handler that renders them. Every error response has the shape
// {"error": "<message>"}; wrapped causes are logged, never sent.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Status maps the kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error carries a client-safe Message and an optional internal cause.
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

// Status returns the HTTP status of the error kind.
func (e *Error) Status() int { return e.Kind.Status() }

func Validation(msg string) *Error     { return &Error{Kind: KindValidation, Message: msg} }
func Authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }
func Authorization(msg string) *Error  { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error       { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error       { return &Error{Kind: KindConflict, Message: msg} }

// Internal wraps an unexpected failure. msg is what the client sees.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
}

// Handler is an echo.HTTPErrorHandler. *Error values are rendered with their
// kind's status; echo's own HTTP errors (unknown route, bad method) keep
// their status; anything else becomes a generic 500.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"

	var appErr *Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Status()
		msg = appErr.Message
		if appErr.Kind == KindInternal {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
		if status >= http.StatusInternalServerError {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
			msg = "internal server error"
		}
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, Body{Error: msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
