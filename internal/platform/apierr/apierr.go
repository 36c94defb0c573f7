package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, "validation_error", fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, "not_found", fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, "conflict", fmt.Errorf(format, args...))
}

func PayloadTooLarge(format string, args ...any) *Error {
	return New(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Errorf(format, args...))
}

func ConversionTimeout(err error) *Error {
	return New(http.StatusInternalServerError, "conversion_timeout", err)
}

func ConversionFailed(err error) *Error {
	return New(http.StatusInternalServerError, "conversion_failed", err)
}

func Misconfigured(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, "server_misconfigured", fmt.Errorf(format, args...))
}

func Database(err error) *Error {
	return New(http.StatusInternalServerError, "database_error", err)
}

// From extracts an *Error from err's chain, wrapping unknown errors as a
// generic 500 so callers always have a status and code to respond with.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}

func IsCode(err error, code string) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == code
}
