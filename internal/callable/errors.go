// Package callable holds the error kinds a callable function reports to its
// caller and their mapping onto the HTTP wire protocol.
package callable

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func InvalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

// Internal reports a dependency failure. The message is shown to the caller;
// the cause is kept for logs only.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// CodeOf returns the callable code carried by err. Errors that are not
// callable errors are internal.
func CodeOf(err error) Code {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-visible message for err.
func MessageOf(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return "internal error"
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
