package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ratio1/trpc_client_go/internal/wire"
)

// Error codes a procedure may fail with.
const (
	CodeBadRequest          = wire.CodeBadRequest
	CodeUnauthorized        = wire.CodeUnauthorized
	CodeForbidden           = wire.CodeForbidden
	CodeNotFound            = wire.CodeNotFound
	CodeMethodNotSupported  = wire.CodeMethodNotSupported
	CodeConflict            = wire.CodeConflict
	CodeInternalServerError = wire.CodeInternalServerError
)

// Error is a procedure failure reported to the caller with its code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// NewError returns an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf formats the message of a new Error.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("router: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("router: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus is the status the error is answered with.
func (e *Error) HTTPStatus() int {
	return wire.HTTPStatus(e.Code)
}

// asError maps any procedure error onto an Error.
func asError(err error) *Error {
	var rerr *Error
	switch {
	case errors.As(err, &rerr):
		return rerr
	case errors.Is(err, context.Canceled):
		return &Error{Code: wire.CodeClientClosedRequest, Message: "request cancelled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: wire.CodeTimeout, Message: "request timed out", Cause: err}
	default:
		return &Error{Code: CodeInternalServerError, Message: err.Error(), Cause: err}
	}
}

func (e *Error) shape(path string) wire.ErrorShape {
	return wire.ErrorShape{
		Message: e.Message,
		Code:    wire.JSONRPCCode(e.Code),
		Data: wire.ErrorData{
			Code:       e.Code,
			HTTPStatus: e.HTTPStatus(),
			Path:       path,
		},
	}
}
