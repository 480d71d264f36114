package client

import (
	"errors"

	"github.com/Ratio1/trpc_client_go/internal/wire"
	"github.com/Ratio1/trpc_client_go/pkg/link"
)

// Error is a failure reported by the server for one call. Use errors.As to
// inspect it, or errors.Is with the sentinels below to match its code.
type Error = link.RemoteError

// Sentinels matching remote errors by their string code.
var (
	ErrBadRequest          error = &Error{DataCode: wire.CodeBadRequest}
	ErrUnauthorized        error = &Error{DataCode: wire.CodeUnauthorized}
	ErrForbidden           error = &Error{DataCode: wire.CodeForbidden}
	ErrNotFound            error = &Error{DataCode: wire.CodeNotFound}
	ErrMethodNotSupported  error = &Error{DataCode: wire.CodeMethodNotSupported}
	ErrTimeout             error = &Error{DataCode: wire.CodeTimeout}
	ErrConflict            error = &Error{DataCode: wire.CodeConflict}
	ErrInternalServerError error = &Error{DataCode: wire.CodeInternalServerError}
)

// ErrNoTransport is returned by New when the configuration names neither
// links nor a URL.
var ErrNoTransport = errors.New("client: config needs Links or URL")
