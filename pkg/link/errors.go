package link

import (
	"encoding/json"
	"fmt"

	"github.com/Ratio1/trpc_client_go/internal/wire"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

// RemoteError is an error reported by the tRPC server for one call.
type RemoteError struct {
	Message    string
	Code       int
	DataCode   string
	HTTPStatus int
	Path       string
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("trpc: %s: %s (%s)", e.Path, e.Message, e.DataCode)
	}
	return fmt.Sprintf("trpc: %s (%s)", e.Message, e.DataCode)
}

// Is matches targets that are *RemoteError values carrying only a DataCode,
// so sentinels such as &RemoteError{DataCode: "NOT_FOUND"} work with
// errors.Is.
func (e *RemoteError) Is(target error) bool {
	t, ok := target.(*RemoteError)
	if !ok || t.Message != "" || t.Path != "" {
		return false
	}
	return t.DataCode != "" && t.DataCode == e.DataCode
}

func decodeRemoteError(t superjson.Transformer, raw json.RawMessage, path string) error {
	var shape wire.ErrorShape
	if err := t.Decode(raw, &shape); err != nil {
		return fmt.Errorf("link: decode error shape: %w", err)
	}
	e := &RemoteError{
		Message:    shape.Message,
		Code:       shape.Code,
		DataCode:   shape.Data.Code,
		HTTPStatus: shape.Data.HTTPStatus,
		Path:       shape.Data.Path,
	}
	if e.Path == "" {
		e.Path = path
	}
	if e.HTTPStatus == 0 && e.DataCode != "" {
		e.HTTPStatus = wire.HTTPStatus(e.DataCode)
	}
	return e
}
