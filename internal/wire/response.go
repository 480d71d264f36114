// Package wire holds the tRPC v9 HTTP envelope shared by the batch links and
// the in-process router.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ResultTypeData is the only result type sent over plain HTTP.
const ResultTypeData = "data"

// Envelope is one element of a (batch) response body. Exactly one of Result
// and Error is set; both payloads are encoded with the active transformer.
type Envelope struct {
	ID     json.RawMessage `json:"id"`
	Result *Result         `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Result wraps the data of a successful call.
type Result struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorShape is the default error formatter output of the tRPC server.
type ErrorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    ErrorData `json:"data"`
}

// ErrorData carries the string code and HTTP status of an error.
type ErrorData struct {
	Code       string `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
	Stack      string `json:"stack,omitempty"`
}

var errEmptyBody = errors.New("wire: empty response body")

// DecodeBatch parses a response body into envelopes. A single envelope (as
// returned by the non-batching link) is accepted and returned as a one
// element slice.
func DecodeBatch(body []byte) ([]Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}
	if trimmed[0] == '[' {
		var out []Envelope
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("wire: decode batch: %w", err)
		}
		return out, nil
	}
	var single Envelope
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}
	return []Envelope{single}, nil
}

// DecodeInputs parses the batch input object {"0": ..., "1": ...} into a
// slice of n raw inputs. Missing indexes are returned as nil.
func DecodeInputs(raw []byte, n int) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, n)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out, nil
	}
	var byIndex map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &byIndex); err != nil {
		return nil, fmt.Errorf("wire: decode batch input: %w", err)
	}
	for key, value := range byIndex {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= n {
			return nil, fmt.Errorf("wire: batch input index %q out of range", key)
		}
		out[idx] = value
	}
	return out, nil
}

// EncodeInputs builds the batch input object for the given raw inputs.
func EncodeInputs(inputs []json.RawMessage) ([]byte, error) {
	byIndex := make(map[string]json.RawMessage, len(inputs))
	for i, in := range inputs {
		if in == nil {
			continue
		}
		byIndex[strconv.Itoa(i)] = in
	}
	return json.Marshal(byIndex)
}
