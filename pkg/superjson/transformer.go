// Package superjson implements the superjson wire format used by tRPC
// clients to carry dates, maps, sets, bigints and other values plain JSON
// cannot express. It also defines the Transformer interface the links and the
// router use to encode inputs and outputs.
package superjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Transformer converts values to and from their wire representation.
type Transformer interface {
	Serialize(v any) (json.RawMessage, error)
	Deserialize(data json.RawMessage) (any, error)
	Decode(data json.RawMessage, out any) error
}

var (
	// SuperJSON is the superjson transformer.
	SuperJSON Transformer = superJSON{}
	// JSON passes values through encoding/json unchanged.
	JSON Transformer = plainJSON{}
)

type superJSON struct{}

func (superJSON) Serialize(v any) (json.RawMessage, error)      { return Serialize(v) }
func (superJSON) Deserialize(data json.RawMessage) (any, error) { return Deserialize(data) }
func (superJSON) Decode(data json.RawMessage, out any) error    { return Decode(data, out) }

type plainJSON struct{}

func (plainJSON) Serialize(v any) (json.RawMessage, error) {
	return marshal(v)
}

func (plainJSON) Deserialize(data json.RawMessage) (any, error) {
	var out any
	if err := (plainJSON{}).Decode(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (plainJSON) Decode(data json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("superjson: decode json: %w", err)
	}
	return nil
}
