package superjson

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Annotation type names written to meta.values.
const (
	TypeDate      = "Date"
	TypeBigInt    = "bigint"
	TypeMap       = "map"
	TypeSet       = "set"
	TypeNumber    = "number"
	TypeUndefined = "undefined"
	TypeRegExp    = "regexp"
	TypeURL       = "URL"
	TypeError     = "Error"
)

var (
	// ErrUnsupportedType is returned when a Go value has no JSON representation.
	ErrUnsupportedType = errors.New("superjson: unsupported type")
	// ErrUnsupportedAnnotation is returned for annotations this package cannot restore.
	ErrUnsupportedAnnotation = errors.New("superjson: unsupported annotation")
	// ErrInvalidMeta is returned when meta.values does not match the payload.
	ErrInvalidMeta = errors.New("superjson: invalid meta")
)

// Map is an insertion-ordered map whose keys may be of any type. It is
// encoded as the "map" annotation and is what "map" values decode to.
type Map []MapEntry

// MapEntry is a single key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Get returns the value stored under key, compared with ==. Keys decoded from
// the wire are plain JSON values, so numeric keys are float64.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the map as an array of [key, value] pairs.
func (m Map) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(m))
	for i, e := range m {
		pairs[i] = [2]any{e.Key, e.Value}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts either an array of [key, value] pairs or a JSON
// object.
func (m *Map) UnmarshalJSON(data []byte) error {
	var pairs [][2]any
	if err := json.Unmarshal(data, &pairs); err == nil {
		out := make(Map, len(pairs))
		for i, p := range pairs {
			out[i] = MapEntry{Key: p[0], Value: p[1]}
		}
		*m = out
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("superjson: decode map: %w", err)
	}
	out := make(Map, 0, len(obj))
	for _, k := range sortedKeys(obj) {
		out = append(out, MapEntry{Key: k, Value: obj[k]})
	}
	*m = out
	return nil
}

// Set is an ordered collection encoded as the "set" annotation.
type Set []any

// Undefined marks a value that is absent rather than null.
type Undefined struct{}

// ErrorValue is what an "Error" annotation decodes to.
type ErrorValue struct {
	Name    string
	Message string
}

func (e *ErrorValue) Error() string {
	if e.Name == "" || e.Name == "Error" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}
