package superjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type rawEnvelope struct {
	JSON json.RawMessage `json:"json"`
	Meta *struct {
		Values json.RawMessage `json:"values"`
	} `json:"meta"`
}

// Deserialize decodes the wire form and restores annotated values: Date to
// time.Time, bigint to *big.Int, map to Map, set to Set, number to the
// non-finite float64, undefined to Undefined, regexp to *regexp.Regexp, URL
// to *url.URL and Error to *ErrorValue.
func Deserialize(data json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("superjson: decode envelope: %w", err)
	}

	var value any
	if len(env.JSON) > 0 {
		if err := json.Unmarshal(env.JSON, &value); err != nil {
			return nil, fmt.Errorf("superjson: decode json: %w", err)
		}
	}
	if env.Meta == nil || len(env.Meta.Values) == 0 {
		return value, nil
	}

	var tree any
	if err := json.Unmarshal(env.Meta.Values, &tree); err != nil {
		return nil, fmt.Errorf("superjson: decode meta: %w", err)
	}
	return applyTree(value, tree)
}

// Decode deserializes data and assigns the result to out. When out is *any the
// restored values are stored as is; otherwise they are converted to plain JSON
// and unmarshalled into out, which drops non-finite numbers (they become null).
// A Map headed for a Go map becomes an object keyed by the formatted keys.
func Decode(data json.RawMessage, out any) error {
	if out == nil {
		return errors.New("superjson: decode target is nil")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("superjson: decode target must be a non-nil pointer, got %T", out)
	}
	value, err := Deserialize(data)
	if err != nil {
		return err
	}
	if p, ok := out.(*any); ok {
		*p = value
		return nil
	}
	raw, err := json.Marshal(plainFor(value, rv.Type().Elem()))
	if err != nil {
		return fmt.Errorf("superjson: re-encode value: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("superjson: assign value: %w", err)
	}
	return nil
}

func applyTree(value any, tree any) (any, error) {
	switch t := tree.(type) {
	case []any:
		if len(t) == 0 {
			return nil, fmt.Errorf("%w: empty annotation", ErrInvalidMeta)
		}
		typ, ok := t[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: annotation type %v", ErrInvalidMeta, t[0])
		}
		if len(t) > 1 {
			inner, ok := t[1].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: nested annotations for %s", ErrInvalidMeta, typ)
			}
			var err error
			if value, err = applyInner(value, inner); err != nil {
				return nil, err
			}
		}
		return untransform(typ, value)
	case map[string]any:
		return applyInner(value, t)
	}
	return nil, fmt.Errorf("%w: unexpected tree %T", ErrInvalidMeta, tree)
}

func applyInner(value any, inner map[string]any) (any, error) {
	for path, sub := range inner {
		var err error
		value, err = applyAt(value, parsePath(path), sub)
		if err != nil {
			return nil, fmt.Errorf("%w (path %q)", err, path)
		}
	}
	return value, nil
}

func applyAt(value any, segments []string, tree any) (any, error) {
	if len(segments) == 0 {
		return applyTree(value, tree)
	}
	seg := segments[0]
	switch v := value.(type) {
	case map[string]any:
		child, ok := v[seg]
		if !ok {
			// JSON drops undefined properties while meta still names them.
			if len(segments) == 1 && isLeaf(tree, TypeUndefined) {
				v[seg] = Undefined{}
				return v, nil
			}
			return nil, fmt.Errorf("%w: missing key %q", ErrInvalidMeta, seg)
		}
		updated, err := applyAt(child, segments[1:], tree)
		if err != nil {
			return nil, err
		}
		v[seg] = updated
		return v, nil
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, fmt.Errorf("%w: index %q", ErrInvalidMeta, seg)
		}
		updated, err := applyAt(v[idx], segments[1:], tree)
		if err != nil {
			return nil, err
		}
		v[idx] = updated
		return v, nil
	}
	return nil, fmt.Errorf("%w: cannot descend into %T", ErrInvalidMeta, value)
}

func isLeaf(tree any, typ string) bool {
	t, ok := tree.([]any)
	return ok && len(t) == 1 && t[0] == typ
}

// parsePath splits a dotted path, honouring \. escapes.
func parsePath(path string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '\\' && i+1 < len(path) && path[i+1] == '.' {
			cur.WriteByte('.')
			i++
			continue
		}
		if c == '.' {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(out, cur.String())
}

func untransform(typ string, value any) (any, error) {
	switch typ {
	case TypeUndefined:
		return Undefined{}, nil
	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: Date value %T", ErrInvalidMeta, value)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("superjson: parse Date: %w", err)
		}
		return t, nil
	case TypeBigInt:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: bigint value %T", ErrInvalidMeta, value)
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("superjson: parse bigint %q", s)
		}
		return n, nil
	case TypeNumber:
		s, _ := value.(string)
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return nil, fmt.Errorf("%w: number value %v", ErrInvalidMeta, value)
	case TypeMap:
		pairs, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: map value %T", ErrInvalidMeta, value)
		}
		m := make(Map, 0, len(pairs))
		for _, p := range pairs {
			kv, ok := p.([]any)
			if !ok || len(kv) != 2 {
				return nil, fmt.Errorf("%w: map entry %v", ErrInvalidMeta, p)
			}
			m = append(m, MapEntry{Key: kv[0], Value: kv[1]})
		}
		return m, nil
	case TypeSet:
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: set value %T", ErrInvalidMeta, value)
		}
		return Set(items), nil
	case TypeRegExp:
		s, _ := value.(string)
		end := strings.LastIndex(s, "/")
		if !strings.HasPrefix(s, "/") || end < 1 {
			return nil, fmt.Errorf("%w: regexp value %q", ErrInvalidMeta, s)
		}
		re, err := regexp.Compile(s[1:end])
		if err != nil {
			return nil, fmt.Errorf("superjson: compile regexp: %w", err)
		}
		return re, nil
	case TypeURL:
		s, _ := value.(string)
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("superjson: parse URL: %w", err)
		}
		return u, nil
	case TypeError:
		obj, _ := value.(map[string]any)
		name, _ := obj["name"].(string)
		msg, _ := obj["message"].(string)
		return &ErrorValue{Name: name, Message: msg}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAnnotation, typ)
}

// toPlain converts restored values back into values encoding/json can
// marshal.
func toPlain(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[k] = toPlain(x)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = toPlain(x)
		}
		return out
	case Set:
		return toPlain([]any(v))
	case Map:
		obj := make(map[string]any, len(v))
		for _, e := range v {
			k, ok := e.Key.(string)
			if !ok {
				pairs := make([]any, len(v))
				for i, e := range v {
					pairs[i] = []any{toPlain(e.Key), toPlain(e.Value)}
				}
				return pairs
			}
			obj[k] = toPlain(e.Value)
		}
		return obj
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case Undefined:
		return nil
	case *regexp.Regexp:
		return v.String()
	case *url.URL:
		return v.String()
	case *ErrorValue:
		return map[string]any{"name": v.Name, "message": v.Message}
	}
	return value
}

var unmarshalerType = reflect.TypeFor[json.Unmarshaler]()

// plainFor is toPlain guided by the type the result is unmarshalled into.
func plainFor(value any, t reflect.Type) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(unmarshalerType) || reflect.PointerTo(t).Implements(unmarshalerType) {
		return toPlain(value)
	}
	switch t.Kind() {
	case reflect.Map:
		switch v := value.(type) {
		case Map:
			obj := make(map[string]any, len(v))
			for _, e := range v {
				obj[formatKey(e.Key)] = plainFor(e.Value, t.Elem())
			}
			return obj
		case map[string]any:
			obj := make(map[string]any, len(v))
			for k, x := range v {
				obj[k] = plainFor(x, t.Elem())
			}
			return obj
		}
	case reflect.Slice, reflect.Array:
		items, ok := value.([]any)
		if s, isSet := value.(Set); isSet {
			items, ok = []any(s), true
		}
		if ok {
			out := make([]any, len(items))
			for i, x := range items {
				out[i] = plainFor(x, t.Elem())
			}
			return out
		}
	case reflect.Struct:
		if obj, ok := value.(map[string]any); ok {
			fields := structFields(t)
			out := make(map[string]any, len(obj))
			for k, x := range obj {
				if ft := fieldType(t, fields, k); ft != nil {
					out[k] = plainFor(x, ft)
				} else {
					out[k] = toPlain(x)
				}
			}
			return out
		}
	}
	return toPlain(value)
}

// fieldType finds the field encoding/json would fill for key.
func fieldType(t reflect.Type, fields []field, key string) reflect.Type {
	for _, f := range fields {
		if f.name == key {
			return t.FieldByIndex(f.index).Type
		}
	}
	for _, f := range fields {
		if strings.EqualFold(f.name, key) {
			return t.FieldByIndex(f.index).Type
		}
	}
	return nil
}

func formatKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(k)
	case time.Time:
		return k.UTC().Format(isoLayout)
	case *big.Int:
		return k.String()
	}
	return fmt.Sprint(key)
}
