package superjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type envelope struct {
	JSON any   `json:"json"`
	Meta *meta `json:"meta,omitempty"`
}

type meta struct {
	Values any `json:"values,omitempty"`
}

// Serialize encodes v into the {"json": ..., "meta": ...} wire form.
func Serialize(v any) (json.RawMessage, error) {
	plain, ann, err := walk(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	env := envelope{JSON: plain}
	if ann != nil {
		env.Meta = &meta{Values: ann}
	}
	return marshal(env)
}

func marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// escapeKey makes an object key safe to use as a path segment.
func escapeKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}

// node collects the annotations of a value's children.
type node struct {
	typ   string
	inner map[string]any
}

func (n *node) add(key string, ann any) {
	switch a := ann.(type) {
	case nil:
	case []any:
		n.set(key, a)
	case map[string]any:
		for sub, tree := range a {
			n.set(key+"."+sub, tree)
		}
	}
}

func (n *node) set(key string, tree any) {
	if n.inner == nil {
		n.inner = make(map[string]any)
	}
	n.inner[key] = tree
}

func (n *node) annotation() any {
	switch {
	case n.typ == "" && len(n.inner) == 0:
		return nil
	case n.typ == "":
		return n.inner
	case len(n.inner) == 0:
		return []any{n.typ}
	default:
		return []any{n.typ, n.inner}
	}
}

func leaf(typ string) any {
	return []any{typ}
}

func walk(v reflect.Value) (any, any, error) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil, nil
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil, nil
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Undefined:
			return nil, leaf(TypeUndefined), nil
		case time.Time:
			return x.UTC().Format(isoLayout), leaf(TypeDate), nil
		case *time.Time:
			return x.UTC().Format(isoLayout), leaf(TypeDate), nil
		case *big.Int:
			return x.String(), leaf(TypeBigInt), nil
		case big.Int:
			return x.String(), leaf(TypeBigInt), nil
		case *regexp.Regexp:
			return "/" + x.String() + "/", leaf(TypeRegExp), nil
		case *url.URL:
			return x.String(), leaf(TypeURL), nil
		case Map:
			return walkMap(x)
		case Set:
			return walkSeq(reflect.ValueOf([]any(x)), TypeSet)
		case json.RawMessage:
			return x, nil, nil
		case error:
			return map[string]any{"name": "Error", "message": x.Error()}, leaf(TypeError), nil
		case json.Marshaler:
			raw, err := x.MarshalJSON()
			if err != nil {
				return nil, nil, fmt.Errorf("superjson: marshal %s: %w", v.Type(), err)
			}
			return json.RawMessage(raw), nil, nil
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		return walk(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil, nil
	case reflect.String:
		return v.String(), nil, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil, nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return "NaN", leaf(TypeNumber), nil
		case math.IsInf(f, 1):
			return "Infinity", leaf(TypeNumber), nil
		case math.IsInf(f, -1):
			return "-Infinity", leaf(TypeNumber), nil
		}
		return f, nil, nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// Same base64 form encoding/json uses for []byte.
			return v.Bytes(), nil, nil
		}
		return walkSeq(v, "")
	case reflect.Array:
		return walkSeq(v, "")
	case reflect.Map:
		if v.IsNil() {
			return nil, nil, nil
		}
		if v.Type().Key().Kind() == reflect.String {
			return walkObject(v)
		}
		return walkGoMap(v)
	case reflect.Struct:
		return walkStruct(v)
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
}

func walkSeq(v reflect.Value, typ string) (any, any, error) {
	n := &node{typ: typ}
	out := make([]any, v.Len())
	for i := range out {
		plain, ann, err := walk(v.Index(i))
		if err != nil {
			return nil, nil, err
		}
		out[i] = plain
		n.add(strconv.Itoa(i), ann)
	}
	return out, n.annotation(), nil
}

func walkObject(v reflect.Value) (any, any, error) {
	n := &node{}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		plain, ann, err := walk(iter.Value())
		if err != nil {
			return nil, nil, err
		}
		out[key] = plain
		n.add(escapeKey(key), ann)
	}
	return out, n.annotation(), nil
}

func walkMap(m Map) (any, any, error) {
	n := &node{typ: TypeMap}
	out := make([]any, len(m))
	for i, e := range m {
		k, kAnn, err := walk(reflect.ValueOf(e.Key))
		if err != nil {
			return nil, nil, err
		}
		val, vAnn, err := walk(reflect.ValueOf(e.Value))
		if err != nil {
			return nil, nil, err
		}
		out[i] = []any{k, val}
		n.add(strconv.Itoa(i)+".0", kAnn)
		n.add(strconv.Itoa(i)+".1", vAnn)
	}
	return out, n.annotation(), nil
}

// walkGoMap encodes maps with non-string keys as a "map" annotation. Entries
// are ordered by their formatted key so the output is deterministic.
func walkGoMap(v reflect.Value) (any, any, error) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	m := make(Map, len(keys))
	for i, k := range keys {
		m[i] = MapEntry{Key: k.Interface(), Value: v.MapIndex(k).Interface()}
	}
	return walkMap(m)
}

func walkStruct(v reflect.Value) (any, any, error) {
	n := &node{}
	out := make(map[string]any)
	for _, f := range structFields(v.Type()) {
		fv, err := v.FieldByIndexErr(f.index)
		if err != nil {
			// Nil embedded pointer.
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		plain, ann, err := walk(fv)
		if err != nil {
			return nil, nil, err
		}
		out[f.name] = plain
		n.add(escapeKey(f.name), ann)
	}
	return out, n.annotation(), nil
}

type field struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map // map[reflect.Type][]field

func structFields(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	seen := make(map[string]bool)
	fields := collectFields(t, nil, seen)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, prefix []int, seen map[string]bool) []field {
	var out []field
	var embedded []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, sf)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, field{
			name:      name,
			index:     append(append([]int(nil), prefix...), i),
			omitEmpty: strings.Contains(","+opts+",", ",omitempty,"),
		})
	}
	// Fields of embedded structs are shadowed by the outer struct's fields.
	for _, sf := range embedded {
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		out = append(out, collectFields(ft, append(append([]int(nil), prefix...), sf.Index...), seen)...)
	}
	return out
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
