// Package document models the loosely-typed provider records written by the
// intake forms. Every accessor narrows explicitly and reports whether the
// stored value had the requested shape; nothing here panics on odd input.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindMapping:
		return "mapping"
	default:
		return "null"
	}
}

// Value is one stored field. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	m    Document
}

// Document is a raw stored record keyed by field name.
type Document map[string]Value

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps n.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array wraps items.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Mapping wraps d.
func Mapping(d Document) Value { return Value{kind: KindMapping, m: d} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null or absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsArray returns the elements held by v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsMapping returns the nested document held by v.
func (v Value) AsMapping() (Document, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	return v.m, true
}

// Get returns the value stored under key, or Null when absent.
func (d Document) Get(key string) Value {
	if d == nil {
		return Null()
	}
	return d[key]
}

// Path walks nested mappings. Any missing or non-mapping hop yields Null.
func (d Document) Path(keys ...string) Value {
	if len(keys) == 0 {
		return Null()
	}
	current := d
	for i, key := range keys {
		v := current.Get(key)
		if i == len(keys)-1 {
			return v
		}
		next, ok := v.AsMapping()
		if !ok {
			return Null()
		}
		current = next
	}
	return Null()
}

// Str returns the string at key when the stored value is a string.
func (d Document) Str(key string) (string, bool) {
	return d.Get(key).AsString()
}

// Parse decodes a JSON object into a Document.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("decode document: expected object, got %T", raw)
	}
	return FromMap(obj), nil
}

// FromMap converts a generic decoded map, e.g. from a JSON or search hit, into a Document.
func FromMap(m map[string]interface{}) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = FromAny(v)
	}
	return doc
}

// FromAny converts a value produced by encoding/json (with or without
// UseNumber) into a Value. Unknown types become Null.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Array(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return Array(items...)
	case map[string]interface{}:
		return Mapping(FromMap(t))
	case Document:
		return Mapping(t)
	case Value:
		return t
	default:
		return Null()
	}
}

// Interface converts v back into plain Go values suitable for encoding/json.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		return v.m.Interface()
	default:
		return nil
	}
}

// Interface converts d into a plain map.
func (d Document) Interface() map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[k] = v.Interface()
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// Keys returns the document's field names in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GoString renders a compact debug form, used in test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.GoString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		return fmt.Sprintf("{%d fields}", len(v.m))
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// Record is a stored document together with its key.
type Record struct {
	ID   string   `json:"id"`
	Data Document `json:"data"`
}
