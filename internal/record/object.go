// Package record holds the value model shared by the ingestion stages:
// insertion-ordered objects, order-preserving JSON decoding and the literal
// text codec behind the round-trip check.
package record

import (
	"bytes"
	"encoding/json"
)

// Value is a JSON-compatible value. Concrete types are nil, bool,
// json.Number (integers), float64, string, []Value and *Object.
type Value = any

// Object is a string-keyed map that remembers insertion order.
// Overwriting an existing key updates the value in place and keeps the
// key's original position.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Set stores v under key.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each entry in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a shallow copy.
func (o *Object) Clone() *Object {
	c := &Object{
		keys: make([]string, 0, o.Len()),
		vals: make(map[string]Value, o.Len()),
	}
	o.Range(func(k string, v Value) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// MarshalJSON encodes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Len reports the element count of a container value the way a loader
// would report it: keys for objects, elements for arrays, runes for
// strings and 0 for anything else.
func Len(v Value) int {
	switch t := v.(type) {
	case *Object:
		return t.Len()
	case []Value:
		return len(t)
	case string:
		return len([]rune(t))
	default:
		return 0
	}
}

// TypeName names the dynamic type of v for log lines.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []Value:
		return "list"
	case *Object:
		return "object"
	default:
		return "unknown"
	}
}
