// Package jsonvalue defines the recursive JSON-value abstraction that
// transformers and provider adapters operate on, instead of passing
// `any`/dynamic bodies through every layer: the body crossing a pipeline
// boundary is always a Value, type-checked once at the boundary rather
// than re-asserted inside every transformer.
package jsonvalue

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Value is a JSON value: nil, bool, float64, string, Array, or *Object.
// Object preserves insertion order so re-marshaled bodies are stable for
// tests and tee payload diffing.
type Value any

// Array is a JSON array.
type Array []Value

// Object is an order-preserving JSON object.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// GetString is a convenience accessor returning "" when absent or not a string.
func (o *Object) GetString(key string) string {
	v, ok := o.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Set inserts or overwrites key, preserving first-insertion order.
func (o *Object) Set(key string, v Value) *Object {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
	return o
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := NewObject()
	for _, k := range o.keys {
		c.Set(k, CloneValue(o.values[k]))
	}
	return c
}

// CloneValue deep-copies an arbitrary Value.
func CloneValue(v Value) Value {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case Array:
		out := make(Array, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON implements order-preserving object encoding.
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON decodes into an order-preserving Object using json.Decoder's
// token stream so original key order is retained.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("jsonvalue: expected object, got %v", tok)
	}
	*o = *NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := Decode(raw)
		if err != nil {
			return err
		}
		o.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}

// Parse decodes a JSON document into a Value (normally *Object).
func Parse(data []byte) (Value, error) {
	return Decode(data)
}

// Decode decodes a single JSON-encoded value, preserving object key order.
func Decode(data []byte) (Value, error) {
	var raw any
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	// Peek at the shape: objects need the order-preserving path.
	var peek any
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, err
	}
	switch peek.(type) {
	case map[string]any:
		obj := NewObject()
		if err := obj.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return obj, nil
	case []any:
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		out := make(Array, len(arr))
		for i, e := range arr {
			v, err := Decode(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if n, ok := raw.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			return f, nil
		}
		return raw, nil
	}
}

// Marshal encodes a Value back to JSON bytes.
func Marshal(v Value) ([]byte, error) {
	return json.Marshal(v)
}

// SortedKeys is a helper for deterministic iteration in tests/diagnostics.
func (o *Object) SortedKeys() []string {
	ks := o.Keys()
	sort.Strings(ks)
	return ks
}

type readerFunc struct {
	data []byte
	pos  int
}

func bytesReader(b []byte) *readerFunc { return &readerFunc{data: b} }

func (r *readerFunc) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
