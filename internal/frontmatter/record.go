// Package frontmatter parses, merges, and emits the YAML metadata block at the
// top of an entity document. Records keep key order and explicit nulls so a
// hand-edited file survives a read/write cycle.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// PositionKey is host-injected metadata that is never serialized.
const PositionKey = "position"

// Record is an ordered string-keyed mapping. Values are string, int, float64,
// bool, nil (explicit null), []any, or *Record.
//
// A nil *Record behaves as an empty record for every read method.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Of builds a record from alternating key/value arguments. It panics on an odd
// argument count or a non-string key.
func Of(pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("frontmatter: Of requires key/value pairs")
	}
	r := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("frontmatter: key %v is not a string", pairs[i]))
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present, including keys holding nil.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// String returns the value under key when it is a string.
func (r *Record) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Set stores value under key. An existing key keeps its position; a new key is
// appended.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key if present.
func (r *Record) Delete(key string) {
	if r == nil {
		return
	}
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty record.
func (r *Record) Clone() *Record {
	out := NewRecord()
	if r == nil {
		return out
	}
	for _, k := range r.keys {
		out.Set(k, CloneValue(r.values[k]))
	}
	return out
}

// CloneValue deep-copies records and slices; scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// WithoutDeep returns a copy of r with key removed from r and from every
// nested record, including records inside sequences.
func (r *Record) WithoutDeep(key string) *Record {
	out := NewRecord()
	if r == nil {
		return out
	}
	for _, k := range r.keys {
		if k == key {
			continue
		}
		out.Set(k, withoutDeep(r.values[k], key))
	}
	return out
}

func withoutDeep(v any, key string) any {
	switch t := v.(type) {
	case *Record:
		return t.WithoutDeep(key)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = withoutDeep(item, key)
		}
		return out
	default:
		return CloneValue(v)
	}
}

// MarshalJSON writes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("frontmatter: marshal %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Integral numbers decode
// to int, others to float64, nested objects to *Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Record{values: make(map[string]any)}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("frontmatter: expected JSON object")
	}
	rec, err := decodeJSONObject(dec)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

func decodeJSONObject(dec *json.Decoder) (*Record, error) {
	rec := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("frontmatter: object key %v is not a string", tok)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return rec, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			out := []any{}
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		}
		return nil, fmt.Errorf("frontmatter: unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}
