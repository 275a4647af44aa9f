package dataset

import (
	"bytes"
	"encoding/json"
)

// Record is one parsed row keyed by column name. It remembers key insertion order.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds a record from parallel key/value slices.
func NewRecord(keys []string, values []Value) Record {
	r := Record{values: make(map[string]Value, len(keys))}
	for i, k := range keys {
		v := Null()
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

// Set assigns a value, appending the key when it is new.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value for key, or null when the record lacks it.
func (r Record) Get(key string) Value {
	if v, ok := r.values[key]; ok {
		return v
	}
	return Null()
}

// Keys returns keys in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int { return len(r.keys) }

// MarshalJSON writes the record as an object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
