// Package dataset loads recorded telemetry datasets into ordered in-memory
// row sequences for replay.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a row value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a loosely-schemaed scalar: null, string, number or bool.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

// Null returns a null value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

// Field is one named value within a row.
type Field struct {
	Name  string
	Value Value
}

// Row is an ordered mapping of field name to value. Field order is the
// dataset's column order and is preserved through cloning and encoding.
type Row struct {
	fields []Field
}

// NewRow creates a row from the given fields.
func NewRow(fields ...Field) Row {
	return Row{fields: fields}
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.fields)
}

// Fields returns the fields in order. The returned slice must not be mutated.
func (r Row) Fields() []Field {
	return r.fields
}

// Get returns the value for a field name.
func (r Row) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set overwrites the named field in place, or appends it if absent.
func (r *Row) Set(name string, v Value) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	fields := make([]Field, len(r.fields))
	copy(fields, r.fields)
	return Row{fields: fields}
}

// MarshalJSON encodes the row as a JSON object preserving field order.
// encoding/json maps would lose the order, so the object is built by hand.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("encode field name %q: %w", f.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
