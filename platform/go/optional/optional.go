// Package optional models request fields that distinguish "absent" from "explicitly null".
package optional

import (
	"bytes"
	"encoding/json"
)

// Value is a tri-state field: unset, set to null, or set to a value.
// The zero value is unset.
type Value[T any] struct {
	Set   bool
	Valid bool
	V     T
}

// Of returns a Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Valid: true, V: v}
}

// Null returns a Value explicitly set to null.
func Null[T any]() Value[T] {
	return Value[T]{Set: true}
}

// FromPtr maps nil to unset and a non-nil pointer to a set value.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return Value[T]{}
	}
	return Of(*p)
}

// Ptr returns nil for unset or null values.
func (v Value[T]) Ptr() *T {
	if !v.Set || !v.Valid {
		return nil
	}
	out := v.V
	return &out
}

// IsNull reports whether the field was present with a JSON null.
func (v Value[T]) IsNull() bool {
	return v.Set && !v.Valid
}

// UnmarshalJSON is only called by encoding/json when the key is present.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Valid = false
		var zero T
		v.V = zero
		return nil
	}
	if err := json.Unmarshal(data, &v.V); err != nil {
		return err
	}
	v.Valid = true
	return nil
}

// MarshalJSON writes null for unset or null values.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Set || !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}
