// Package optional models a field that is either present with a value or
// explicitly absent. Extracted records carry every non-key attribute as an
// optional value, so the reconciliation merge can distinguish "the upstream
// said nothing" from "the upstream said empty" without string-emptiness
// heuristics.
package optional

import "encoding/json"

// Value holds either a value of type T or nothing.
// The zero Value is absent.
type Value[T any] struct {
	v   T
	set bool
}

// Of returns a present Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// None returns an absent Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// FromPtr returns a present Value when p is non-nil, absent otherwise.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Of(*p)
}

// OfNonEmpty returns a present Value when s is non-empty, absent otherwise.
// Extractors use it at the boundary where an empty cell means "not observed".
func OfNonEmpty(s string) Value[string] {
	if s == "" {
		return None[string]()
	}
	return Of(s)
}

// Present reports whether the value is set.
func (o Value[T]) Present() bool {
	return o.set
}

// Get returns the value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.set
}

// MustGet returns the value and panics when absent. Intended for tests
// and for call sites that have already checked Present.
func (o Value[T]) MustGet() T {
	if !o.set {
		panic("optional: MustGet on absent value")
	}
	return o.v
}

// Or returns the value when present, fallback otherwise.
func (o Value[T]) Or(fallback T) T {
	if o.set {
		return o.v
	}
	return fallback
}

// Ptr returns a pointer to the value, or nil when absent. Useful for
// database/sql arguments where nil maps to NULL.
func (o Value[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.v
	return &v
}

// Merge applies the non-regression rule to a single field: the incoming
// value replaces the stored value only when the incoming value is present.
func Merge[T any](stored, incoming Value[T]) Value[T] {
	if incoming.set {
		return incoming
	}
	return stored
}

// MarshalJSON encodes a present value as the value itself and an absent
// value as null.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent and anything else as present.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Of(v)
	return nil
}
