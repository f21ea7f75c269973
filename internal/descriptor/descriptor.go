// Package descriptor models ECMAScript-style property descriptors and the
// primitive/object/function value taxonomy the membrane mediates over.
//
// Ownership boundary:
// - descriptor kind classification (data vs accessor)
//
// - primitive/object/function taxonomy used by every other membrane package
package descriptor

import (
	"reflect"
)

// Kind distinguishes a data descriptor from an accessor descriptor.
type Kind int

const (
	// DataDescriptor carries a plain value.
	DataDescriptor Kind = iota
	// AccessorDescriptor carries a getter/setter pair.
	AccessorDescriptor
)

func (k Kind) String() string {
	if k == AccessorDescriptor {
		return "accessor"
	}
	return "data"
}

// Getter reads a property's current value from the given receiver.
type Getter func(receiver any) (any, error)

// Setter writes a property's value on the given receiver.
type Setter func(receiver any, value any) error

// Descriptor is the tagged variant named in the design notes:
// Data{value, writable, enumerable, configurable} | Accessor{get?, set?, enumerable, configurable}.
type Descriptor struct {
	Kind Kind

	// Data fields.
	Value    any
	Writable bool

	// Accessor fields.
	Get Getter
	Set Setter

	// Shared fields.
	Enumerable   bool
	Configurable bool
}

// NewDataDescriptor builds a data descriptor.
func NewDataDescriptor(value any, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Kind:         DataDescriptor,
		Value:        value,
		Writable:     writable,
		Enumerable:   enumerable,
		Configurable: configurable,
	}
}

// NewAccessorDescriptor builds an accessor descriptor.
func NewAccessorDescriptor(get Getter, set Setter, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Kind:         AccessorDescriptor,
		Get:          get,
		Set:          set,
		Enumerable:   enumerable,
		Configurable: configurable,
	}
}

// IsAccessor reports whether d carries a getter/setter pair.
func (d Descriptor) IsAccessor() bool {
	return d.Kind == AccessorDescriptor
}

// IsDataAndWritable reports whether d is a writable data descriptor.
func (d Descriptor) IsDataAndWritable() bool {
	return d.Kind == DataDescriptor && d.Writable
}

// Equal reports observational equality for the round-trip property (spec.md §8.6):
// reading a descriptor then writing it back must be a no-op.
func (d Descriptor) Equal(other Descriptor) bool {
	if d.Kind != other.Kind || d.Enumerable != other.Enumerable || d.Configurable != other.Configurable {
		return false
	}
	if d.Kind == DataDescriptor {
		return d.Writable == other.Writable && sameValue(d.Value, other.Value)
	}
	return (d.Get == nil) == (other.Get == nil) && (d.Set == nil) == (other.Set == nil)
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	if av.Comparable() && bv.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// ValueKind classifies a real value the way spec.md §1/§3 requires: primitives
// pass through the membrane untouched; everything else is mediation-eligible.
type ValueKind int

const (
	// Primitive values are never wrapped.
	Primitive ValueKind = iota
	// Function values are wrapped and support apply/construct traps.
	Function
	// Obj is any other mediation-eligible value (struct pointer, map, slice, channel, interface).
	Obj
)

// Classify returns the taxonomy bucket for v.
func Classify(v any) ValueKind {
	if v == nil {
		return Primitive
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return Primitive
	case reflect.Func:
		return Function
	default:
		return Obj
	}
}

// IsPrimitive reports whether v must pass through the membrane unwrapped.
func IsPrimitive(v any) bool {
	return Classify(v) == Primitive
}
