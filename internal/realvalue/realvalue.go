// Package realvalue defines the meta-object protocol a real value must
// support to be mediation-eligible, and ships PlainObject/PlainFunction, a
// generic implementation of that protocol for callers who would rather not
// write their own. Every host language the original membrane design targets
// (ECMAScript) gives every object this protocol for free; Go does not, so
// the membrane needs an explicit contract to operate against.
//
// Ownership boundary:
// - the RealObject / RealFunction / RealConstructor contracts GraphHandler mediates
//
// - PlainObject / PlainFunction, a map-backed reference implementation
//
// Canonical references (consult before changes):
// - spec.md §4.2 GraphHandler (the operations every trap ultimately performs on the real side)
package realvalue

import (
	"github.com/brinklayer/membrane/internal/descriptor"
)

// RealObject is the ordinary-object meta-object protocol: every operation a
// GraphHandler trap performs on the origin side, named after the ECMAScript
// internal methods spec.md's traps are modeled on.
type RealObject interface {
	Get(key any, receiver any) (any, error)
	Set(key any, value any, receiver any) error
	Has(key any) (bool, error)
	OwnKeys() ([]any, error)
	GetOwnPropertyDescriptor(key any) (descriptor.Descriptor, bool, error)
	DefineOwnProperty(key any, d descriptor.Descriptor) (bool, error)
	DeleteProperty(key any) (bool, error)
	GetPrototypeOf() (any, error)
	SetPrototypeOf(proto any) (bool, error)
	IsExtensible() (bool, error)
	PreventExtensions() (bool, error)
}

// RealFunction is satisfied by real values that may be invoked through the
// apply trap.
type RealFunction interface {
	Call(thisArg any, args []any) (any, error)
	// Arity is the function's declared parameter count, used to resolve a
	// `true` (use-arity) TruncateArgList setting.
	Arity() int
}

// RealConstructor is satisfied by real values that may be invoked through
// the construct trap.
type RealConstructor interface {
	Construct(args []any, newTarget any) (any, error)
}
