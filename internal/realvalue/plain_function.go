package realvalue

import "fmt"

// CallFunc is the Go shape of a callable's body.
type CallFunc func(thisArg any, args []any) (any, error)

// ConstructFunc is the Go shape of a constructor's body.
type ConstructFunc func(args []any, newTarget any) (any, error)

// PlainFunction pairs a PlainObject (for ordinary properties such as name or
// length) with a CallFunc, and optionally a ConstructFunc, the way goja's
// function objects layer callability on top of a base object.
type PlainFunction struct {
	*PlainObject

	call      CallFunc
	construct ConstructFunc
	arity     int
}

// NewPlainFunction wraps fn as a RealFunction with the given declared arity.
func NewPlainFunction(arity int, fn CallFunc) *PlainFunction {
	return &PlainFunction{
		PlainObject: NewPlainObject(),
		call:        fn,
		arity:       arity,
	}
}

// WithConstruct attaches a construct body, making the function satisfy
// RealConstructor too.
func (f *PlainFunction) WithConstruct(fn ConstructFunc) *PlainFunction {
	f.construct = fn
	return f
}

func (f *PlainFunction) Call(thisArg any, args []any) (any, error) {
	if f.call == nil {
		return nil, fmt.Errorf("%w", ErrNotCallable)
	}
	return f.call(thisArg, args)
}

func (f *PlainFunction) Arity() int {
	return f.arity
}

func (f *PlainFunction) Construct(args []any, newTarget any) (any, error) {
	if f.construct == nil {
		return nil, fmt.Errorf("%w", ErrNotConstructible)
	}
	return f.construct(args, newTarget)
}

// IsConstructor reports whether f was given a construct body.
func (f *PlainFunction) IsConstructor() bool {
	return f.construct != nil
}
