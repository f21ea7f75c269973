package realvalue

import "errors"

// ErrNotExtensible is returned when a property would be added to an object
// that has had PreventExtensions called on it.
var ErrNotExtensible = errors.New("realvalue: object is not extensible")

// ErrReadOnly is returned when Set targets a non-writable data property or
// an accessor property with no setter.
var ErrReadOnly = errors.New("realvalue: property is read-only")

// ErrNotCallable is returned when Call is attempted on a value that does not
// implement RealFunction.
var ErrNotCallable = errors.New("realvalue: value is not callable")

// ErrNotConstructible is returned when Construct is attempted on a value
// that does not implement RealConstructor.
var ErrNotConstructible = errors.New("realvalue: value is not a constructor")
