package realvalue

import (
	"fmt"
	"sync"

	"github.com/brinklayer/membrane/internal/descriptor"
)

// PlainObject is a map-backed RealObject, the Go analogue of goja's
// baseObject: an ordered property table plus a prototype link and an
// extensibility flag.
type PlainObject struct {
	mu sync.RWMutex

	values    map[any]descriptor.Descriptor
	propNames []any

	prototype    any
	hasPrototype bool
	extensible   bool
}

// NewPlainObject creates an empty, extensible object with no prototype.
func NewPlainObject() *PlainObject {
	return &PlainObject{
		values:     make(map[any]descriptor.Descriptor),
		extensible: true,
	}
}

// Put is a convenience constructor step: install a plain, fully-writable
// data property (the equivalent of a JS object literal field).
func (o *PlainObject) Put(key any, value any) *PlainObject {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.values[key]; !exists {
		o.propNames = append(o.propNames, key)
	}
	o.values[key] = descriptor.NewDataDescriptor(value, true, true, true)
	return o
}

func (o *PlainObject) Get(key any, _ any) (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.values[key]
	if !ok {
		return nil, nil
	}
	if d.Kind == descriptor.AccessorDescriptor {
		if d.Get == nil {
			return nil, nil
		}
		return d.Get(o)
	}
	return d.Value, nil
}

func (o *PlainObject) Set(key any, value any, receiver any) error {
	o.mu.Lock()
	existing, exists := o.values[key]
	if !exists {
		if !o.extensible {
			o.mu.Unlock()
			return fmt.Errorf("%w: cannot add %v, object is not extensible", ErrNotExtensible, key)
		}
		o.values[key] = descriptor.NewDataDescriptor(value, true, true, true)
		o.propNames = append(o.propNames, key)
		o.mu.Unlock()
		return nil
	}
	if existing.Kind == descriptor.AccessorDescriptor {
		o.mu.Unlock()
		if existing.Set == nil {
			return fmt.Errorf("%w: %v has no setter", ErrReadOnly, key)
		}
		return existing.Set(receiver, value)
	}
	if !existing.Writable {
		o.mu.Unlock()
		return fmt.Errorf("%w: %v is read-only", ErrReadOnly, key)
	}
	existing.Value = value
	o.values[key] = existing
	o.mu.Unlock()
	return nil
}

func (o *PlainObject) Has(key any) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.values[key]
	return ok, nil
}

func (o *PlainObject) OwnKeys() ([]any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]any, len(o.propNames))
	copy(out, o.propNames)
	return out, nil
}

func (o *PlainObject) GetOwnPropertyDescriptor(key any) (descriptor.Descriptor, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.values[key]
	return d, ok, nil
}

func (o *PlainObject) DefineOwnProperty(key any, d descriptor.Descriptor) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	existing, exists := o.values[key]
	if !exists {
		if !o.extensible {
			return false, nil
		}
		o.values[key] = d
		o.propNames = append(o.propNames, key)
		return true, nil
	}
	if !existing.Configurable {
		if d.Configurable {
			return false, nil
		}
		if existing.Kind != d.Kind {
			return false, nil
		}
	}
	o.values[key] = d
	return true, nil
}

func (o *PlainObject) DeleteProperty(key any) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, exists := o.values[key]
	if !exists {
		return true, nil
	}
	if !d.Configurable {
		return false, nil
	}
	delete(o.values, key)
	for i, k := range o.propNames {
		if k == key {
			o.propNames = append(o.propNames[:i], o.propNames[i+1:]...)
			break
		}
	}
	return true, nil
}

func (o *PlainObject) GetPrototypeOf() (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.hasPrototype {
		return nil, nil
	}
	return o.prototype, nil
}

func (o *PlainObject) SetPrototypeOf(proto any) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.extensible {
		return false, nil
	}
	o.prototype = proto
	o.hasPrototype = true
	return true, nil
}

func (o *PlainObject) IsExtensible() (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.extensible, nil
}

func (o *PlainObject) PreventExtensions() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extensible = false
	return true, nil
}
