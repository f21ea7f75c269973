package rules

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// recognizedTraps is the set of trap names createChainHandler permits
// overriding (spec.md §4.4: "only the recognized trap names may be
// overridden with functions").
var recognizedTraps = map[string]struct{}{
	"get": {}, "set": {}, "has": {}, "getOwnPropertyDescriptor": {},
	"defineProperty": {}, "deleteProperty": {}, "ownKeys": {},
	"getPrototypeOf": {}, "setPrototypeOf": {}, "isExtensible": {},
	"preventExtensions": {}, "apply": {}, "construct": {},
}

// IsRecognizedTrap reports whether name may be overridden on a chain handler.
func IsRecognizedTrap(name string) bool {
	_, ok := recognizedTraps[name]
	return ok
}

// ChainHandler is a new handler built on top of an existing base: either
// direct Reflect-equivalent forwarding (base == nil) or an existing
// GraphHandler. Its nextHandler/baseHandler slots are immutable once built;
// only the trap overrides installed through Override may vary.
type ChainHandler struct {
	base cylinder.TrapSet

	getOverride                      func(target *shadow.Shadow, key any, receiver any) (any, error)
	setOverride                      func(target *shadow.Shadow, key any, value any, receiver any) error
	hasOverride                      func(target *shadow.Shadow, key any) (bool, error)
	getOwnPropertyDescriptorOverride func(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error)
	definePropertyOverride           func(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error)
	deletePropertyOverride           func(target *shadow.Shadow, key any) (bool, error)
	ownKeysOverride                  func(target *shadow.Shadow) ([]any, error)
	getPrototypeOfOverride           func(target *shadow.Shadow) (any, error)
	setPrototypeOfOverride           func(target *shadow.Shadow, proto any) (bool, error)
	isExtensibleOverride             func(target *shadow.Shadow) (bool, error)
	preventExtensionsOverride        func(target *shadow.Shadow) (bool, error)
	applyOverride                    func(target *shadow.Shadow, thisArg any, args []any) (any, error)
	constructOverride                func(target *shadow.Shadow, args []any, newTarget any) (any, error)
}

// reflectBase forwards every trap directly to the shadow, the equivalent of
// a host-language Reflect object: the minimal base a chain handler can sit on.
type reflectBase struct{}

func (reflectBase) Get(target *shadow.Shadow, key any, _ any) (any, error) {
	d, ok, err := target.Get(key)
	if err != nil || !ok {
		return nil, err
	}
	if d.Kind == descriptor.DataDescriptor {
		return d.Value, nil
	}
	return nil, nil
}
func (reflectBase) Set(target *shadow.Shadow, key any, value any, _ any) error {
	return target.DefineOwn(key, descriptor.NewDataDescriptor(value, true, true, true))
}
func (reflectBase) Has(target *shadow.Shadow, key any) (bool, error) { return target.HasOwn(key), nil }
func (reflectBase) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	return target.Get(key)
}
func (reflectBase) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	if err := target.DefineOwn(key, d); err != nil {
		return false, err
	}
	return true, nil
}
func (reflectBase) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	if err := target.Delete(key); err != nil {
		return false, err
	}
	return true, nil
}
func (reflectBase) OwnKeys(target *shadow.Shadow) ([]any, error) { return target.OwnKeys(), nil }
func (reflectBase) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	p, _ := target.Prototype()
	return p, nil
}
func (reflectBase) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	if err := target.SetPrototype(proto); err != nil {
		return false, err
	}
	return true, nil
}
func (reflectBase) IsExtensible(target *shadow.Shadow) (bool, error) { return target.IsExtensible(), nil }
func (reflectBase) PreventExtensions(target *shadow.Shadow) (bool, error) {
	target.PreventExtensions()
	return true, nil
}
func (reflectBase) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	return nil, fmt.Errorf("rules: reflect base is not callable")
}
func (reflectBase) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	return nil, fmt.Errorf("rules: reflect base is not a constructor")
}

// CreateChainHandler builds a ChainHandler over base (nil selects the
// Reflect-equivalent base).
func CreateChainHandler(base cylinder.TrapSet) *ChainHandler {
	if base == nil {
		base = reflectBase{}
	}
	return &ChainHandler{base: base}
}

// Override installs fn as the implementation of the named trap. name must be
// one of the 13 recognized trap names and fn must match that trap's shape.
func (c *ChainHandler) Override(name string, fn any) error {
	if !IsRecognizedTrap(name) {
		return fmt.Errorf("rules: %q is not a recognized trap name", name)
	}
	var ok bool
	switch name {
	case "get":
		c.getOverride, ok = fn.(func(*shadow.Shadow, any, any) (any, error))
	case "set":
		c.setOverride, ok = fn.(func(*shadow.Shadow, any, any, any) error)
	case "has":
		c.hasOverride, ok = fn.(func(*shadow.Shadow, any) (bool, error))
	case "getOwnPropertyDescriptor":
		c.getOwnPropertyDescriptorOverride, ok = fn.(func(*shadow.Shadow, any) (descriptor.Descriptor, bool, error))
	case "defineProperty":
		c.definePropertyOverride, ok = fn.(func(*shadow.Shadow, any, descriptor.Descriptor) (bool, error))
	case "deleteProperty":
		c.deletePropertyOverride, ok = fn.(func(*shadow.Shadow, any) (bool, error))
	case "ownKeys":
		c.ownKeysOverride, ok = fn.(func(*shadow.Shadow) ([]any, error))
	case "getPrototypeOf":
		c.getPrototypeOfOverride, ok = fn.(func(*shadow.Shadow) (any, error))
	case "setPrototypeOf":
		c.setPrototypeOfOverride, ok = fn.(func(*shadow.Shadow, any) (bool, error))
	case "isExtensible":
		c.isExtensibleOverride, ok = fn.(func(*shadow.Shadow) (bool, error))
	case "preventExtensions":
		c.preventExtensionsOverride, ok = fn.(func(*shadow.Shadow) (bool, error))
	case "apply":
		c.applyOverride, ok = fn.(func(*shadow.Shadow, any, []any) (any, error))
	case "construct":
		c.constructOverride, ok = fn.(func(*shadow.Shadow, []any, any) (any, error))
	}
	if !ok {
		return fmt.Errorf("rules: override for %q has the wrong signature", name)
	}
	return nil
}

var _ cylinder.TrapSet = (*ChainHandler)(nil)

func (c *ChainHandler) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	if c.getOverride != nil {
		return c.getOverride(target, key, receiver)
	}
	return c.base.Get(target, key, receiver)
}
func (c *ChainHandler) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	if c.setOverride != nil {
		return c.setOverride(target, key, value, receiver)
	}
	return c.base.Set(target, key, value, receiver)
}
func (c *ChainHandler) Has(target *shadow.Shadow, key any) (bool, error) {
	if c.hasOverride != nil {
		return c.hasOverride(target, key)
	}
	return c.base.Has(target, key)
}
func (c *ChainHandler) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	if c.getOwnPropertyDescriptorOverride != nil {
		return c.getOwnPropertyDescriptorOverride(target, key)
	}
	return c.base.GetOwnPropertyDescriptor(target, key)
}
func (c *ChainHandler) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	if c.definePropertyOverride != nil {
		return c.definePropertyOverride(target, key, d)
	}
	return c.base.DefineProperty(target, key, d)
}
func (c *ChainHandler) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	if c.deletePropertyOverride != nil {
		return c.deletePropertyOverride(target, key)
	}
	return c.base.DeleteProperty(target, key)
}
func (c *ChainHandler) OwnKeys(target *shadow.Shadow) ([]any, error) {
	if c.ownKeysOverride != nil {
		return c.ownKeysOverride(target)
	}
	return c.base.OwnKeys(target)
}
func (c *ChainHandler) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	if c.getPrototypeOfOverride != nil {
		return c.getPrototypeOfOverride(target)
	}
	return c.base.GetPrototypeOf(target)
}
func (c *ChainHandler) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	if c.setPrototypeOfOverride != nil {
		return c.setPrototypeOfOverride(target, proto)
	}
	return c.base.SetPrototypeOf(target, proto)
}
func (c *ChainHandler) IsExtensible(target *shadow.Shadow) (bool, error) {
	if c.isExtensibleOverride != nil {
		return c.isExtensibleOverride(target)
	}
	return c.base.IsExtensible(target)
}
func (c *ChainHandler) PreventExtensions(target *shadow.Shadow) (bool, error) {
	if c.preventExtensionsOverride != nil {
		return c.preventExtensionsOverride(target)
	}
	return c.base.PreventExtensions(target)
}
func (c *ChainHandler) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	if c.applyOverride != nil {
		return c.applyOverride(target, thisArg, args)
	}
	return c.base.Apply(target, thisArg, args)
}
func (c *ChainHandler) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	if c.constructOverride != nil {
		return c.constructOverride(target, args, newTarget)
	}
	return c.base.Construct(target, args, newTarget)
}

// ReplaceProxy installs a new proxy/revoke pair using oldProxy's existing
// shadow, atomically swapping it into the cylinder (spec.md §4.4). The new
// proxy's revoke callback tears down only g's own entry (RemoveGraph), not
// the whole cylinder: revoking a proxy on one graph must not also revoke
// every other graph's unrelated view of the same real value.
func (r *Rules) ReplaceProxy(g cylinder.GraphName, oldProxy any, handler cylinder.TrapSet) (*cylinder.Proxy, error) {
	c, err := r.currentCylinder(g, oldProxy)
	if err != nil {
		return nil, err
	}
	target, err := c.GetShadowTarget(g)
	if err != nil {
		return nil, err
	}
	reg := r.Wrapper.(registrarAdapter)
	newProxy := cylinder.NewProxy(target, handler)
	revoke := func() { _ = c.RemoveGraph(reg, g) }
	if err := c.SetMetadata(reg, g, cylinder.EntryOptions{
		Kind:     cylinder.KindForeign,
		Proxy:    newProxy,
		Revoke:   revoke,
		Shadow:   target,
		Override: true,
	}); err != nil {
		return nil, err
	}
	r.Wrapper.RegisterValue(newProxy, c)
	return newProxy, nil
}

// registrarAdapter lets Rules.Wrapper (a narrow rules.Wrapper) satisfy
// cylinder.Registrar without rules importing the membrane facade.
type registrarAdapter interface {
	cylinder.Registrar
}
