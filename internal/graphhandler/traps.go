package graphhandler

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/realvalue"
	"github.com/brinklayer/membrane/internal/shadow"
)

// Get implements spec.md §4.2 [[Get]].
func (h *Handler) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return nil, err
	}
	if err := h.checkDisabled(c, "get"); err != nil {
		return nil, err
	}
	if key == membraneGraphNameKey {
		if show, _ := c.GetLocalFlag(h.Graph, "showGraphName"); show {
			return string(h.Graph), nil
		}
	}

	if d, ok, err := c.GetLocalDescriptor(h.Graph, key); err == nil && ok {
		return h.readDescriptor(d, receiver)
	}

	if deleted, _ := c.WasDeletedLocally(h.Graph, key); deleted {
		return h.ascend(c, real, origin, key, receiver)
	}

	ro, err := asRealObject(real)
	if err != nil {
		return nil, err
	}
	d, ok, err := ro.GetOwnPropertyDescriptor(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return h.ascend(c, real, origin, key, receiver)
	}
	wrapped, err := h.wrapDescriptorOut(origin, d)
	if err != nil {
		return nil, err
	}
	realReceiver, err := h.wrapIn(origin, receiver)
	if err != nil {
		return nil, err
	}
	return h.readDescriptor(wrapped, realReceiver)
}

func (h *Handler) readDescriptor(d descriptor.Descriptor, receiver any) (any, error) {
	if d.Kind == descriptor.DataDescriptor {
		return d.Value, nil
	}
	if d.Get == nil {
		return nil, nil
	}
	return d.Get(receiver)
}

func (h *Handler) ascend(c *cylinder.Cylinder, real any, origin cylinder.GraphName, key, receiver any) (any, error) {
	ro, err := asRealObject(real)
	if err != nil {
		return nil, err
	}
	proto, err := ro.GetPrototypeOf()
	if err != nil || proto == nil {
		return nil, err
	}
	wrapped, err := h.wrapOut(nil, origin, proto)
	if err != nil {
		return nil, err
	}
	return getOnAny(wrapped, key, receiver)
}

// Set implements spec.md §4.2 [[Set]].
func (h *Handler) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return err
	}
	if err := h.checkDisabled(c, "set"); err != nil {
		return err
	}
	h.ensureReceiverMapping(receiver)

	if h.shouldBeLocal(c, real) {
		d := descriptor.NewDataDescriptor(value, true, true, true)
		return c.SetLocalDescriptor(h.Graph, key, d)
	}

	if d, ok, _ := c.GetLocalDescriptor(h.Graph, key); ok {
		if d.Kind == descriptor.AccessorDescriptor {
			if d.Set == nil {
				return nil
			}
			return d.Set(receiver, value)
		}
		if !d.Writable {
			return nil
		}
		d.Value = value
		return c.SetLocalDescriptor(h.Graph, key, d)
	}

	ro, err := asRealObject(real)
	if err != nil {
		return err
	}
	existing, ok, err := ro.GetOwnPropertyDescriptor(key)
	if err != nil {
		return err
	}
	wrappedValue, err := h.wrapIn(origin, value)
	if err != nil {
		return err
	}
	if ok && existing.Kind == descriptor.AccessorDescriptor {
		if existing.Set == nil {
			return nil
		}
		realReceiver, err := h.wrapIn(origin, receiver)
		if err != nil {
			return err
		}
		return existing.Set(realReceiver, wrappedValue)
	}
	if ok && !existing.IsDataAndWritable() {
		return nil
	}
	nd := descriptor.NewDataDescriptor(wrappedValue, true, true, true)
	if ok {
		nd.Enumerable, nd.Configurable = existing.Enumerable, existing.Configurable
	}
	_, err = ro.DefineOwnProperty(key, nd)
	return err
}

// Has implements spec.md §4.2 has.
func (h *Handler) Has(target *shadow.Shadow, key any) (bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "has"); err != nil {
		return false, err
	}
	if key == membraneGraphNameKey {
		if show, _ := c.GetLocalFlag(h.Graph, "showGraphName"); show {
			return true, nil
		}
	}
	if _, ok, _ := c.GetLocalDescriptor(h.Graph, key); ok {
		return true, nil
	}
	originFilter, _ := c.GetOwnKeysFilter(origin)
	localFilter, _ := c.GetOwnKeysFilter(h.Graph)
	filtered := (originFilter != nil && !originFilter(key)) || (localFilter != nil && !localFilter(key))
	if deleted, _ := c.WasDeletedLocally(h.Graph, key); deleted || filtered {
		proto, err := h.realPrototype(real, origin)
		if err != nil || proto == nil {
			return false, err
		}
		return hasOnAny(proto, key)
	}
	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}
	has, err := ro.Has(key)
	if err != nil {
		return false, err
	}
	return has, nil
}

// GetOwnPropertyDescriptor implements spec.md §4.2 getOwnPropertyDescriptor.
func (h *Handler) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return descriptor.Descriptor{}, false, err
	}
	if err := h.checkDisabled(c, "getOwnPropertyDescriptor"); err != nil {
		return descriptor.Descriptor{}, false, err
	}
	if key == membraneGraphNameKey {
		if show, _ := c.GetLocalFlag(h.Graph, "showGraphName"); show {
			return descriptor.NewDataDescriptor(string(h.Graph), false, true, false), true, nil
		}
	}

	if deleted, _ := c.WasDeletedLocally(h.Graph, key); deleted {
		return descriptor.Descriptor{}, false, nil
	}
	if d, ok, _ := c.GetLocalDescriptor(h.Graph, key); ok {
		return d, true, nil
	}

	originFilter, _ := c.GetOwnKeysFilter(origin)
	localFilter, _ := c.GetOwnKeysFilter(h.Graph)
	if originFilter != nil && !originFilter(key) {
		return descriptor.Descriptor{}, false, nil
	}
	if localFilter != nil && !localFilter(key) {
		return descriptor.Descriptor{}, false, nil
	}

	ro, err := asRealObject(real)
	if err != nil {
		return descriptor.Descriptor{}, false, err
	}
	d, ok, err := ro.GetOwnPropertyDescriptor(key)
	if err != nil || !ok {
		return descriptor.Descriptor{}, false, err
	}
	wrapped, err := h.wrapDescriptorOut(origin, d)
	if err != nil {
		return descriptor.Descriptor{}, false, err
	}
	if !wrapped.Configurable {
		_ = target.DefineOwn(key, wrapped)
	}
	return wrapped, true, nil
}

// DefineProperty implements spec.md §4.2 defineProperty.
func (h *Handler) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "defineProperty"); err != nil {
		return false, err
	}

	originFilter, _ := c.GetOwnKeysFilter(origin)
	localFilter, _ := c.GetOwnKeysFilter(h.Graph)
	if originFilter != nil && !originFilter(key) {
		return false, nil
	}
	if localFilter != nil && !localFilter(key) {
		return false, nil
	}

	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}

	if h.shouldBeLocal(c, real) {
		if isOwn, _ := ro.Has(key); !isOwn {
			if err := c.SetLocalDescriptor(h.Graph, key, d); err != nil {
				return false, err
			}
			_ = c.InvalidateCachedOwnKeys(h.Graph)
			return true, nil
		}
	}

	wrapped, err := h.wrapDescriptorIn(origin, d)
	if err != nil {
		return false, err
	}
	ok, err := ro.DefineOwnProperty(key, wrapped)
	if err != nil || !ok {
		return ok, err
	}
	if !d.Configurable {
		_ = target.DefineOwn(key, d)
	}
	_ = c.InvalidateCachedOwnKeys(h.Graph)
	return true, nil
}

// wrapDescriptorIn is the reverse of wrapDescriptorOut: converts a
// descriptor's value/get/set slots from this graph into origin space.
func (h *Handler) wrapDescriptorIn(originGraph cylinder.GraphName, d descriptor.Descriptor) (descriptor.Descriptor, error) {
	if d.Kind == descriptor.DataDescriptor {
		wrapped, err := h.wrapIn(originGraph, d.Value)
		if err != nil {
			return descriptor.Descriptor{}, err
		}
		d.Value = wrapped
		return d, nil
	}
	out := d
	if d.Get != nil {
		inner := d.Get
		out.Get = func(receiver any) (any, error) {
			v, err := inner(receiver)
			if err != nil {
				return nil, err
			}
			return h.wrapIn(originGraph, v)
		}
	}
	if d.Set != nil {
		inner := d.Set
		out.Set = func(receiver any, value any) error {
			wrapped, err := h.wrapOut(nil, originGraph, value)
			if err != nil {
				return err
			}
			return inner(receiver, wrapped)
		}
	}
	return out, nil
}

// DeleteProperty implements spec.md §4.2 deleteProperty.
func (h *Handler) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	c, real, _, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "deleteProperty"); err != nil {
		return false, err
	}

	shouldBeLocal := h.requiresLocalDelete(c, real)
	if shouldBeLocal {
		if err := c.DeleteLocalDescriptor(h.Graph, key, true); err != nil {
			return false, err
		}
		_ = c.InvalidateCachedOwnKeys(h.Graph)
		return true, nil
	}

	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}
	ok, err := ro.DeleteProperty(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.DeleteLocalDescriptor(h.Graph, key, false); err != nil {
		return false, err
	}
	_ = c.InvalidateCachedOwnKeys(h.Graph)
	return true, nil
}

// OwnKeys implements spec.md §4.2 ownKeys.
func (h *Handler) OwnKeys(target *shadow.Shadow) ([]any, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return nil, err
	}
	if err := h.checkDisabled(c, "ownKeys"); err != nil {
		return nil, err
	}
	if !target.IsExtensible() {
		return target.OwnKeys(), nil
	}
	if keys, original, ok, _ := c.CachedOwnKeys(h.Graph); ok {
		ro, err := asRealObject(real)
		if err == nil {
			current, cerr := ro.OwnKeys()
			if cerr == nil && sameKeySet(original, current) {
				return keys, nil
			}
		}
	}
	return h.setOwnKeys(c, real, origin, target)
}

func sameKeySet(original map[any]struct{}, current []any) bool {
	if len(original) != len(current) {
		return false
	}
	for _, k := range current {
		if _, ok := original[k]; !ok {
			return false
		}
	}
	return true
}

// GetPrototypeOf implements spec.md §4.2 getPrototypeOf.
func (h *Handler) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return nil, err
	}
	if err := h.checkDisabled(c, "getPrototypeOf"); err != nil {
		return nil, err
	}
	wrapped, err := h.realPrototype(real, origin)
	if err != nil || wrapped == nil {
		return wrapped, err
	}
	if _, hasProto := target.Prototype(); !hasProto {
		_ = target.SetPrototype(wrapped)
	}
	return wrapped, nil
}

// SetPrototypeOf implements spec.md §4.2 setPrototypeOf.
func (h *Handler) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "setPrototypeOf"); err != nil {
		return false, err
	}
	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}
	realProto, err := h.wrapIn(origin, proto)
	if err != nil {
		return false, err
	}
	ok, err := ro.SetPrototypeOf(realProto)
	if err != nil || !ok {
		return ok, err
	}
	_ = target.SetPrototype(proto)
	return true, nil
}

// IsExtensible implements spec.md §4.2 isExtensible.
func (h *Handler) IsExtensible(target *shadow.Shadow) (bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "isExtensible"); err != nil {
		return false, err
	}
	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}
	ext, err := ro.IsExtensible()
	if err != nil {
		return false, err
	}
	if !ext && target.IsExtensible() {
		keys, kerr := h.setOwnKeys(c, real, origin, target)
		if kerr != nil {
			return false, kerr
		}
		if err := h.lockShadow(c, real, origin, target, keys); err != nil {
			return false, err
		}
	}
	return ext, nil
}

// PreventExtensions implements spec.md §4.2 preventExtensions.
func (h *Handler) PreventExtensions(target *shadow.Shadow) (bool, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return false, err
	}
	if err := h.checkDisabled(c, "preventExtensions"); err != nil {
		return false, err
	}
	ro, err := asRealObject(real)
	if err != nil {
		return false, err
	}
	ok, err := ro.PreventExtensions()
	if err != nil || !ok {
		return ok, err
	}
	keys, err := h.setOwnKeys(c, real, origin, target)
	if err != nil {
		return false, err
	}
	if err := h.lockShadow(c, real, origin, target, keys); err != nil {
		return false, err
	}
	return true, nil
}

// Apply implements spec.md §4.2 apply.
func (h *Handler) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	return h.invoke(target, "apply", thisArg, args, nil)
}

// Construct implements spec.md §4.2 construct.
func (h *Handler) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	return h.invoke(target, "construct", nil, args, newTarget)
}

func (h *Handler) invoke(target *shadow.Shadow, trapName string, thisArg any, args []any, newTarget any) (any, error) {
	c, real, origin, err := h.resolve(target)
	if err != nil {
		return nil, err
	}
	if err := h.checkDisabled(c, trapName); err != nil {
		return nil, err
	}

	limit, err := h.truncateLimit(c, origin, real)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && limit < len(args) {
		args = args[:limit]
	}

	realThis, err := h.wrapIn(origin, thisArg)
	if err != nil {
		return nil, err
	}
	realArgs := make([]any, len(args))
	for i, a := range args {
		wrapped, err := h.wrapIn(origin, a)
		if err != nil {
			return nil, err
		}
		realArgs[i] = wrapped
	}
	var realNewTarget any
	if newTarget != nil {
		realNewTarget, err = h.wrapIn(origin, newTarget)
		if err != nil {
			return nil, err
		}
	}

	h.Wrapper.FireFunctionListener("enter", trapName, h.Graph, origin, real, nil)

	var result any
	var callErr error
	if trapName == "construct" {
		result, callErr = h.callConstruct(real, realArgs, realNewTarget)
	} else {
		result, callErr = h.callApply(real, realThis, realArgs)
	}

	if callErr != nil {
		h.Wrapper.FireFunctionListener("throw", trapName, h.Graph, origin, real, callErr)
		return nil, callErr
	}
	wrapped, err := h.wrapOut(nil, origin, result)
	if err != nil {
		h.Wrapper.FireFunctionListener("throw", trapName, h.Graph, origin, real, err)
		return nil, err
	}
	h.Wrapper.FireFunctionListener("return", trapName, h.Graph, origin, real, wrapped)
	return wrapped, nil
}

func (h *Handler) callApply(real, thisArg any, args []any) (any, error) {
	fn, ok := real.(interface {
		Call(thisArg any, args []any) (any, error)
	})
	if !ok {
		return nil, fmt.Errorf("graphhandler: value of type %T is not callable", real)
	}
	return fn.Call(thisArg, args)
}

func (h *Handler) callConstruct(real any, args []any, newTarget any) (any, error) {
	ctor, ok := real.(interface {
		Construct(args []any, newTarget any) (any, error)
	})
	if !ok {
		return nil, fmt.Errorf("graphhandler: value of type %T is not a constructor", real)
	}
	return ctor.Construct(args, newTarget)
}

// truncateLimit resolves min(truncateArgList(origin), truncateArgList(this
// graph)) to a concrete limit, -1 meaning unbounded.
func (h *Handler) truncateLimit(c *cylinder.Cylinder, origin cylinder.GraphName, real any) (int, error) {
	o, err := c.GetTruncateArgList(origin)
	if err != nil {
		return -1, err
	}
	t, err := c.GetTruncateArgList(h.Graph)
	if err != nil {
		return -1, err
	}
	oLimit := resolveTruncate(o, real)
	tLimit := resolveTruncate(t, real)
	if oLimit < 0 {
		return tLimit, nil
	}
	if tLimit < 0 {
		return oLimit, nil
	}
	if oLimit < tLimit {
		return oLimit, nil
	}
	return tLimit, nil
}

func resolveTruncate(t *cylinder.TruncateArgList, real any) int {
	if t == nil || t.Disabled {
		return -1
	}
	if t.UseArity {
		if fn, ok := real.(realvalue.RealFunction); ok {
			return fn.Arity()
		}
		return -1
	}
	return t.Limit
}
