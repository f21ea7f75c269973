package membrane

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/realvalue"
	"github.com/brinklayer/membrane/internal/shadow"
)

// WrapOptions configures one ConvertArgumentToProxy call (spec.md §4.3).
type WrapOptions struct {
	// Override, when true, self-destructs any existing cylinder for arg
	// before rebuilding the mapping from scratch.
	Override bool
}

// ConvertArgumentToProxy is the central wrap operation (spec.md §4.3,
// §4.2 step 5): primitives pass through unchanged; the global
// PassThroughFilter or the catalog's ignorable set may also accept a
// non-primitive value and return it unwrapped; otherwise it ensures a cylinder exists with both an origin
// entry on origin and a foreign entry (proxy) on target, and returns the
// target-graph proxy.
func (m *Membrane) ConvertArgumentToProxy(origin, target cylinder.GraphName, arg any) (any, error) {
	return m.convertArgumentToProxy(origin, target, arg, WrapOptions{})
}

// ConvertArgumentToProxyWithOptions is ConvertArgumentToProxy with explicit
// WrapOptions (spec.md §4.3 "options?").
func (m *Membrane) ConvertArgumentToProxyWithOptions(origin, target cylinder.GraphName, arg any, opts WrapOptions) (any, error) {
	return m.convertArgumentToProxy(origin, target, arg, opts)
}

func (m *Membrane) convertArgumentToProxy(origin, target cylinder.GraphName, arg any, opts WrapOptions) (any, error) {
	if descriptor.IsPrimitive(arg) {
		return arg, nil
	}
	if m.passesThrough(target, arg) {
		return arg, nil
	}

	m.mu.RLock()
	bound, isBound := m.boundPairs[boundKey{target, arg}]
	m.mu.RUnlock()
	if isBound {
		return bound, nil
	}

	if opts.Override {
		if c, ok := m.values.Lookup(arg); ok {
			c.SelfDestruct(m)
		}
	}

	c, ok := m.values.Lookup(arg)
	if ok {
		if p, err := c.GetProxy(target); err == nil {
			return p, nil
		}
	} else {
		ro, ok := arg.(realvalue.RealObject)
		if !ok {
			return nil, fmt.Errorf("%w: value of type %T does not implement realvalue.RealObject", ErrPrimitiveWrap, arg)
		}
		var err error
		c, err = m.buildOriginMapping(origin, ro)
		if err != nil {
			return nil, err
		}
	}

	return m.buildForeignMapping(c, origin, target, arg)
}

func (m *Membrane) passesThrough(target cylinder.GraphName, v any) bool {
	if m.passThroughFilter != nil && m.passThroughFilter(target, v) {
		return true
	}
	if m.catalog != nil && m.catalog.IsIgnorable(v) {
		return true
	}
	return false
}

// buildOriginMapping creates a fresh cylinder for a value never seen before
// and records its Origin entry (spec.md §4.3 "buildMapping ... if handler is
// the origin graph").
func (m *Membrane) buildOriginMapping(origin cylinder.GraphName, ro realvalue.RealObject) (*cylinder.Cylinder, error) {
	c := cylinder.New(origin)
	if err := c.SetMetadata(m, origin, cylinder.EntryOptions{Kind: cylinder.KindOrigin, Value: ro}); err != nil {
		return nil, err
	}
	if err := m.notifyProxyListeners(origin, &ListenerMeta{
		Membrane:    m,
		OriginGraph: origin,
		TargetGraph: origin,
		RealValue:   ro,
		shadowMode:  shadowModePrepared,
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// buildForeignMapping implements the rest of buildMapping: build a shadow
// for target, wire a revocable *cylinder.Proxy backed by target's handler
// pipeline, store it as the Foreign entry, and fire the target-side
// ProxyNotify (spec.md §4.3, §4.2.3).
func (m *Membrane) buildForeignMapping(c *cylinder.Cylinder, origin, target cylinder.GraphName, real any) (any, error) {
	ro, err := realObjectOf(real)
	if err != nil {
		return nil, err
	}

	kind := shadow.KindObject
	if _, isFn := ro.(realvalue.RealFunction); isFn {
		kind = shadow.KindFunction
	}
	sh := shadow.New(kind)
	if extensible, err := ro.IsExtensible(); err == nil && !extensible {
		sh.PreventExtensions()
	}

	if _, err := m.GetHandlerByName(target, true); err != nil {
		return nil, err
	}
	pl := m.pipelineFor(target)
	if pl == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGraph, target)
	}
	trapSet := pl.Resolve(sh)

	revoked := false
	revoke := func() { revoked = true }
	proxy := cylinder.NewProxy(sh, trapSet)

	if err := c.SetMetadata(m, target, cylinder.EntryOptions{
		Kind:   cylinder.KindForeign,
		Proxy:  proxy,
		Revoke: revoke,
		Shadow: sh,
	}); err != nil {
		return nil, err
	}
	if m.showGraphName {
		if err := c.SetLocalFlag(target, "showGraphName", true); err != nil {
			return nil, err
		}
	}

	if err := m.notifyProxyListeners(target, &ListenerMeta{
		Membrane:    m,
		OriginGraph: origin,
		TargetGraph: target,
		RealValue:   real,
		Proxy:       proxy,
		shadowMode:  shadowModePrepared,
	}); err != nil {
		return nil, err
	}

	if revoked {
		return nil, fmt.Errorf("%w: proxy revoked during construction notification", ErrGraphOwnershipViolation)
	}
	return proxy, nil
}

func realObjectOf(v any) (realvalue.RealObject, error) {
	ro, ok := v.(realvalue.RealObject)
	if !ok {
		return nil, fmt.Errorf("%w: value of type %T does not implement realvalue.RealObject", ErrPrimitiveWrap, v)
	}
	return ro, nil
}

// BuildMapping is the standalone form of the buildMapping algorithm
// (spec.md §4.3), usable when a caller already knows a value is unbound and
// wants to avoid ConvertArgumentToProxy's existing-binding check.
func (m *Membrane) BuildMapping(handler cylinder.GraphName, value any, origin cylinder.GraphName) (any, error) {
	c, ok := m.values.Lookup(value)
	if !ok {
		ro, err := realObjectOf(value)
		if err != nil {
			return nil, err
		}
		c, err = m.buildOriginMapping(origin, ro)
		if err != nil {
			return nil, err
		}
	}
	if handler == origin {
		return value, nil
	}
	return m.buildForeignMapping(c, origin, handler, value)
}

// WrapDescriptor re-expresses a descriptor's Value/Get/Set payload in
// targetGraph's space by recursively wrapping any non-primitive field
// through ConvertArgumentToProxy (spec.md §4.2 step 5 applied to
// descriptors).
func (m *Membrane) WrapDescriptor(originGraph, targetGraph cylinder.GraphName, d descriptor.Descriptor) (descriptor.Descriptor, error) {
	out := d
	if d.Kind == descriptor.DataDescriptor {
		wrapped, err := m.ConvertArgumentToProxy(originGraph, targetGraph, d.Value)
		if err != nil {
			return descriptor.Descriptor{}, err
		}
		out.Value = wrapped
		return out, nil
	}
	if d.Get != nil {
		innerGet := d.Get
		out.Get = func(receiver any) (any, error) {
			rv, err := innerGet(receiver)
			if err != nil {
				return nil, err
			}
			return m.ConvertArgumentToProxy(originGraph, targetGraph, rv)
		}
	}
	if d.Set != nil {
		innerSet := d.Set
		out.Set = func(receiver any, value any) error {
			return innerSet(receiver, value)
		}
	}
	return out, nil
}

// BindValuesByHandlers cross-wires two independently-originated real values
// so each acts as the other's proxy across the h0/h1 boundary (spec.md §6
// "bindValuesByHandlers", S7): convertArgumentToProxy(h0,h1,v0) === v1 and
// convertArgumentToProxy(h1,h0,v1) === v0 thereafter, with full reference
// identity (neither value is wrapped in a shadow/proxy pair). Both values
// must be previously unbound.
func (m *Membrane) BindValuesByHandlers(h0 cylinder.GraphName, v0 any, h1 cylinder.GraphName, v1 any) error {
	if descriptor.IsPrimitive(v0) || descriptor.IsPrimitive(v1) {
		return fmt.Errorf("%w", ErrPrimitiveWrap)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boundPairs[boundKey{h1, v0}]; ok {
		return fmt.Errorf("%w: v0 already bound into %s", ErrGraphOwnershipViolation, h1)
	}
	if _, ok := m.boundPairs[boundKey{h0, v1}]; ok {
		return fmt.Errorf("%w: v1 already bound into %s", ErrGraphOwnershipViolation, h0)
	}
	if _, ok := m.values.Lookup(v0); ok {
		return fmt.Errorf("%w: v0 already bound", ErrGraphOwnershipViolation)
	}
	if _, ok := m.values.Lookup(v1); ok {
		return fmt.Errorf("%w: v1 already bound", ErrGraphOwnershipViolation)
	}
	m.boundPairs[boundKey{h1, v0}] = v1
	m.boundPairs[boundKey{h0, v1}] = v0
	return nil
}
