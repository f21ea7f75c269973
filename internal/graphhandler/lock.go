package graphhandler

import (
	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// lockShadow implements spec.md §4.2.2: install a lazy accessor for every
// key in keys, then fix the shadow's prototype and mark it non-extensible.
// If real is currently under construction on this graph (a nested proxy is
// still being assembled on the call stack), the finalizing replacement is
// deferred instead of happening inline, per the §5 re-entrancy hazard.
func (h *Handler) lockShadow(c *cylinder.Cylinder, real any, originGraph cylinder.GraphName, target *shadow.Shadow, keys []any) error {
	resolve := func(s *shadow.Shadow, key any) (descriptor.Descriptor, error) {
		return h.resolveLazyKey(c, real, originGraph, key)
	}

	proto, err := h.realPrototype(real, originGraph)
	if err != nil {
		return err
	}

	if h.isUnderConstruction(real) {
		h.deferFinalizer(real, func() {
			_ = target.Lock(keys, resolve, proto)
		})
		return nil
	}

	return target.Lock(keys, resolve, proto)
}

// resolveLazyKey is the body of every lazy getter installed by lockShadow:
// fetch the real descriptor for key and wrap it into this graph.
func (h *Handler) resolveLazyKey(c *cylinder.Cylinder, real any, originGraph cylinder.GraphName, key any) (descriptor.Descriptor, error) {
	if key == membraneGraphNameKey {
		return descriptor.NewDataDescriptor(string(h.Graph), false, true, false), nil
	}
	ro, err := asRealObject(real)
	if err != nil {
		return descriptor.Descriptor{}, err
	}
	d, ok, err := ro.GetOwnPropertyDescriptor(key)
	if err != nil {
		return descriptor.Descriptor{}, err
	}
	if !ok {
		return descriptor.NewDataDescriptor(nil, true, true, true), nil
	}
	return h.wrapDescriptorOut(originGraph, d)
}

func (h *Handler) realPrototype(real any, originGraph cylinder.GraphName) (any, error) {
	ro, err := asRealObject(real)
	if err != nil {
		return nil, err
	}
	proto, err := ro.GetPrototypeOf()
	if err != nil {
		return nil, err
	}
	if proto == nil {
		return nil, nil
	}
	return h.wrapOut(nil, originGraph, proto)
}
