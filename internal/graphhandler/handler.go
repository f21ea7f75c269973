// Package graphhandler implements the per-graph GraphHandler: the trap
// vtable that mediates every operation performed on a proxy in one graph
// (spec.md §4.2).
//
// Ownership boundary:
// - trap algorithms (get/set/has/ownKeys/.../apply/construct)
//
// - setOwnKeys reconciliation (§4.2.1) and shadow locking (§4.2.2)
//
// - per-handler "in construction" re-entrancy tracking (§5)
//
// Canonical references (consult before changes):
// - spec.md §4.2 GraphHandler
// - spec.md §5 Concurrency & resource model (re-entrancy hazards)
package graphhandler

import (
	"fmt"
	"sync"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/realvalue"
	"github.com/brinklayer/membrane/internal/shadow"
)

// Wrapper is the narrow slice of the membrane facade a Handler needs: wrap
// crossing values, read/write the value map, and fire function listeners.
// Kept narrow so this package never imports the facade package (mirrors the
// node.Node pattern: the low-level package defines the interface it needs,
// the high-level package satisfies it).
type Wrapper interface {
	ConvertArgumentToProxy(origin, target cylinder.GraphName, v any) (any, error)
	Lookup(key any) (*cylinder.Cylinder, bool)
	RegisterValue(key any, c *cylinder.Cylinder)
	IsGraphRevoked(g cylinder.GraphName) bool
	FireFunctionListener(reason, trapName string, thisGraph, originGraph cylinder.GraphName, target any, rvOrExn any)
}

// constructionState is one re-entrancy record: a real value is "under
// construction" while its proxy for this graph is still being assembled
// (spec.md §5 "ProxyListeners creating nested proxies").
type constructionState struct {
	finalizers []func()
}

// Handler is the GraphHandler for one graph.
type Handler struct {
	Graph   cylinder.GraphName
	Wrapper Wrapper

	mu                sync.Mutex
	underConstruction map[any]*constructionState
}

// New creates a GraphHandler for graph g.
func New(g cylinder.GraphName, w Wrapper) *Handler {
	return &Handler{
		Graph:             g,
		Wrapper:           w,
		underConstruction: make(map[any]*constructionState),
	}
}

var _ cylinder.TrapSet = (*Handler)(nil)

// BeginConstruction marks real as under construction on this graph, so any
// shadow-locking lazy getter that fires for it during the window is queued
// instead of replaced immediately (spec.md §4.2.2 re-entrancy case).
func (h *Handler) BeginConstruction(real any) func() {
	h.mu.Lock()
	h.underConstruction[real] = &constructionState{}
	h.mu.Unlock()
	return func() { h.endConstruction(real) }
}

func (h *Handler) endConstruction(real any) {
	h.mu.Lock()
	st := h.underConstruction[real]
	delete(h.underConstruction, real)
	h.mu.Unlock()
	if st == nil {
		return
	}
	for _, fn := range st.finalizers {
		fn()
	}
}

func (h *Handler) isUnderConstruction(real any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.underConstruction[real]
	return ok
}

func (h *Handler) deferFinalizer(real any, fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.underConstruction[real]
	if !ok {
		return false
	}
	st.finalizers = append(st.finalizers, fn)
	return true
}

// resolve maps a shadow target back to its cylinder, the real value, and the
// origin graph, failing Revoked if either side has been torn down.
func (h *Handler) resolve(target *shadow.Shadow) (*cylinder.Cylinder, any, cylinder.GraphName, error) {
	c, ok := h.Wrapper.Lookup(target)
	if !ok {
		return nil, nil, "", fmt.Errorf("%w", ErrUnknownShadow)
	}
	origin := c.OriginGraph()
	if h.Wrapper.IsGraphRevoked(h.Graph) || h.Wrapper.IsGraphRevoked(origin) || c.IsDead(h.Graph) || c.IsDead(origin) {
		return nil, nil, "", fmt.Errorf("%w", ErrRevoked)
	}
	real, err := c.GetOriginal()
	if err != nil {
		return nil, nil, "", err
	}
	return c, real, origin, nil
}

func (h *Handler) trapDisabled(c *cylinder.Cylinder, trapName string) (bool, error) {
	return c.GetLocalFlag(h.Graph, "disableTrap("+trapName+")")
}

func (h *Handler) checkDisabled(c *cylinder.Cylinder, trapName string) error {
	disabled, err := h.trapDisabled(c, trapName)
	if err != nil {
		return err
	}
	if disabled {
		return fmt.Errorf("%w: %s", ErrTrapDisabled, trapName)
	}
	return nil
}

func (h *Handler) shouldBeLocal(c *cylinder.Cylinder, real any) bool {
	return h.localFlagAlongChain(c, real, "storeUnknownAsLocal")
}

func (h *Handler) requiresLocalDelete(c *cylinder.Cylinder, real any) bool {
	return h.localFlagAlongChain(c, real, "requireLocalDelete")
}

// localFlagAlongChain checks flagName on c, then ascends real's prototype
// chain one cylinder at a time, following the same GetPrototypeOf() walk
// ascend() uses for property lookup (spec.md §4.2 step 3 "recurse=true along
// the prototype chain"). A prototype with no cylinder of its own (never
// crossed the membrane) ends the walk.
func (h *Handler) localFlagAlongChain(c *cylinder.Cylinder, real any, flagName string) bool {
	for {
		if local, _ := c.GetLocalFlag(h.Graph, flagName); local {
			return true
		}
		ro, err := asRealObject(real)
		if err != nil {
			return false
		}
		proto, err := ro.GetPrototypeOf()
		if err != nil || proto == nil {
			return false
		}
		protoCylinder, ok := h.Wrapper.Lookup(proto)
		if !ok {
			return false
		}
		c, real = protoCylinder, proto
	}
}

// wrapOut converts a value that just crossed from origin into this graph.
func (h *Handler) wrapOut(origin any, originGraph cylinder.GraphName, v any) (any, error) {
	return h.Wrapper.ConvertArgumentToProxy(originGraph, h.Graph, v)
}

// wrapIn converts a value moving from this graph back into origin space.
func (h *Handler) wrapIn(originGraph cylinder.GraphName, v any) (any, error) {
	return h.Wrapper.ConvertArgumentToProxy(h.Graph, originGraph, v)
}

// wrapDescriptorOut recursively converts the value/get/set slots of a
// descriptor crossing from originGraph into this graph.
func (h *Handler) wrapDescriptorOut(originGraph cylinder.GraphName, d descriptor.Descriptor) (descriptor.Descriptor, error) {
	if d.Kind == descriptor.DataDescriptor {
		wrapped, err := h.wrapOut(nil, originGraph, d.Value)
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
			return h.wrapOut(nil, originGraph, v)
		}
	}
	if d.Set != nil {
		inner := d.Set
		out.Set = func(receiver any, value any) error {
			wrapped, err := h.wrapIn(originGraph, value)
			if err != nil {
				return err
			}
			return inner(receiver, wrapped)
		}
	}
	return out, nil
}

// ensureReceiverMapping implements spec.md §5's third re-entrancy hazard:
// a Set trap may be invoked with a receiver that has never crossed the
// membrane (e.g. a subclass instance reassigning through an inherited
// accessor). Bootstrap a self-origin cylinder for it so later traps on the
// same receiver find a mapping instead of treating it as a bare value.
func (h *Handler) ensureReceiverMapping(receiver any) {
	if receiver == nil {
		return
	}
	if descriptor.IsPrimitive(receiver) {
		return
	}
	if _, ok := h.Wrapper.Lookup(receiver); ok {
		return
	}
	c := cylinder.New(h.Graph)
	if err := c.SetMetadata(nil, h.Graph, cylinder.EntryOptions{Kind: cylinder.KindOrigin, Value: receiver}); err != nil {
		return
	}
	h.Wrapper.RegisterValue(receiver, c)
}

// asRealObject adapts a real value to the meta-object protocol, failing if
// it does not implement realvalue.RealObject.
func asRealObject(v any) (realvalue.RealObject, error) {
	ro, ok := v.(realvalue.RealObject)
	if !ok {
		return nil, fmt.Errorf("graphhandler: value of type %T does not implement RealObject", v)
	}
	return ro, nil
}
