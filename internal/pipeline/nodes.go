package pipeline

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// tracingNode implements the Tracing phase: it records trap entry/exit
// through the owning List's Tracer, if set.
type tracingNode struct {
	next cylinder.TrapSet
	list *List
}

func (n *tracingNode) SetNext(next cylinder.TrapSet) { n.next = next }

func (n *tracingNode) trace(event, trap string, target *shadow.Shadow) {
	if n.list != nil && n.list.Tracer != nil {
		n.list.Tracer(event, trap, target)
	}
}

func (n *tracingNode) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	n.trace("enter", "get", target)
	v, err := n.next.Get(target, key, receiver)
	n.trace("exit", "get", target)
	return v, err
}
func (n *tracingNode) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	n.trace("enter", "set", target)
	err := n.next.Set(target, key, value, receiver)
	n.trace("exit", "set", target)
	return err
}
func (n *tracingNode) Has(target *shadow.Shadow, key any) (bool, error) {
	n.trace("enter", "has", target)
	v, err := n.next.Has(target, key)
	n.trace("exit", "has", target)
	return v, err
}
func (n *tracingNode) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	n.trace("enter", "getOwnPropertyDescriptor", target)
	d, ok, err := n.next.GetOwnPropertyDescriptor(target, key)
	n.trace("exit", "getOwnPropertyDescriptor", target)
	return d, ok, err
}
func (n *tracingNode) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	n.trace("enter", "defineProperty", target)
	ok, err := n.next.DefineProperty(target, key, d)
	n.trace("exit", "defineProperty", target)
	return ok, err
}
func (n *tracingNode) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	n.trace("enter", "deleteProperty", target)
	ok, err := n.next.DeleteProperty(target, key)
	n.trace("exit", "deleteProperty", target)
	return ok, err
}
func (n *tracingNode) OwnKeys(target *shadow.Shadow) ([]any, error) {
	n.trace("enter", "ownKeys", target)
	v, err := n.next.OwnKeys(target)
	n.trace("exit", "ownKeys", target)
	return v, err
}
func (n *tracingNode) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	n.trace("enter", "getPrototypeOf", target)
	v, err := n.next.GetPrototypeOf(target)
	n.trace("exit", "getPrototypeOf", target)
	return v, err
}
func (n *tracingNode) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	n.trace("enter", "setPrototypeOf", target)
	ok, err := n.next.SetPrototypeOf(target, proto)
	n.trace("exit", "setPrototypeOf", target)
	return ok, err
}
func (n *tracingNode) IsExtensible(target *shadow.Shadow) (bool, error) {
	n.trace("enter", "isExtensible", target)
	v, err := n.next.IsExtensible(target)
	n.trace("exit", "isExtensible", target)
	return v, err
}
func (n *tracingNode) PreventExtensions(target *shadow.Shadow) (bool, error) {
	n.trace("enter", "preventExtensions", target)
	ok, err := n.next.PreventExtensions(target)
	n.trace("exit", "preventExtensions", target)
	return ok, err
}
func (n *tracingNode) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	n.trace("enter", "apply", target)
	v, err := n.next.Apply(target, thisArg, args)
	n.trace("exit", "apply", target)
	return v, err
}
func (n *tracingNode) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	n.trace("enter", "construct", target)
	v, err := n.next.Construct(target, args, newTarget)
	n.trace("exit", "construct", target)
	return v, err
}

// passthroughNode forwards every trap to next unmodified; named stages that
// don't need to intercept a given trap embed it.
type passthroughNode struct {
	next cylinder.TrapSet
}

func (n *passthroughNode) SetNext(next cylinder.TrapSet) { n.next = next }
func (n *passthroughNode) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	return n.next.Get(target, key, receiver)
}
func (n *passthroughNode) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	return n.next.Set(target, key, value, receiver)
}
func (n *passthroughNode) Has(target *shadow.Shadow, key any) (bool, error) {
	return n.next.Has(target, key)
}
func (n *passthroughNode) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	return n.next.GetOwnPropertyDescriptor(target, key)
}
func (n *passthroughNode) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	return n.next.DefineProperty(target, key, d)
}
func (n *passthroughNode) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	return n.next.DeleteProperty(target, key)
}
func (n *passthroughNode) OwnKeys(target *shadow.Shadow) ([]any, error) {
	return n.next.OwnKeys(target)
}
func (n *passthroughNode) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	return n.next.GetPrototypeOf(target)
}
func (n *passthroughNode) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	return n.next.SetPrototypeOf(target, proto)
}
func (n *passthroughNode) IsExtensible(target *shadow.Shadow) (bool, error) {
	return n.next.IsExtensible(target)
}
func (n *passthroughNode) PreventExtensions(target *shadow.Shadow) (bool, error) {
	return n.next.PreventExtensions(target)
}
func (n *passthroughNode) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	return n.next.Apply(target, thisArg, args)
}
func (n *passthroughNode) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	return n.next.Construct(target, args, newTarget)
}

// invariantInNode validates argument shape before descent (GraphInvariantIn).
type invariantInNode struct{ passthroughNode }

func (n *invariantInNode) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	if target == nil {
		return fmt.Errorf("pipeline: GraphInvariantIn: nil shadow target")
	}
	return n.passthroughNode.Set(target, key, value, receiver)
}

// forwardingNode delegates to next (Forwarding); it exists as a named,
// addressable stage for InsertHandler leadName references even though its
// behavior is identical to passthroughNode.
type forwardingNode struct{ passthroughNode }

// convertFromShadowNode resolves the shadow to the real value before
// descent; the actual resolution happens inside the terminal GraphHandler,
// so this stage is a named pass-through hook applications can splice
// behavior before.
type convertFromShadowNode struct{ passthroughNode }

// updateShadowNode reflects defineProperty/preventExtensions results onto
// the shadow after next returns. The terminal GraphHandler already performs
// this pinning inline (traps.go), so this stage is a named extension point
// for application-inserted post-processing.
type updateShadowNode struct{ passthroughNode }

// invariantOutNode validates the return value (GraphInvariantOut).
type invariantOutNode struct{ passthroughNode }
