package cylinder

import (
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// TrapSet is the 13-method vtable every GraphHandler and pipeline node
// implements, one method per intercepted meta-object operation (spec.md §9
// "Trap dispatch polymorphism").
type TrapSet interface {
	Get(target *shadow.Shadow, key any, receiver any) (any, error)
	Set(target *shadow.Shadow, key any, value any, receiver any) error
	Has(target *shadow.Shadow, key any) (bool, error)
	GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error)
	DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error)
	DeleteProperty(target *shadow.Shadow, key any) (bool, error)
	OwnKeys(target *shadow.Shadow) ([]any, error)
	GetPrototypeOf(target *shadow.Shadow) (any, error)
	SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error)
	IsExtensible(target *shadow.Shadow) (bool, error)
	PreventExtensions(target *shadow.Shadow) (bool, error)
	Apply(target *shadow.Shadow, thisArg any, args []any) (any, error)
	Construct(target *shadow.Shadow, args []any, newTarget any) (any, error)
}

// Proxy is the value handed to a foreign graph: it pairs one ShadowTarget
// with the TrapSet that mediates every operation performed on it. It is the
// closest Go stand-in for a host-language Proxy object, since Go has no
// native interception mechanism to piggyback on.
type Proxy struct {
	Shadow  *shadow.Shadow
	Handler TrapSet
}

// NewProxy builds a Proxy over the given shadow and trap set.
func NewProxy(target *shadow.Shadow, handler TrapSet) *Proxy {
	return &Proxy{Shadow: target, Handler: handler}
}

func (p *Proxy) Get(key, receiver any) (any, error) {
	return p.Handler.Get(p.Shadow, key, receiver)
}

func (p *Proxy) Set(key, value, receiver any) error {
	return p.Handler.Set(p.Shadow, key, value, receiver)
}

func (p *Proxy) Has(key any) (bool, error) {
	return p.Handler.Has(p.Shadow, key)
}

func (p *Proxy) GetOwnPropertyDescriptor(key any) (descriptor.Descriptor, bool, error) {
	return p.Handler.GetOwnPropertyDescriptor(p.Shadow, key)
}

func (p *Proxy) DefineProperty(key any, d descriptor.Descriptor) (bool, error) {
	return p.Handler.DefineProperty(p.Shadow, key, d)
}

func (p *Proxy) DeleteProperty(key any) (bool, error) {
	return p.Handler.DeleteProperty(p.Shadow, key)
}

func (p *Proxy) OwnKeys() ([]any, error) {
	return p.Handler.OwnKeys(p.Shadow)
}

func (p *Proxy) GetPrototypeOf() (any, error) {
	return p.Handler.GetPrototypeOf(p.Shadow)
}

func (p *Proxy) SetPrototypeOf(proto any) (bool, error) {
	return p.Handler.SetPrototypeOf(p.Shadow, proto)
}

func (p *Proxy) IsExtensible() (bool, error) {
	return p.Handler.IsExtensible(p.Shadow)
}

func (p *Proxy) PreventExtensions() (bool, error) {
	return p.Handler.PreventExtensions(p.Shadow)
}

func (p *Proxy) Apply(thisArg any, args []any) (any, error) {
	return p.Handler.Apply(p.Shadow, thisArg, args)
}

func (p *Proxy) Construct(args []any, newTarget any) (any, error) {
	return p.Handler.Construct(p.Shadow, args, newTarget)
}
