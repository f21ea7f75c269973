// Package cylinder implements the ProxyCylinder: the per-real-value spine
// that binds one real value to its proxies across every graph it inhabits
// (spec.md §3, §4.1).
//
// Ownership boundary:
// - per-graph entry storage and lifecycle (Origin / Foreign / Dead)
//
// - local property/rule-modification state attached to Origin and Foreign entries
//
// - the TrapSet vtable contract and the Proxy value shape
//
// Canonical references (consult before changes):
// - spec.md §3 Data Model
// - spec.md §4.1 ProxyCylinder
package cylinder

import (
	"fmt"
	"sync"

	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// Registrar is the narrow slice of the membrane's value map a Cylinder needs
// in order to register or tombstone references during setMetadata/selfDestruct/
// revokeAll, without cylinder importing the membrane facade package.
type Registrar interface {
	RegisterValue(key any, c *Cylinder)
	MarkDead(key any)
}

// EntryOptions is the input shape for SetMetadata.
type EntryOptions struct {
	Kind     EntryKind
	Value    any // Origin
	Proxy    *Proxy
	Revoke   func()
	Shadow   *shadow.Shadow
	Override bool
}

// Cylinder is the spine for one real value (spec.md §3).
type Cylinder struct {
	mu sync.RWMutex

	originGraph      GraphName
	originalValueSet bool

	perGraph map[GraphName]*Entry
}

// New creates an empty cylinder with no origin yet bound.
func New(origin GraphName) *Cylinder {
	return &Cylinder{
		originGraph: origin,
		perGraph:    make(map[GraphName]*Entry),
	}
}

// OriginGraph returns the graph that owns the real value.
func (c *Cylinder) OriginGraph() GraphName {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.originGraph
}

func (c *Cylinder) entryLocked(g GraphName) (*Entry, error) {
	e, ok := c.perGraph[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGraph, g)
	}
	if e.Kind == KindDead {
		return nil, fmt.Errorf("%w: %s", ErrDeadGraph, g)
	}
	return e, nil
}

// GetOriginal returns the real value, failing with ErrOriginalNotSet if the
// origin field was never populated.
func (c *Cylinder) GetOriginal() (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.originalValueSet {
		return nil, ErrOriginalNotSet
	}
	e, ok := c.perGraph[c.originGraph]
	if !ok || e.Kind == KindDead {
		return nil, fmt.Errorf("%w: %s", ErrDeadGraph, c.originGraph)
	}
	return e.Value, nil
}

// GetProxy returns the real value when g is the origin graph, else the proxy
// stored under g.
func (c *Cylinder) GetProxy(g GraphName) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, err := c.entryLocked(g)
	if err != nil {
		return nil, err
	}
	if g == c.originGraph {
		return e.Value, nil
	}
	return e.Proxy, nil
}

// GetShadowTarget returns the shadow for a foreign graph; it fails on the
// origin graph, which never has a shadow.
func (c *Cylinder) GetShadowTarget(g GraphName) (*shadow.Shadow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g == c.originGraph {
		return nil, fmt.Errorf("%w: origin graph has no shadow target", ErrValidation)
	}
	e, err := c.entryLocked(g)
	if err != nil {
		return nil, err
	}
	return e.Shadow, nil
}

// IsShadowTarget reports whether x is the shadow stored in any live foreign entry.
func (c *Cylinder) IsShadowTarget(x *shadow.Shadow) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for g, e := range c.perGraph {
		if g == c.originGraph || e.Kind != KindForeign {
			continue
		}
		if e.Shadow == x {
			return true
		}
	}
	return false
}

// SetMetadata installs or overrides (when opts.Override) the entry for g,
// enforcing the structural invariants of spec.md §3: origin entries carry
// Value only, foreign entries carry Proxy+Revoke+Shadow. It registers the
// proxy (and, the first time, the real value) in the membrane's value map.
func (c *Cylinder) SetMetadata(reg Registrar, g GraphName, opts EntryOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, exists := c.perGraph[g]
	if exists && existing.Kind == KindDead {
		return fmt.Errorf("%w: %s", ErrDeadGraph, g)
	}
	if exists && !opts.Override {
		return fmt.Errorf("%w: %s", ErrDuplicateGraph, g)
	}

	switch opts.Kind {
	case KindOrigin:
		if g != c.originGraph {
			return fmt.Errorf("%w: origin entry on non-origin graph %s", ErrValidation, g)
		}
		e := &Entry{Graph: g, Kind: KindOrigin, Value: opts.Value}
		c.perGraph[g] = e
		wasSet := c.originalValueSet
		c.originalValueSet = true
		if !wasSet && reg != nil {
			reg.RegisterValue(opts.Value, c)
		}
	case KindForeign:
		if opts.Proxy == nil || opts.Revoke == nil || opts.Shadow == nil {
			return fmt.Errorf("%w: foreign entry requires proxy, revoke, and shadow", ErrValidation)
		}
		e := &Entry{Graph: g, Kind: KindForeign, Proxy: opts.Proxy, Revoke: opts.Revoke, Shadow: opts.Shadow}
		if exists {
			e.local = existing.local
		}
		c.perGraph[g] = e
		if reg != nil {
			reg.RegisterValue(opts.Proxy, c)
			reg.RegisterValue(opts.Shadow, c)
		}
	default:
		return fmt.Errorf("%w: unsupported entry kind", ErrValidation)
	}
	return nil
}

// RemoveGraph marks g Dead. Removing the origin graph requires every other
// graph to already be Dead.
func (c *Cylinder) RemoveGraph(reg Registrar, g GraphName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.perGraph[g]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGraph, g)
	}
	if e.Kind == KindDead {
		return nil
	}
	if g == c.originGraph {
		for other, oe := range c.perGraph {
			if other == g {
				continue
			}
			if oe.Kind != KindDead {
				return fmt.Errorf("%w: origin graph %s still has live foreign graph %s", ErrValidation, g, other)
			}
		}
	}
	if reg != nil {
		if g == c.originGraph {
			reg.MarkDead(e.Value)
		} else {
			reg.MarkDead(e.Proxy)
			reg.MarkDead(e.Shadow)
		}
	}
	e.Kind = KindDead
	return nil
}

// SelfDestruct iterates foreign graphs then the origin graph, deleting each
// from the membrane's value map and marking them Dead. It does not invoke
// revoke callbacks (use RevokeAll for that).
func (c *Cylinder) SelfDestruct(reg Registrar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for g, e := range c.perGraph {
		if g == c.originGraph || e.Kind == KindDead {
			continue
		}
		if reg != nil {
			reg.MarkDead(e.Proxy)
			reg.MarkDead(e.Shadow)
		}
		e.Kind = KindDead
	}
	if e, ok := c.perGraph[c.originGraph]; ok && e.Kind != KindDead {
		if reg != nil {
			reg.MarkDead(e.Value)
		}
		e.Kind = KindDead
	}
}

// RevokeAll behaves like SelfDestruct but additionally invokes every foreign
// entry's revoke callback. After this call the cylinder is terminal.
func (c *Cylinder) RevokeAll(reg Registrar) {
	c.mu.Lock()
	revokes := make([]func(), 0, len(c.perGraph))
	for g, e := range c.perGraph {
		if g == c.originGraph || e.Kind == KindDead {
			continue
		}
		if reg != nil {
			reg.MarkDead(e.Proxy)
			reg.MarkDead(e.Shadow)
		}
		if e.Revoke != nil {
			revokes = append(revokes, e.Revoke)
		}
		e.Kind = KindDead
	}
	if e, ok := c.perGraph[c.originGraph]; ok && e.Kind != KindDead {
		if reg != nil {
			reg.MarkDead(e.Value)
		}
		e.Kind = KindDead
	}
	c.mu.Unlock()

	for _, revoke := range revokes {
		revoke()
	}
}

// IsDead reports whether g's entry has been tombstoned, is unknown, or does
// not exist at all (unknown graphs behave as dead for Revoked-status checks).
func (c *Cylinder) IsDead(g GraphName) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.perGraph[g]
	return !ok || e.Kind == KindDead
}

// GraphDescriptorSnapshot is used by tests and introspection to read back a
// foreign entry's local descriptor table deterministically.
func (c *Cylinder) GraphDescriptorSnapshot(g GraphName) (map[any]descriptor.Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, err := c.entryLocked(g)
	if err != nil {
		return nil, err
	}
	if e.local == nil {
		return map[any]descriptor.Descriptor{}, nil
	}
	out := make(map[any]descriptor.Descriptor, len(e.local.localDescriptors))
	for k, v := range e.local.localDescriptors {
		out[k] = v
	}
	return out, nil
}
