// Package shadow creates and maintains ShadowTargets: the minimal surrogate
// values a GraphHandler presents as the apparent target of a proxy so that
// invariants enforced on the proxy side never constrain the real value.
//
// Ownership boundary:
// - shadow construction per (real value, graph) pair
//
// - shadow descriptor table and "prepared" lazy getters
//
// - shadow extensibility locking
package shadow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brinklayer/membrane/internal/descriptor"
)

// Kind mirrors the structural kind of the real value a Shadow mirrors.
type Kind int

const (
	// KindObject mirrors a plain object-like value.
	KindObject Kind = iota
	// KindFunction mirrors a callable value (supports apply/construct).
	KindFunction
	// KindArray mirrors an ordered, indexable value.
	KindArray
)

// LazyGetter is the "prepared" one-shot accessor described in spec.md §9:
// on first invocation it installs the resolved descriptor on the shadow and
// returns the value, behaving like a memoized thunk thereafter.
type LazyGetter func(s *Shadow, key any) (descriptor.Descriptor, error)

// Shadow is the per-(real,graph) surrogate target.
type Shadow struct {
	mu sync.Mutex

	kind Kind

	descriptors map[any]descriptor.Descriptor
	lazies      map[any]LazyGetter
	order       []any

	prototype    any
	hasPrototype bool

	extensible bool
	sealed     bool
}

// New creates a fresh shadow of the given structural kind. Shadows are
// always initially extensible; GraphHandler locks them on demand (spec.md §4.2.2).
func New(kind Kind) *Shadow {
	return &Shadow{
		kind:        kind,
		descriptors: make(map[any]descriptor.Descriptor),
		lazies:      make(map[any]LazyGetter),
		extensible:  true,
	}
}

// Kind reports the shadow's structural kind.
func (s *Shadow) Kind() Kind {
	return s.kind
}

// Get resolves a lazy getter (if one is pinned for key) before returning the
// stored descriptor. The lazy getter replaces itself atomically on first fire.
func (s *Shadow) Get(key any) (descriptor.Descriptor, bool, error) {
	s.mu.Lock()
	lazy, hasLazy := s.lazies[key]
	s.mu.Unlock()

	if hasLazy {
		resolved, err := lazy(s, key)
		if err != nil {
			return descriptor.Descriptor{}, false, err
		}
		s.mu.Lock()
		delete(s.lazies, key)
		s.descriptors[key] = resolved
		s.mu.Unlock()
		return resolved, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.descriptors[key]
	return d, ok, nil
}

// DefineOwn installs a descriptor directly, enforcing ECMAScript-style
// configurability and extensibility invariants (spec.md §4.2 step 6).
func (s *Shadow) DefineOwn(key any, d descriptor.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.descriptors[key]
	if !exists {
		if !s.extensible {
			return fmt.Errorf("%w: cannot add %v to non-extensible shadow", ErrInvariantViolation, key)
		}
		s.descriptors[key] = d
		s.order = append(s.order, key)
		return nil
	}

	if !existing.Configurable && !d.Configurable {
		if existing.Enumerable != d.Enumerable {
			return fmt.Errorf("%w: cannot change enumerable of non-configurable %v", ErrInvariantViolation, key)
		}
	}
	if !existing.Configurable && d.Configurable {
		return fmt.Errorf("%w: cannot make %v configurable", ErrInvariantViolation, key)
	}
	s.descriptors[key] = d
	return nil
}

// DefineLazy pins a one-shot accessor for key (the "prepared" mode of
// spec.md §4.2.3's useShadowTarget).
func (s *Shadow) DefineLazy(key any, lazy LazyGetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.descriptors[key]; !exists {
		if !s.extensible {
			return fmt.Errorf("%w: cannot add lazy %v to non-extensible shadow", ErrInvariantViolation, key)
		}
		s.order = append(s.order, key)
	}
	s.lazies[key] = lazy
	// Placeholder descriptor so OwnKeys sees the key before the lazy fires.
	s.descriptors[key] = descriptor.NewDataDescriptor(nil, true, true, true)
	return nil
}

// Delete removes key from the shadow, enforcing configurability.
func (s *Shadow) Delete(key any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, exists := s.descriptors[key]
	if !exists {
		return nil
	}
	if !d.Configurable {
		return fmt.Errorf("%w: cannot delete non-configurable %v", ErrInvariantViolation, key)
	}
	delete(s.descriptors, key)
	delete(s.lazies, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// OwnKeys returns the shadow's own keys in first-defined order.
func (s *Shadow) OwnKeys() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.order))
	copy(out, s.order)
	return out
}

// HasOwn reports whether key is defined on the shadow.
func (s *Shadow) HasOwn(key any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.descriptors[key]
	return ok
}

// Prototype returns the shadow's mirrored prototype link.
func (s *Shadow) Prototype() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prototype, s.hasPrototype
}

// SetPrototype mirrors the real value's prototype onto the shadow.
func (s *Shadow) SetPrototype(proto any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return fmt.Errorf("%w: cannot set prototype of sealed shadow", ErrInvariantViolation)
	}
	s.prototype = proto
	s.hasPrototype = true
	return nil
}

// IsExtensible reports the shadow's extensibility.
func (s *Shadow) IsExtensible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensible
}

// PreventExtensions marks the shadow non-extensible without installing
// lazies; callers that need the full seal dance (spec.md §4.2.2) use Lock.
func (s *Shadow) PreventExtensions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extensible = false
}

// Lock implements the shadow-locking algorithm of spec.md §4.2.2: install a
// lazy getter for every key in keys using resolve, then fix the prototype and
// mark the shadow non-extensible. The "configurable-before-seal" trick is
// implicit: DefineLazy only requires extensibility, not configurability, so
// lazies may be installed even over already-present non-configurable keys
// as long as the shadow itself is still extensible when Lock runs.
func (s *Shadow) Lock(keys []any, resolve LazyGetter, prototype any) error {
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	for _, k := range keys {
		if err := s.DefineLazy(k, resolve); err != nil {
			return err
		}
	}
	if err := s.SetPrototype(prototype); err != nil {
		return err
	}
	s.mu.Lock()
	s.extensible = false
	s.sealed = true
	s.mu.Unlock()
	return nil
}

// IsSealed reports whether Lock has run to completion on this shadow.
func (s *Shadow) IsSealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}
