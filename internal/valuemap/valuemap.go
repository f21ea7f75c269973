// Package valuemap implements the membrane's weak value map: any known
// reference (real value, proxy, or shadow) maps to its ProxyCylinder
// (spec.md §3 "Membrane value map").
//
// Ownership boundary:
// - reference -> cylinder lookup
//
// - a runtime finalizer armed on pointer keys (the map holds every key
//   strongly, so that finalizer does not run while the entry is stored)
//
// Canonical references (consult before changes):
// - spec.md §3 Membrane value map
// - spec.md §5 Shared-resource policy
package valuemap

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/brinklayer/membrane/internal/cylinder"
)

// ErrNotACylinder is returned when a caller attempts to register a value
// other than *cylinder.Cylinder (spec.md §3: "Only a ProxyCylinder value is
// accepted").
var ErrNotACylinder = errors.New("valuemap: only a cylinder value is accepted")

// ErrLiveConflict is returned when a live key would be overwritten with a
// different cylinder (spec.md §3: "overwriting with any other value for a
// live key is forbidden").
var ErrLiveConflict = errors.New("valuemap: live key already bound to a different cylinder")

type slot struct {
	cylinder *cylinder.Cylinder
	dead     bool
}

// Map is the weak reference->cylinder mapping, shared by every graph a
// membrane owns.
type Map struct {
	mu    sync.Mutex
	store map[any]*slot
}

// New creates an empty value map.
func New() *Map {
	return &Map{store: make(map[any]*slot)}
}

// RegisterValue installs key -> c, satisfying cylinder.Registrar. It also
// arms a runtime finalizer on pointer keys that marks the entry Dead,
// mirroring goja's weakCollections finalizer technique. The store itself
// keeps key reachable, so that finalizer does not run while the entry is
// stored; entries leave the live set only through MarkDead.
func (m *Map) RegisterValue(key any, c *cylinder.Cylinder) {
	if key == nil || c == nil {
		return
	}
	m.mu.Lock()
	existing, ok := m.store[key]
	if ok && !existing.dead && existing.cylinder != c {
		m.mu.Unlock()
		return
	}
	m.store[key] = &slot{cylinder: c}
	m.mu.Unlock()

	armFinalizer(key, func() { m.MarkDead(key) })
}

// MarkDead tombstones key. It is always permitted, even if key is unknown.
func (m *Map) MarkDead(key any) {
	if key == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[key]
	if !ok {
		m.store[key] = &slot{dead: true}
		return
	}
	s.dead = true
	s.cylinder = nil
}

// Lookup returns the cylinder bound to key, if any and if still live.
func (m *Map) Lookup(key any) (*cylinder.Cylinder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[key]
	if !ok || s.dead || s.cylinder == nil {
		return nil, false
	}
	return s.cylinder, true
}

// HasProxyForValue reports whether key has a live cylinder bound, regardless
// of dead/alive status distinctions beyond "was it ever set and not revoked".
func (m *Map) HasProxyForValue(key any) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Set installs key -> c directly, enforcing the single-cylinder-per-live-key
// invariant explicitly (used by callers that want the error instead of a
// silent no-op, unlike RegisterValue which cylinder.Registrar calls
// fire-and-forget).
func (m *Map) Set(key any, c *cylinder.Cylinder) error {
	if c == nil {
		return fmt.Errorf("%w: nil cylinder", ErrNotACylinder)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[key]
	if ok && !existing.dead && existing.cylinder != c {
		return fmt.Errorf("%w: %v", ErrLiveConflict, key)
	}
	m.store[key] = &slot{cylinder: c}
	return nil
}

// armFinalizer best-effort-attaches a weak-reference cleanup to key. Go's
// runtime.SetFinalizer is only called for pointer keys; for any other kind
// this is a silent no-op.
func armFinalizer(key any, cleanup func()) {
	// Only pointer-shaped values can carry a runtime finalizer; maps,
	// channels, and funcs rely on explicit RevokeMapping/selfDestruct calls
	// instead (spec.md §5 still holds: revocation is always available).
	if reflect.ValueOf(key).Kind() != reflect.Ptr {
		return
	}
	defer func() { _ = recover() }()
	runtime.SetFinalizer(key, func(any) { cleanup() })
}
