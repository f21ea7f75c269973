package cylinder

import (
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

// EntryKind tags one per-graph slot in a Cylinder (spec.md §3).
type EntryKind int

const (
	// kindUnset marks a slot that has never been populated.
	kindUnset EntryKind = iota
	// KindOrigin holds the real value, only valid on the cylinder's origin graph.
	KindOrigin
	// KindForeign holds a proxy, its revoke callback, and its shadow target.
	KindForeign
	// KindDead tombstones a graph: no further mutation is permitted.
	KindDead
)

// TruncateArgList is the argument-truncation setting from spec.md §4.1:
// Disabled means "no truncation" (∞), UseArity means "truncate to the
// function's declared arity", and Limit>=0 is an explicit cap.
type TruncateArgList struct {
	Disabled bool
	UseArity bool
	Limit    int
}

// cachedKeys is the memoized OwnKeys() result plus the unfiltered key set it
// was computed from, used to validate cache coherence (spec.md §3, §8.7).
type cachedKeys struct {
	keys     []any
	original map[any]struct{}
}

// localState is the rule-modification-layer state attached to one Origin or
// Foreign entry: local property overrides, deletions, key filters, and flags.
type localState struct {
	localDescriptors map[any]descriptor.Descriptor
	deletedLocals    map[any]struct{}
	ownKeysFilter    func(key any) bool
	cached           *cachedKeys
	truncate         *TruncateArgList
	flags            map[string]bool
}

func newLocalState() *localState {
	return &localState{
		localDescriptors: make(map[any]descriptor.Descriptor),
		deletedLocals:    make(map[any]struct{}),
		flags:            make(map[string]bool),
	}
}

// Entry is one graph's slot inside a Cylinder.
type Entry struct {
	Graph GraphName
	Kind  EntryKind

	// Origin-only.
	Value any

	// Foreign-only.
	Proxy  *Proxy
	Revoke func()
	Shadow *shadow.Shadow

	// Origin or Foreign.
	local *localState
}

func (e *Entry) ensureLocal() *localState {
	if e.local == nil {
		e.local = newLocalState()
	}
	return e.local
}
