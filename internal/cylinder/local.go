package cylinder

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/descriptor"
)

func (c *Cylinder) foreignEntry(g GraphName) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.entryLocked(g)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindForeign && e.Kind != KindOrigin {
		return nil, fmt.Errorf("%w: %s is neither an origin nor a foreign graph", ErrValidation, g)
	}
	return e, nil
}

// GetLocalDescriptor reads a local descriptor override for key on graph g.
func (c *Cylinder) GetLocalDescriptor(g GraphName, key any) (descriptor.Descriptor, bool, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return descriptor.Descriptor{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return descriptor.Descriptor{}, false, nil
	}
	d, ok := e.local.localDescriptors[key]
	return d, ok, nil
}

// SetLocalDescriptor installs a local descriptor, unmasking any deletion of
// the same key (spec.md §3: "defining a local descriptor unmasks any
// deletion of the same key").
func (c *Cylinder) SetLocalDescriptor(g GraphName, key any, d descriptor.Descriptor) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	local := e.ensureLocal()
	local.localDescriptors[key] = d
	delete(local.deletedLocals, key)
	local.cached = nil
	return nil
}

// DeleteLocalDescriptor removes a local descriptor override. When
// recordLocalDelete is set, key is also added to the deleted-locals set so
// a subsequent real lookup for key is suppressed too.
func (c *Cylinder) DeleteLocalDescriptor(g GraphName, key any, recordLocalDelete bool) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	local := e.ensureLocal()
	delete(local.localDescriptors, key)
	if recordLocalDelete {
		local.deletedLocals[key] = struct{}{}
	}
	local.cached = nil
	return nil
}

// AppendDeletedNames adds every locally-deleted key on graph g into set.
func (c *Cylinder) AppendDeletedNames(g GraphName, set map[any]struct{}) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return nil
	}
	for k := range e.local.deletedLocals {
		set[k] = struct{}{}
	}
	return nil
}

// WasDeletedLocally reports whether key was deleted locally on graph g.
func (c *Cylinder) WasDeletedLocally(g GraphName, key any) (bool, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return false, nil
	}
	_, ok := e.local.deletedLocals[key]
	return ok, nil
}

// UnmaskDeletion removes key from the deleted-locals set without installing
// a replacement local descriptor.
func (c *Cylinder) UnmaskDeletion(g GraphName, key any) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return nil
	}
	delete(e.local.deletedLocals, key)
	e.local.cached = nil
	return nil
}

// LocalOwnKeys returns the keys of graph g's local descriptor table.
func (c *Cylinder) LocalOwnKeys(g GraphName) ([]any, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return nil, nil
	}
	out := make([]any, 0, len(e.local.localDescriptors))
	for k := range e.local.localDescriptors {
		out = append(out, k)
	}
	return out, nil
}

// GetLocalFlag reads a named boolean flag (e.g. "storeUnknownAsLocal",
// "requireLocalDelete", "disableTrap(<trapName>)") for graph g.
func (c *Cylinder) GetLocalFlag(g GraphName, name string) (bool, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return false, nil
	}
	return e.local.flags[name], nil
}

// SetLocalFlag sets a named boolean flag for graph g.
func (c *Cylinder) SetLocalFlag(g GraphName, name string, value bool) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e.ensureLocal().flags[name] = value
	return nil
}

// GetOwnKeysFilter returns the own-keys predicate for graph g, or nil if disabled.
func (c *Cylinder) GetOwnKeysFilter(g GraphName) (func(key any) bool, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return nil, nil
	}
	return e.local.ownKeysFilter, nil
}

// SetOwnKeysFilter installs (or, when filter is nil, disables) an own-keys
// predicate for graph g. It also invalidates the own-keys cache.
func (c *Cylinder) SetOwnKeysFilter(g GraphName, filter func(key any) bool) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	local := e.ensureLocal()
	local.ownKeysFilter = filter
	local.cached = nil
	return nil
}

// CachedOwnKeys returns the memoized own-keys result for graph g if present.
func (c *Cylinder) CachedOwnKeys(g GraphName) ([]any, map[any]struct{}, bool, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return nil, nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil || e.local.cached == nil {
		return nil, nil, false, nil
	}
	return e.local.cached.keys, e.local.cached.original, true, nil
}

// SetCachedOwnKeys memoizes keys together with the unfiltered real key set
// used to compute them (spec.md §3 cachedOwnKeys coherence invariant).
func (c *Cylinder) SetCachedOwnKeys(g GraphName, keys []any, original map[any]struct{}) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e.ensureLocal().cached = &cachedKeys{keys: keys, original: original}
	return nil
}

// InvalidateCachedOwnKeys clears the own-keys cache for graph g.
func (c *Cylinder) InvalidateCachedOwnKeys(g GraphName) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local != nil {
		e.local.cached = nil
	}
	return nil
}

// GetTruncateArgList returns the argument-truncation setting for graph g.
func (c *Cylinder) GetTruncateArgList(g GraphName) (*TruncateArgList, error) {
	e, err := c.foreignEntry(g)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.local == nil {
		return nil, nil
	}
	return e.local.truncate, nil
}

// SetTruncateArgList installs an argument-truncation setting for graph g.
func (c *Cylinder) SetTruncateArgList(g GraphName, t *TruncateArgList) error {
	e, err := c.foreignEntry(g)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e.ensureLocal().truncate = t
	return nil
}
