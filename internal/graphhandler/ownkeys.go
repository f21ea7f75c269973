package graphhandler

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/shadow"
)

// setOwnKeys computes and caches the exposed key list for real on this
// graph, implementing spec.md §4.2.1.
func (h *Handler) setOwnKeys(c *cylinder.Cylinder, real any, originGraph cylinder.GraphName, target *shadow.Shadow) ([]any, error) {
	ro, err := asRealObject(real)
	if err != nil {
		return nil, err
	}
	realKeys, err := ro.OwnKeys()
	if err != nil {
		return nil, err
	}
	original := make(map[any]struct{}, len(realKeys))
	for _, k := range realKeys {
		original[k] = struct{}{}
	}

	deleted := make(map[any]struct{})
	if err := c.AppendDeletedNames(originGraph, deleted); err != nil && !isUnknownOrDead(err) {
		return nil, err
	}
	if err := c.AppendDeletedNames(h.Graph, deleted); err != nil && !isUnknownOrDead(err) {
		return nil, err
	}

	originFilter, err := c.GetOwnKeysFilter(originGraph)
	if err != nil && !isUnknownOrDead(err) {
		return nil, err
	}
	localFilter, err := c.GetOwnKeysFilter(h.Graph)
	if err != nil && !isUnknownOrDead(err) {
		return nil, err
	}

	result := make([]any, 0, len(realKeys))
	seen := make(map[any]struct{}, len(realKeys))
	for _, k := range realKeys {
		if _, gone := deleted[k]; gone {
			continue
		}
		if originFilter != nil && !originFilter(k) {
			continue
		}
		if localFilter != nil && !localFilter(k) {
			continue
		}
		result = append(result, k)
		seen[k] = struct{}{}
	}

	originLocal, err := c.LocalOwnKeys(originGraph)
	if err != nil && !isUnknownOrDead(err) {
		return nil, err
	}
	for _, k := range originLocal {
		if _, ok := original[k]; ok {
			continue
		}
		if _, already := seen[k]; already {
			continue
		}
		result = append(result, k)
		seen[k] = struct{}{}
	}
	localOwn, err := c.LocalOwnKeys(h.Graph)
	if err != nil && !isUnknownOrDead(err) {
		return nil, err
	}
	for _, k := range localOwn {
		if _, ok := original[k]; ok {
			continue
		}
		if _, already := seen[k]; already {
			continue
		}
		result = append(result, k)
		seen[k] = struct{}{}
	}

	showGraphName, _ := c.GetLocalFlag(h.Graph, "showGraphName")
	if showGraphName {
		result = append(result, membraneGraphNameKey)
	}

	if err := c.SetCachedOwnKeys(h.Graph, result, original); err != nil && !isUnknownOrDead(err) {
		return nil, err
	}

	if err := h.reconcileShadowKeys(target, result); err != nil {
		return nil, err
	}
	return result, nil
}

// membraneGraphNameKey is the sentinel own-key a proxy exposes when
// showGraphName is enabled (spec.md §6).
const membraneGraphNameKey = "membraneGraphName"

// reconcileShadowKeys enforces spec.md §4.2.1 step 7: non-configurable
// shadow keys must survive into the result, and a non-extensible shadow's
// own keys must be a subset of it.
func (h *Handler) reconcileShadowKeys(target *shadow.Shadow, result []any) error {
	present := make(map[any]struct{}, len(result))
	for _, k := range result {
		present[k] = struct{}{}
	}
	for _, k := range target.OwnKeys() {
		if _, ok := present[k]; ok {
			continue
		}
		if !target.IsExtensible() {
			return fmt.Errorf("%w: non-extensible shadow key %v missing from ownKeys result", shadowInvariant, k)
		}
		d, ok, _ := target.Get(k)
		if ok && !d.Configurable {
			return fmt.Errorf("%w: non-configurable shadow key %v missing from ownKeys result", shadowInvariant, k)
		}
	}
	return nil
}

func isUnknownOrDead(err error) bool {
	return errIsAny(err, cylinder.ErrUnknownGraph, cylinder.ErrDeadGraph)
}
