// Package rules implements the ModifyRules API: per-proxy mutating
// operations that install local overrides on a cylinder (spec.md §4.4).
package rules

import (
	"errors"
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
)

// ErrNotCurrentProxy is returned when the proxy argument is not the current
// proxy for the given graph (spec.md §4.4: "each first asserts that proxy is
// the current proxy for graph in the membrane").
var ErrNotCurrentProxy = errors.New("rules: proxy is not the current proxy for this graph")

// ErrRuleConflict mirrors spec.md §7 RuleConflict.
var ErrRuleConflict = errors.New("rules: rule conflict")

// Wrapper is the narrow slice of the membrane facade Rules needs.
type Wrapper interface {
	Lookup(key any) (*cylinder.Cylinder, bool)
	RegisterValue(key any, c *cylinder.Cylinder)
}

// Rules is the ModifyRules entry point, bound to one membrane.
type Rules struct {
	Wrapper Wrapper
}

// New builds a ModifyRules surface over w.
func New(w Wrapper) *Rules {
	return &Rules{Wrapper: w}
}

func (r *Rules) currentCylinder(g cylinder.GraphName, proxy any) (*cylinder.Cylinder, error) {
	c, ok := r.Wrapper.Lookup(proxy)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotCurrentProxy, proxy)
	}
	current, err := c.GetProxy(g)
	if err != nil {
		return nil, err
	}
	if current != proxy {
		return nil, fmt.Errorf("%w: %v", ErrNotCurrentProxy, proxy)
	}
	return c, nil
}

// StoreUnknownAsLocal sets the storeUnknownAsLocal flag for graph g's entry
// of proxy's cylinder.
func (r *Rules) StoreUnknownAsLocal(g cylinder.GraphName, proxy any) error {
	c, err := r.currentCylinder(g, proxy)
	if err != nil {
		return err
	}
	return c.SetLocalFlag(g, "storeUnknownAsLocal", true)
}

// RequireLocalDelete sets the requireLocalDelete flag.
func (r *Rules) RequireLocalDelete(g cylinder.GraphName, proxy any) error {
	c, err := r.currentCylinder(g, proxy)
	if err != nil {
		return err
	}
	return c.SetLocalFlag(g, "requireLocalDelete", true)
}

// KeyFilter is any of: a predicate, an allow-list slice, or an allow-list set.
type KeyFilter any

// FilterOwnKeys installs a key filter; array/set filters are interpreted as
// allow-lists. Rejected if g's own shadow is already non-extensible
// (spec.md §4.4, §7 RuleConflict); the shadows of the cylinder's other
// graphs are not checked.
func (r *Rules) FilterOwnKeys(g cylinder.GraphName, proxy any, filter KeyFilter) error {
	c, err := r.currentCylinder(g, proxy)
	if err != nil {
		return err
	}
	shadow, serr := c.GetShadowTarget(g)
	if serr == nil && shadow != nil && !shadow.IsExtensible() {
		return fmt.Errorf("%w: shadow for %s is already non-extensible", ErrRuleConflict, g)
	}
	pred, err := toPredicate(filter)
	if err != nil {
		return err
	}
	return c.SetOwnKeysFilter(g, pred)
}

func toPredicate(filter KeyFilter) (func(key any) bool, error) {
	switch f := filter.(type) {
	case nil:
		return nil, nil
	case func(key any) bool:
		return f, nil
	case []any:
		allow := make(map[any]struct{}, len(f))
		for _, k := range f {
			allow[k] = struct{}{}
		}
		return func(key any) bool { _, ok := allow[key]; return ok }, nil
	case map[any]struct{}:
		return func(key any) bool { _, ok := f[key]; return ok }, nil
	default:
		return nil, fmt.Errorf("rules: unsupported filter type %T", filter)
	}
}

// TruncateArgList installs an argument-truncation setting: n may be false
// (disabled, ∞), true (use arity), or a non-negative int limit.
func (r *Rules) TruncateArgList(g cylinder.GraphName, fnProxy any, n any) error {
	c, err := r.currentCylinder(g, fnProxy)
	if err != nil {
		return err
	}
	t := &cylinder.TruncateArgList{}
	switch v := n.(type) {
	case bool:
		if v {
			t.UseArity = true
		} else {
			t.Disabled = true
		}
	case int:
		if v < 0 {
			return fmt.Errorf("rules: truncateArgList limit must be >= 0")
		}
		t.Limit = v
	default:
		return fmt.Errorf("rules: truncateArgList accepts bool or int, got %T", n)
	}
	return c.SetTruncateArgList(g, t)
}

// DisableTraps disables each named trap for proxy's graph.
func (r *Rules) DisableTraps(g cylinder.GraphName, proxy any, traps []string) error {
	c, err := r.currentCylinder(g, proxy)
	if err != nil {
		return err
	}
	for _, t := range traps {
		if err := c.SetLocalFlag(g, "disableTrap("+t+")", true); err != nil {
			return err
		}
	}
	return nil
}
