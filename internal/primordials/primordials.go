// Package primordials ships the list of host-language primordial types a
// membrane treats as pass-through by default (spec.md §6 "Primordials"): a
// fixed built-in set plus any types added with Register, which is permitted
// until Freeze is called.
package primordials

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// builtins is the frozen set of primordial classifications, populated once
// at package init and never mutated afterward.
var builtins = []reflect.Type{
	reflect.TypeOf((*error)(nil)).Elem(),
	reflect.TypeOf((*context.Context)(nil)).Elem(),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(time.Duration(0)),
	reflect.TypeOf((*reflect.Type)(nil)).Elem(),
}

var (
	mu        sync.RWMutex
	extra     = map[reflect.Type]struct{}{}
	readonly  = false
)

// List returns the current frozen primordials list.
func List() []reflect.Type {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]reflect.Type, 0, len(builtins)+len(extra))
	out = append(out, builtins...)
	for t := range extra {
		out = append(out, t)
	}
	return out
}

// Register adds t to the primordials list. Registration is a process-wide,
// append-only operation: once Freeze is called no further registration is
// permitted (spec.md §9 "Global mutable state: none required. The frozen
// primordials list is the only process-wide datum and is read-only").
func Register(t reflect.Type) bool {
	mu.Lock()
	defer mu.Unlock()
	if readonly {
		return false
	}
	extra[t] = struct{}{}
	return true
}

// Freeze permanently disables further Register calls.
func Freeze() {
	mu.Lock()
	defer mu.Unlock()
	readonly = true
}

// Is reports whether v's type is classified as a primordial.
func Is(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	mu.RLock()
	defer mu.RUnlock()
	for _, b := range builtins {
		if t == b || (b.Kind() == reflect.Interface && t.Implements(b)) {
			return true
		}
	}
	for e := range extra {
		if t == e || (e.Kind() == reflect.Interface && t.Implements(e)) {
			return true
		}
	}
	return false
}

// Comparable reports whether v's type supports == comparison, the other
// pass-through taxonomy spec.md §9 names alongside primordials.
func Comparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
