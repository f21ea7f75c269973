package rules

import (
	"errors"
	"testing"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

type fakeWrapper struct {
	byKey map[any]*cylinder.Cylinder
	dead  map[any]bool
}

func newFakeWrapper() *fakeWrapper {
	return &fakeWrapper{byKey: make(map[any]*cylinder.Cylinder), dead: make(map[any]bool)}
}

func (w *fakeWrapper) Lookup(key any) (*cylinder.Cylinder, bool) {
	c, ok := w.byKey[key]
	return c, ok
}
func (w *fakeWrapper) RegisterValue(key any, c *cylinder.Cylinder) { w.byKey[key] = c }
func (w *fakeWrapper) MarkDead(key any)                            { w.dead[key] = true }

func buildForeignCylinder(t *testing.T, w *fakeWrapper, graph cylinder.GraphName) (*cylinder.Cylinder, *cylinder.Proxy) {
	t.Helper()
	c := cylinder.New("wet")
	if err := c.SetMetadata(w, "wet", cylinder.EntryOptions{Kind: cylinder.KindOrigin, Value: &struct{}{}}); err != nil {
		t.Fatalf("origin SetMetadata: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	proxy := cylinder.NewProxy(sh, nil)
	if err := c.SetMetadata(w, graph, cylinder.EntryOptions{
		Kind: cylinder.KindForeign, Proxy: proxy, Revoke: func() {}, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}
	w.RegisterValue(proxy, c)
	return c, proxy
}

func TestStoreUnknownAsLocal(t *testing.T) {
	w := newFakeWrapper()
	c, proxy := buildForeignCylinder(t, w, "dry")
	r := New(w)
	if err := r.StoreUnknownAsLocal("dry", proxy); err != nil {
		t.Fatalf("StoreUnknownAsLocal: %v", err)
	}
	flag, err := c.GetLocalFlag("dry", "storeUnknownAsLocal")
	if err != nil || !flag {
		t.Fatalf("GetLocalFlag = %v, %v; want true, nil", flag, err)
	}
}

func TestCurrentCylinderRejectsStaleProxy(t *testing.T) {
	w := newFakeWrapper()
	r := New(w)
	if err := r.StoreUnknownAsLocal("dry", &struct{}{}); !errors.Is(err, ErrNotCurrentProxy) {
		t.Fatalf("StoreUnknownAsLocal with unregistered proxy = %v; want ErrNotCurrentProxy", err)
	}
}

func TestFilterOwnKeysRejectsNonExtensibleShadow(t *testing.T) {
	w := newFakeWrapper()
	c, proxy := buildForeignCylinder(t, w, "dry")
	sh, err := c.GetShadowTarget("dry")
	if err != nil {
		t.Fatalf("GetShadowTarget: %v", err)
	}
	sh.PreventExtensions()
	r := New(w)
	if err := r.FilterOwnKeys("dry", proxy, []any{"a"}); !errors.Is(err, ErrRuleConflict) {
		t.Fatalf("FilterOwnKeys on non-extensible shadow = %v; want ErrRuleConflict", err)
	}
}

func TestFilterOwnKeysAllowListSlice(t *testing.T) {
	w := newFakeWrapper()
	c, proxy := buildForeignCylinder(t, w, "dry")
	r := New(w)
	if err := r.FilterOwnKeys("dry", proxy, []any{"a", "b"}); err != nil {
		t.Fatalf("FilterOwnKeys: %v", err)
	}
	filter, err := c.GetOwnKeysFilter("dry")
	if err != nil || filter == nil {
		t.Fatalf("GetOwnKeysFilter = %p, %v; want a predicate, nil", filter, err)
	}
	if !filter("a") || filter("c") {
		t.Fatalf("allow-list predicate misbehaved: a=%v c=%v", filter("a"), filter("c"))
	}
}

func TestTruncateArgListVariants(t *testing.T) {
	w := newFakeWrapper()
	c, proxy := buildForeignCylinder(t, w, "dry")
	r := New(w)

	if err := r.TruncateArgList("dry", proxy, true); err != nil {
		t.Fatalf("TruncateArgList(true): %v", err)
	}
	got, err := c.GetTruncateArgList("dry")
	if err != nil || got == nil || !got.UseArity {
		t.Fatalf("GetTruncateArgList after true = %v, %v; want UseArity", got, err)
	}

	if err := r.TruncateArgList("dry", proxy, 2); err != nil {
		t.Fatalf("TruncateArgList(2): %v", err)
	}
	got, err = c.GetTruncateArgList("dry")
	if err != nil || got == nil || got.Limit != 2 {
		t.Fatalf("GetTruncateArgList after 2 = %v, %v; want Limit=2", got, err)
	}

	if err := r.TruncateArgList("dry", proxy, -1); err == nil {
		t.Fatalf("expected error for a negative truncation limit")
	}
}

func TestDisableTraps(t *testing.T) {
	w := newFakeWrapper()
	c, proxy := buildForeignCylinder(t, w, "dry")
	r := New(w)
	if err := r.DisableTraps("dry", proxy, []string{"set", "deleteProperty"}); err != nil {
		t.Fatalf("DisableTraps: %v", err)
	}
	for _, trap := range []string{"set", "deleteProperty"} {
		flag, err := c.GetLocalFlag("dry", "disableTrap("+trap+")")
		if err != nil || !flag {
			t.Fatalf("disableTrap(%s) = %v, %v; want true, nil", trap, flag, err)
		}
	}
}

func TestChainHandlerOverrideRejectsUnrecognizedTrap(t *testing.T) {
	ch := CreateChainHandler(nil)
	if err := ch.Override("bogus", func() {}); err == nil {
		t.Fatalf("expected error overriding an unrecognized trap name")
	}
}

func TestChainHandlerOverrideRejectsWrongSignature(t *testing.T) {
	ch := CreateChainHandler(nil)
	if err := ch.Override("get", func() {}); err == nil {
		t.Fatalf("expected error for a mismatched override signature")
	}
}

func TestChainHandlerFallsBackToReflectBase(t *testing.T) {
	ch := CreateChainHandler(nil)
	sh := shadow.New(shadow.KindObject)
	if err := sh.DefineOwn("k", descriptor.NewDataDescriptor("v", true, true, true)); err != nil {
		t.Fatalf("DefineOwn: %v", err)
	}
	got, err := ch.Get(sh, "k", nil)
	if err != nil || got != "v" {
		t.Fatalf("Get(k) via reflect base = %v, %v; want v, nil", got, err)
	}
}

func TestReplaceProxyScopesRevokeToItsOwnGraph(t *testing.T) {
	w := newFakeWrapper()
	c, dryProxy := buildForeignCylinder(t, w, "dry")
	sh := shadow.New(shadow.KindObject)
	humidProxy := cylinder.NewProxy(sh, nil)
	if err := c.SetMetadata(w, "humid", cylinder.EntryOptions{
		Kind: cylinder.KindForeign, Proxy: humidProxy, Revoke: func() {}, Shadow: sh,
	}); err != nil {
		t.Fatalf("humid SetMetadata: %v", err)
	}
	w.RegisterValue(humidProxy, c)

	r := New(w)
	newProxy, err := r.ReplaceProxy("dry", dryProxy, CreateChainHandler(nil))
	if err != nil {
		t.Fatalf("ReplaceProxy: %v", err)
	}
	if newProxy == dryProxy {
		t.Fatalf("ReplaceProxy must install a distinct proxy value")
	}

	// ReplaceProxy's revoke callback now calls RemoveGraph(reg, "dry") in
	// place of the old c.RevokeAll(nil): invoking it — as would happen were
	// dry's entry ever revoked outside of a whole-cylinder RevokeAll pass —
	// must tomb only dry's own entry, not humid's or the origin's.
	if err := c.RemoveGraph(w, "dry"); err != nil {
		t.Fatalf("RemoveGraph(dry): %v", err)
	}
	if !c.IsDead("dry") {
		t.Fatalf("dry must be dead after its own revoke runs")
	}
	if c.IsDead("humid") {
		t.Fatalf("replacing dry's proxy must not revoke humid's unrelated entry")
	}
	if c.IsDead("wet") {
		t.Fatalf("replacing dry's proxy must not revoke the origin graph")
	}
}

func TestChainHandlerHonorsOverride(t *testing.T) {
	ch := CreateChainHandler(nil)
	called := false
	err := ch.Override("get", func(target *shadow.Shadow, key any, receiver any) (any, error) {
		called = true
		return "overridden", nil
	})
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	got, err := ch.Get(sh, "k", nil)
	if err != nil || got != "overridden" || !called {
		t.Fatalf("Get(k) = %v, %v, called=%v; want overridden, nil, true", got, err, called)
	}
}
