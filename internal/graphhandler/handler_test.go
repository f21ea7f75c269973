package graphhandler

import (
	"errors"
	"testing"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/realvalue"
	"github.com/brinklayer/membrane/internal/shadow"
)

// fakeWrapper is an identity-transparent Wrapper: every value crossing
// graphs in these tests is a plain Go primitive, so ConvertArgumentToProxy
// can pass it through unchanged rather than building real proxy machinery.
type fakeWrapper struct {
	byKey   map[any]*cylinder.Cylinder
	revoked map[cylinder.GraphName]bool
	dead    map[any]bool
	events  []string
}

func newFakeWrapper() *fakeWrapper {
	return &fakeWrapper{byKey: make(map[any]*cylinder.Cylinder), revoked: make(map[cylinder.GraphName]bool), dead: make(map[any]bool)}
}

func (w *fakeWrapper) ConvertArgumentToProxy(origin, target cylinder.GraphName, v any) (any, error) {
	return v, nil
}
func (w *fakeWrapper) Lookup(key any) (*cylinder.Cylinder, bool) {
	c, ok := w.byKey[key]
	return c, ok
}
func (w *fakeWrapper) RegisterValue(key any, c *cylinder.Cylinder) { w.byKey[key] = c }
func (w *fakeWrapper) MarkDead(key any)                             { w.dead[key] = true }
func (w *fakeWrapper) IsGraphRevoked(g cylinder.GraphName) bool    { return w.revoked[g] }
func (w *fakeWrapper) FireFunctionListener(reason, trapName string, thisGraph, originGraph cylinder.GraphName, target any, rvOrExn any) {
	w.events = append(w.events, reason+":"+trapName)
}

func newTestHandler(t *testing.T, real realvalue.RealObject) (*Handler, *fakeWrapper, *shadow.Shadow) {
	t.Helper()
	w := newFakeWrapper()
	c := cylinder.New("wet")
	if err := c.SetMetadata(w, "wet", cylinder.EntryOptions{Kind: cylinder.KindOrigin, Value: real}); err != nil {
		t.Fatalf("origin SetMetadata: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	h := New("dry", w)
	proxy := cylinder.NewProxy(sh, h)
	if err := c.SetMetadata(w, "dry", cylinder.EntryOptions{
		Kind: cylinder.KindForeign, Proxy: proxy, Revoke: func() {}, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}
	return h, w, sh
}

func TestHandlerGetReadsRealProperty(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("x", int64(1))
	h, _, sh := newTestHandler(t, obj)
	got, err := h.Get(sh, "x", nil)
	if err != nil || got != int64(1) {
		t.Fatalf("Get(x) = %v, %v; want 1, nil", got, err)
	}
}

func TestHandlerGetUnknownShadow(t *testing.T) {
	w := newFakeWrapper()
	h := New("dry", w)
	sh := shadow.New(shadow.KindObject)
	if _, err := h.Get(sh, "x", nil); !errors.Is(err, ErrUnknownShadow) {
		t.Fatalf("Get on an unregistered shadow = %v; want ErrUnknownShadow", err)
	}
}

func TestHandlerGetRejectsWhenGraphRevoked(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("x", int64(1))
	h, w, sh := newTestHandler(t, obj)
	w.revoked["dry"] = true
	if _, err := h.Get(sh, "x", nil); !errors.Is(err, ErrRevoked) {
		t.Fatalf("Get on a revoked graph = %v; want ErrRevoked", err)
	}
}

func TestHandlerSetWritesThroughToReal(t *testing.T) {
	obj := realvalue.NewPlainObject()
	h, _, sh := newTestHandler(t, obj)
	if err := h.Set(sh, "y", int64(5), nil); err != nil {
		t.Fatalf("Set(y): %v", err)
	}
	got, err := obj.Get("y", nil)
	if err != nil || got != int64(5) {
		t.Fatalf("real.Get(y) after Set = %v, %v; want 5, nil", got, err)
	}
}

func TestHandlerSetLocalWhenStoreUnknownAsLocal(t *testing.T) {
	obj := realvalue.NewPlainObject()
	h, _, sh := newTestHandler(t, obj)
	c, _ := h.Wrapper.Lookup(sh)
	if err := c.SetLocalFlag("dry", "storeUnknownAsLocal", true); err != nil {
		t.Fatalf("SetLocalFlag: %v", err)
	}
	if err := h.Set(sh, "y", int64(9), nil); err != nil {
		t.Fatalf("Set(y): %v", err)
	}
	if has, _ := obj.Has("y"); has {
		t.Fatalf("storeUnknownAsLocal must not write through to the real object")
	}
	got, err := h.Get(sh, "y", nil)
	if err != nil || got != int64(9) {
		t.Fatalf("Get(y) after local Set = %v, %v; want 9, nil", got, err)
	}
}

func TestHandlerHas(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("x", int64(1))
	h, _, sh := newTestHandler(t, obj)
	has, err := h.Has(sh, "x")
	if err != nil || !has {
		t.Fatalf("Has(x) = %v, %v; want true, nil", has, err)
	}
	has, err = h.Has(sh, "missing")
	if err != nil || has {
		t.Fatalf("Has(missing) = %v, %v; want false, nil", has, err)
	}
}

func TestHandlerDeleteProperty(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("x", int64(1))
	h, _, sh := newTestHandler(t, obj)
	ok, err := h.DeleteProperty(sh, "x")
	if err != nil || !ok {
		t.Fatalf("DeleteProperty(x) = %v, %v; want true, nil", ok, err)
	}
	if has, _ := obj.Has("x"); has {
		t.Fatalf("x must be gone from the real object after DeleteProperty")
	}
}

func TestHandlerTrapDisabled(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("x", int64(1))
	h, _, sh := newTestHandler(t, obj)
	c, _ := h.Wrapper.Lookup(sh)
	if err := c.SetLocalFlag("dry", "disableTrap(get)", true); err != nil {
		t.Fatalf("SetLocalFlag: %v", err)
	}
	if _, err := h.Get(sh, "x", nil); !errors.Is(err, ErrTrapDisabled) {
		t.Fatalf("Get with the get trap disabled = %v; want ErrTrapDisabled", err)
	}
}

func TestHandlerApplyFiresFunctionListeners(t *testing.T) {
	fn := realvalue.NewPlainFunction(1, func(thisArg any, args []any) (any, error) {
		return len(args), nil
	})
	h, w, sh := newTestHandler(t, fn)
	got, err := h.Apply(sh, nil, []any{int64(1), int64(2)})
	if err != nil || got != 2 {
		t.Fatalf("Apply() = %v, %v; want 2, nil", got, err)
	}
	want := []string{"enter:apply", "return:apply"}
	if len(w.events) != len(want) || w.events[0] != want[0] || w.events[1] != want[1] {
		t.Fatalf("events = %v; want %v", w.events, want)
	}
}

func TestHandlerApplyTruncatesArgs(t *testing.T) {
	fn := realvalue.NewPlainFunction(1, func(thisArg any, args []any) (any, error) {
		return len(args), nil
	})
	h, w, sh := newTestHandler(t, fn)
	c, _ := w.Lookup(sh)
	if err := c.SetTruncateArgList("dry", &cylinder.TruncateArgList{Limit: 1}); err != nil {
		t.Fatalf("SetTruncateArgList: %v", err)
	}
	got, err := h.Apply(sh, nil, []any{int64(1), int64(2), int64(3)})
	if err != nil || got != 1 {
		t.Fatalf("Apply() with Limit=1 = %v, %v; want 1, nil", got, err)
	}
}

// TestHandlerSetLocalAscendsPrototypeChain proves shouldBeLocal checks not
// just a value's own cylinder but walks its prototype chain: a storeUnknownAsLocal
// flag set only on the prototype's cylinder must still force a local write on
// the child (spec.md §4.2 step 3 "recurse=true along the prototype chain").
func TestHandlerSetLocalAscendsPrototypeChain(t *testing.T) {
	proto := realvalue.NewPlainObject()
	obj := realvalue.NewPlainObject()
	if _, err := obj.SetPrototypeOf(proto); err != nil {
		t.Fatalf("SetPrototypeOf: %v", err)
	}

	h, w, sh := newTestHandler(t, obj)

	protoCylinder := cylinder.New("wet")
	if err := protoCylinder.SetMetadata(w, "wet", cylinder.EntryOptions{Kind: cylinder.KindOrigin, Value: proto}); err != nil {
		t.Fatalf("proto origin SetMetadata: %v", err)
	}
	w.RegisterValue(proto, protoCylinder)
	protoShadow := shadow.New(shadow.KindObject)
	if err := protoCylinder.SetMetadata(w, "dry", cylinder.EntryOptions{
		Kind: cylinder.KindForeign, Proxy: cylinder.NewProxy(protoShadow, h), Revoke: func() {}, Shadow: protoShadow,
	}); err != nil {
		t.Fatalf("proto foreign SetMetadata: %v", err)
	}
	if err := protoCylinder.SetLocalFlag("dry", "storeUnknownAsLocal", true); err != nil {
		t.Fatalf("SetLocalFlag on proto cylinder: %v", err)
	}

	if err := h.Set(sh, "y", int64(9), nil); err != nil {
		t.Fatalf("Set(y): %v", err)
	}
	if has, _ := obj.Has("y"); has {
		t.Fatalf("a prototype-inherited storeUnknownAsLocal must not write through to the real object")
	}
	got, err := h.Get(sh, "y", nil)
	if err != nil || got != int64(9) {
		t.Fatalf("Get(y) after ascended local Set = %v, %v; want 9, nil", got, err)
	}
}

func TestHandlerOwnKeys(t *testing.T) {
	obj := realvalue.NewPlainObject().Put("a", int64(1)).Put("b", int64(2))
	h, _, sh := newTestHandler(t, obj)
	keys, err := h.OwnKeys(sh)
	if err != nil || len(keys) != 2 {
		t.Fatalf("OwnKeys() = %v, %v; want 2 keys, nil", keys, err)
	}
}
