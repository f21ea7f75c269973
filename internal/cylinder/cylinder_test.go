package cylinder

import (
	"testing"

	"github.com/brinklayer/membrane/internal/shadow"
)

type fakeRegistrar struct {
	registered map[any]*Cylinder
	dead       map[any]bool
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: make(map[any]*Cylinder), dead: make(map[any]bool)}
}

func (r *fakeRegistrar) RegisterValue(key any, c *Cylinder) { r.registered[key] = c }
func (r *fakeRegistrar) MarkDead(key any)                   { r.dead[key] = true }

func TestSetMetadataOriginThenForeign(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	value := &struct{ X int }{X: 1}
	if err := c.SetMetadata(reg, "wet", EntryOptions{Kind: KindOrigin, Value: value}); err != nil {
		t.Fatalf("origin SetMetadata: %v", err)
	}
	got, err := c.GetOriginal()
	if err != nil || got != value {
		t.Fatalf("GetOriginal() = %v, %v; want value, nil", got, err)
	}

	sh := shadow.New(shadow.KindObject)
	proxy := NewProxy(sh, nil)
	revoked := false
	if err := c.SetMetadata(reg, "dry", EntryOptions{
		Kind: KindForeign, Proxy: proxy, Revoke: func() { revoked = true }, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}
	p, err := c.GetProxy("dry")
	if err != nil || p != proxy {
		t.Fatalf("GetProxy(dry) = %v, %v; want proxy, nil", p, err)
	}
	_ = revoked
}

func TestSetMetadataRejectsOriginOnWrongGraph(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	err := c.SetMetadata(reg, "dry", EntryOptions{Kind: KindOrigin, Value: 1})
	if err == nil {
		t.Fatalf("expected error installing an origin entry on a non-origin graph")
	}
}

func TestSetMetadataRejectsIncompleteForeign(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	err := c.SetMetadata(reg, "dry", EntryOptions{Kind: KindForeign})
	if err == nil {
		t.Fatalf("expected error installing a foreign entry without proxy/revoke/shadow")
	}
}

func TestSetMetadataRejectsDuplicateWithoutOverride(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	sh := shadow.New(shadow.KindObject)
	proxy := NewProxy(sh, nil)
	opts := EntryOptions{Kind: KindForeign, Proxy: proxy, Revoke: func() {}, Shadow: sh}
	if err := c.SetMetadata(reg, "dry", opts); err != nil {
		t.Fatalf("first SetMetadata: %v", err)
	}
	if err := c.SetMetadata(reg, "dry", opts); err == nil {
		t.Fatalf("expected duplicate-graph error without Override")
	}
	opts.Override = true
	if err := c.SetMetadata(reg, "dry", opts); err != nil {
		t.Fatalf("SetMetadata with Override should succeed: %v", err)
	}
}

func TestRevokeAllInvokesRevokeAndMarksDead(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	value := &struct{ X int }{}
	if err := c.SetMetadata(reg, "wet", EntryOptions{Kind: KindOrigin, Value: value}); err != nil {
		t.Fatalf("origin SetMetadata: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	proxy := NewProxy(sh, nil)
	revoked := false
	if err := c.SetMetadata(reg, "dry", EntryOptions{
		Kind: KindForeign, Proxy: proxy, Revoke: func() { revoked = true }, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}

	c.RevokeAll(reg)

	if !revoked {
		t.Fatalf("RevokeAll must invoke the foreign entry's revoke callback")
	}
	if !c.IsDead("dry") || !c.IsDead("wet") {
		t.Fatalf("RevokeAll must mark every graph dead")
	}
	if !reg.dead[proxy] || !reg.dead[value] {
		t.Fatalf("RevokeAll must tombstone both the proxy and the origin value in the registrar")
	}
}

func TestRemoveGraphRequiresForeignGraphsDeadFirst(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	value := &struct{ X int }{}
	if err := c.SetMetadata(reg, "wet", EntryOptions{Kind: KindOrigin, Value: value}); err != nil {
		t.Fatalf("origin SetMetadata: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	proxy := NewProxy(sh, nil)
	if err := c.SetMetadata(reg, "dry", EntryOptions{
		Kind: KindForeign, Proxy: proxy, Revoke: func() {}, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}

	if err := c.RemoveGraph(reg, "wet"); err == nil {
		t.Fatalf("expected error removing origin graph while a foreign graph is still live")
	}
	if err := c.RemoveGraph(reg, "dry"); err != nil {
		t.Fatalf("RemoveGraph(dry): %v", err)
	}
	if err := c.RemoveGraph(reg, "wet"); err != nil {
		t.Fatalf("RemoveGraph(wet) after dry is dead: %v", err)
	}
}

func TestLocalDescriptorOverlay(t *testing.T) {
	reg := newFakeRegistrar()
	c := New("wet")
	sh := shadow.New(shadow.KindObject)
	proxy := NewProxy(sh, nil)
	if err := c.SetMetadata(reg, "dry", EntryOptions{
		Kind: KindForeign, Proxy: proxy, Revoke: func() {}, Shadow: sh,
	}); err != nil {
		t.Fatalf("foreign SetMetadata: %v", err)
	}

	if _, ok, _ := c.GetLocalDescriptor("dry", "z"); ok {
		t.Fatalf("no local descriptor should exist yet")
	}

	if err := c.SetLocalFlag("dry", "storeUnknownAsLocal", true); err != nil {
		t.Fatalf("SetLocalFlag: %v", err)
	}
	flag, err := c.GetLocalFlag("dry", "storeUnknownAsLocal")
	if err != nil || !flag {
		t.Fatalf("GetLocalFlag = %v, %v; want true, nil", flag, err)
	}
}
