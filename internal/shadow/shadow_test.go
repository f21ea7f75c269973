package shadow

import (
	"testing"

	"github.com/brinklayer/membrane/internal/descriptor"
)

func TestDefineOwnAndGet(t *testing.T) {
	s := New(KindObject)
	d := descriptor.NewDataDescriptor(int64(10), true, true, true)
	if err := s.DefineOwn("x", d); err != nil {
		t.Fatalf("DefineOwn: %v", err)
	}
	got, ok, err := s.Get("x")
	if err != nil || !ok || got.Value != int64(10) {
		t.Fatalf("Get(x) = %v, %v, %v; want 10, true, nil", got, ok, err)
	}
}

func TestDefineOwnRejectsNonExtensible(t *testing.T) {
	s := New(KindObject)
	s.PreventExtensions()
	err := s.DefineOwn("x", descriptor.NewDataDescriptor(int64(1), true, true, true))
	if err == nil {
		t.Fatalf("expected error adding a key to a non-extensible shadow")
	}
}

func TestDefineOwnRejectsMakingConfigurable(t *testing.T) {
	s := New(KindObject)
	nonConfig := descriptor.NewDataDescriptor(int64(1), true, true, false)
	if err := s.DefineOwn("x", nonConfig); err != nil {
		t.Fatalf("DefineOwn: %v", err)
	}
	tryConfig := descriptor.NewDataDescriptor(int64(2), true, true, true)
	if err := s.DefineOwn("x", tryConfig); err == nil {
		t.Fatalf("expected error making a non-configurable key configurable")
	}
}

func TestLazyGetterResolvesOnce(t *testing.T) {
	s := New(KindObject)
	calls := 0
	lazy := func(target *Shadow, key any) (descriptor.Descriptor, error) {
		calls++
		return descriptor.NewDataDescriptor(int64(calls), true, true, true), nil
	}
	if err := s.DefineLazy("x", lazy); err != nil {
		t.Fatalf("DefineLazy: %v", err)
	}
	first, ok, err := s.Get("x")
	if err != nil || !ok || first.Value != int64(1) {
		t.Fatalf("first Get(x) = %v, %v, %v; want 1, true, nil", first, ok, err)
	}
	second, ok, err := s.Get("x")
	if err != nil || !ok || second.Value != int64(1) {
		t.Fatalf("second Get(x) = %v, %v, %v; want memoized 1", second, ok, err)
	}
	if calls != 1 {
		t.Fatalf("lazy getter invoked %d times; want 1", calls)
	}
}

func TestDeleteRejectsNonConfigurable(t *testing.T) {
	s := New(KindObject)
	d := descriptor.NewDataDescriptor(int64(1), true, true, false)
	if err := s.DefineOwn("x", d); err != nil {
		t.Fatalf("DefineOwn: %v", err)
	}
	if err := s.Delete("x"); err == nil {
		t.Fatalf("expected error deleting a non-configurable key")
	}
	if !s.HasOwn("x") {
		t.Fatalf("key must still be present after a rejected delete")
	}
}

func TestLockSealsAndInstallsLazies(t *testing.T) {
	s := New(KindObject)
	resolve := func(target *Shadow, key any) (descriptor.Descriptor, error) {
		return descriptor.NewDataDescriptor(key, true, true, true), nil
	}
	if err := s.Lock([]any{"b", "a"}, resolve, "proto"); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if s.IsExtensible() {
		t.Fatalf("shadow must be non-extensible after Lock")
	}
	if !s.IsSealed() {
		t.Fatalf("shadow must report sealed after Lock")
	}
	proto, has := s.Prototype()
	if !has || proto != "proto" {
		t.Fatalf("Prototype() = %v, %v; want proto, true", proto, has)
	}
	keys := s.OwnKeys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("OwnKeys() = %v; want sorted [a b]", keys)
	}
}
