package distortions

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestLookupByValue(t *testing.T) {
	c := New()
	key := &struct{ X int }{}
	cfg := Config{StoreUnknownAsLocal: true}
	c.AddListener(CategoryValue, key, cfg)

	got, ok := c.Lookup(key, nil)
	if !ok || !got.StoreUnknownAsLocal {
		t.Fatalf("Lookup(key) = %v, %v; want the registered config", got, ok)
	}
}

func TestLookupByPrototype(t *testing.T) {
	c := New()
	proto := &struct{ Name string }{Name: "proto"}
	cfg := Config{RequireLocalDelete: true}
	c.AddListener(CategoryPrototype, proto, cfg)

	value := &struct{ X int }{}
	got, ok := c.Lookup(value, proto)
	if !ok || !got.RequireLocalDelete {
		t.Fatalf("Lookup(value, proto) = %v, %v; want the proto-keyed config", got, ok)
	}
}

func TestLookupByInstanceType(t *testing.T) {
	type record struct{ ID int64 }
	c := New()
	cfg := Config{StoreUnknownAsLocal: true}
	c.AddListener(CategoryInstance, reflect.TypeOf(&record{}), cfg)

	got, ok := c.Lookup(&record{ID: 1}, nil)
	if !ok || !got.StoreUnknownAsLocal {
		t.Fatalf("Lookup by instance type = %v, %v; want the registered config", got, ok)
	}
}

func TestLookupByFilterPredicate(t *testing.T) {
	c := New()
	cfg := Config{RequireLocalDelete: true}
	pred := func(v any) bool {
		_, ok := v.(string)
		return ok
	}
	c.AddListener(CategoryFilter, pred, cfg)

	got, ok := c.Lookup("anything", nil)
	if !ok || !got.RequireLocalDelete {
		t.Fatalf("Lookup via filter predicate = %v, %v; want the registered config", got, ok)
	}
}

func TestLookupPrefersValueOverPrototype(t *testing.T) {
	c := New()
	key := &struct{ X int }{}
	proto := &struct{ Y int }{}
	c.AddListener(CategoryValue, key, Config{StoreUnknownAsLocal: true})
	c.AddListener(CategoryPrototype, proto, Config{RequireLocalDelete: true})

	got, ok := c.Lookup(key, proto)
	if !ok || !got.StoreUnknownAsLocal || got.RequireLocalDelete {
		t.Fatalf("Lookup = %v, %v; exact value match must win over prototype", got, ok)
	}
}

func TestLookupNoMatch(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(&struct{}{}, nil); ok {
		t.Fatalf("Lookup on an empty catalog must report false")
	}
}

func TestIgnorableValues(t *testing.T) {
	c := New()
	v := &struct{}{}
	if c.IsIgnorable(v) {
		t.Fatalf("unregistered value must not be ignorable")
	}
	c.IgnoreValue(v)
	if !c.IsIgnorable(v) {
		t.Fatalf("value must be ignorable after IgnoreValue")
	}
}

func TestIgnorePrimordials(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	now := time.Now()
	if c.IsIgnorable(boom) || c.IsIgnorable(now) {
		t.Fatalf("primordials must not be ignorable before IgnorePrimordials is called")
	}
	c.IgnorePrimordials()
	if !c.IsIgnorable(boom) {
		t.Fatalf("error values must be ignorable after IgnorePrimordials")
	}
	if !c.IsIgnorable(now) {
		t.Fatalf("time.Time values must be ignorable after IgnorePrimordials")
	}
	if c.IsIgnorable(&struct{}{}) {
		t.Fatalf("non-primordial values must remain non-ignorable after IgnorePrimordials")
	}
}
