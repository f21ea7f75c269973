package valuemap

import (
	"testing"

	"github.com/brinklayer/membrane/internal/cylinder"
)

func TestRegisterAndLookup(t *testing.T) {
	m := New()
	c := cylinder.New("wet")
	key := &struct{ X int }{X: 1}
	m.RegisterValue(key, c)

	got, ok := m.Lookup(key)
	if !ok || got != c {
		t.Fatalf("Lookup(key) = %v, %v; want the registered cylinder, true", got, ok)
	}
}

func TestLookupUnknownKey(t *testing.T) {
	m := New()
	if _, ok := m.Lookup(&struct{}{}); ok {
		t.Fatalf("Lookup of an unregistered key must report false")
	}
}

func TestMarkDeadHidesEntry(t *testing.T) {
	m := New()
	c := cylinder.New("wet")
	key := &struct{ X int }{}
	m.RegisterValue(key, c)
	m.MarkDead(key)

	if _, ok := m.Lookup(key); ok {
		t.Fatalf("Lookup after MarkDead must report false")
	}
}

func TestMarkDeadUnknownKeyIsSafe(t *testing.T) {
	m := New()
	m.MarkDead(&struct{}{})
}

func TestSetRejectsLiveConflict(t *testing.T) {
	m := New()
	key := &struct{ X int }{}
	c1 := cylinder.New("wet")
	c2 := cylinder.New("dry")
	if err := m.Set(key, c1); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := m.Set(key, c2); err == nil {
		t.Fatalf("expected conflict overwriting a live key with a different cylinder")
	}
}

func TestSetSameCylinderIsIdempotent(t *testing.T) {
	m := New()
	key := &struct{ X int }{}
	c := cylinder.New("wet")
	if err := m.Set(key, c); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := m.Set(key, c); err != nil {
		t.Fatalf("re-Set with the same cylinder should not error: %v", err)
	}
}
