package primordials

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBuiltinsAreRecognized(t *testing.T) {
	if !Is(errors.New("boom")) {
		t.Fatalf("error values must be classified as primordial")
	}
	if !Is(time.Now()) {
		t.Fatalf("time.Time values must be classified as primordial")
	}
	ctx := context.Background()
	if !Is(ctx) {
		t.Fatalf("context.Context values must be classified as primordial")
	}
}

func TestIsRejectsOrdinaryValues(t *testing.T) {
	type thing struct{ X int }
	if Is(&thing{}) {
		t.Fatalf("ordinary struct pointer must not be classified as primordial")
	}
}

func TestRegisterBeforeFreeze(t *testing.T) {
	type custom struct{}
	ct := reflect.TypeOf(custom{})
	if !Register(ct) {
		t.Fatalf("Register must succeed before Freeze")
	}
	if !Is(custom{}) {
		t.Fatalf("registered type must be classified as primordial")
	}
	found := false
	for _, rt := range List() {
		if rt == ct {
			found = true
		}
	}
	if !found {
		t.Fatalf("List() must include a registered type")
	}
}

func TestComparable(t *testing.T) {
	if !Comparable(nil) {
		t.Fatalf("Comparable(nil) = false; want true")
	}
	if !Comparable(42) {
		t.Fatalf("Comparable(int) = false; want true")
	}
	if Comparable([]int{1, 2}) {
		t.Fatalf("Comparable(slice) = true; want false")
	}
}
