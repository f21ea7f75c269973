package descriptor

import "testing"

func TestClassifyPrimitives(t *testing.T) {
	cases := []any{42, int64(1), "s", true, 3.14, complex(1, 2)}
	for _, v := range cases {
		if !IsPrimitive(v) {
			t.Fatalf("IsPrimitive(%v) = false; want true", v)
		}
	}
}

func TestClassifyFunction(t *testing.T) {
	fn := func() {}
	if Classify(fn) != Function {
		t.Fatalf("Classify(func) = %v; want Function", Classify(fn))
	}
}

func TestClassifyObject(t *testing.T) {
	type thing struct{}
	if Classify(&thing{}) != Obj {
		t.Fatalf("Classify(*struct) = %v; want Obj", Classify(&thing{}))
	}
	if Classify(map[string]int{}) != Obj {
		t.Fatalf("Classify(map) = %v; want Obj", Classify(map[string]int{}))
	}
}

func TestClassifyNil(t *testing.T) {
	if !IsPrimitive(nil) {
		t.Fatalf("IsPrimitive(nil) = false; want true")
	}
}

func TestDescriptorEqualRoundTrip(t *testing.T) {
	d := NewDataDescriptor(int64(10), true, true, true)
	if !d.Equal(d) {
		t.Fatalf("descriptor is not equal to itself")
	}
	other := NewDataDescriptor(int64(10), true, true, true)
	if !d.Equal(other) {
		t.Fatalf("two data descriptors with the same fields must be Equal")
	}
	changed := NewDataDescriptor(int64(11), true, true, true)
	if d.Equal(changed) {
		t.Fatalf("descriptors with different values must not be Equal")
	}
}

func TestAccessorDescriptorIsAccessor(t *testing.T) {
	d := NewAccessorDescriptor(nil, nil, true, true)
	if !d.IsAccessor() {
		t.Fatalf("IsAccessor() = false; want true")
	}
	if d.IsDataAndWritable() {
		t.Fatalf("accessor descriptor reported IsDataAndWritable")
	}
}
