package pipeline

import (
	"testing"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/descriptor"
	"github.com/brinklayer/membrane/internal/shadow"
)

type recordingTerminal struct {
	gets int
}

func (t *recordingTerminal) SetNext(cylinder.TrapSet) {}
func (t *recordingTerminal) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	t.gets++
	return "value", nil
}
func (t *recordingTerminal) Set(target *shadow.Shadow, key any, value any, receiver any) error {
	return nil
}
func (t *recordingTerminal) Has(target *shadow.Shadow, key any) (bool, error) { return false, nil }
func (t *recordingTerminal) GetOwnPropertyDescriptor(target *shadow.Shadow, key any) (descriptor.Descriptor, bool, error) {
	return descriptor.Descriptor{}, false, nil
}
func (t *recordingTerminal) DefineProperty(target *shadow.Shadow, key any, d descriptor.Descriptor) (bool, error) {
	return true, nil
}
func (t *recordingTerminal) DeleteProperty(target *shadow.Shadow, key any) (bool, error) {
	return true, nil
}
func (t *recordingTerminal) OwnKeys(target *shadow.Shadow) ([]any, error) { return nil, nil }
func (t *recordingTerminal) GetPrototypeOf(target *shadow.Shadow) (any, error) {
	return nil, nil
}
func (t *recordingTerminal) SetPrototypeOf(target *shadow.Shadow, proto any) (bool, error) {
	return true, nil
}
func (t *recordingTerminal) IsExtensible(target *shadow.Shadow) (bool, error) { return true, nil }
func (t *recordingTerminal) PreventExtensions(target *shadow.Shadow) (bool, error) {
	return true, nil
}
func (t *recordingTerminal) Apply(target *shadow.Shadow, thisArg any, args []any) (any, error) {
	return nil, nil
}
func (t *recordingTerminal) Construct(target *shadow.Shadow, args []any, newTarget any) (any, error) {
	return nil, nil
}

func TestResolveReachesTerminal(t *testing.T) {
	terminal := &recordingTerminal{}
	l := New(terminal)
	sh := shadow.New(shadow.KindObject)
	chain := l.Resolve(sh)
	got, err := chain.Get(sh, "k", nil)
	if err != nil || got != "value" {
		t.Fatalf("Get through the default chain = %v, %v; want value, nil", got, err)
	}
	if terminal.gets != 1 {
		t.Fatalf("terminal.gets = %d; want 1", terminal.gets)
	}
}

func TestResolveInvokesTracer(t *testing.T) {
	terminal := &recordingTerminal{}
	l := New(terminal)
	var events []string
	l.Tracer = func(event, trap string, target *shadow.Shadow) {
		events = append(events, event+":"+trap)
	}
	sh := shadow.New(shadow.KindObject)
	chain := l.Resolve(sh)
	if _, err := chain.Get(sh, "k", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{"enter:get", "exit:get"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v; want %v", events, want)
	}
}

type markerNode struct {
	passthroughNode
	name string
	hits *[]string
}

func (n *markerNode) Get(target *shadow.Shadow, key any, receiver any) (any, error) {
	*n.hits = append(*n.hits, n.name)
	return n.next.Get(target, key, receiver)
}

func TestInsertHandlerSplicesGlobalNode(t *testing.T) {
	terminal := &recordingTerminal{}
	l := New(terminal)
	var hits []string
	node := &markerNode{name: "custom", hits: &hits}
	if err := l.InsertHandler(string(PhaseForwarding), "Custom", node, nil); err != nil {
		t.Fatalf("InsertHandler: %v", err)
	}
	sh := shadow.New(shadow.KindObject)
	chain := l.Resolve(sh)
	if _, err := chain.Get(sh, "k", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(hits) != 1 || hits[0] != "custom" {
		t.Fatalf("hits = %v; want [custom]", hits)
	}
}

func TestInsertHandlerRejectsUnknownLead(t *testing.T) {
	l := New(&recordingTerminal{})
	node := &markerNode{name: "x", hits: &[]string{}}
	if err := l.InsertHandler("NoSuchPhase", "Custom", node, nil); err == nil {
		t.Fatalf("expected error inserting after an unknown lead node")
	}
}

// TestInsertHandlerScopesPerShadowNode proves a node installed with a
// non-nil insertTarget applies only to that shadow's resolved chain, not to
// a different shadow resolved from the same List (spec.md §4.5).
func TestInsertHandlerScopesPerShadowNode(t *testing.T) {
	l := New(&recordingTerminal{})
	var hits []string
	node := &markerNode{name: "custom", hits: &hits}
	target := shadow.New(shadow.KindObject)
	other := shadow.New(shadow.KindObject)

	if err := l.InsertHandler(string(PhaseForwarding), "Custom", node, target); err != nil {
		t.Fatalf("InsertHandler: %v", err)
	}

	targetChain := l.Resolve(target)
	if _, err := targetChain.Get(target, "k", nil); err != nil {
		t.Fatalf("Get on target: %v", err)
	}
	if len(hits) != 1 || hits[0] != "custom" {
		t.Fatalf("hits after target resolve = %v; want [custom]", hits)
	}

	otherChain := l.Resolve(other)
	if _, err := otherChain.Get(other, "k", nil); err != nil {
		t.Fatalf("Get on other: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits after other resolve = %v; per-shadow node must not fire for a different shadow", hits)
	}
}
