// Package pipeline implements the per-graph handler pipeline: a singly
// linked list of mediation stages terminating at the graph's GraphHandler
// (spec.md §4.5).
//
// Ownership boundary:
// - stage ordering and insertion (insertHandler)
//
// - the built-in stages: Tracing, GraphInvariantIn, Forwarding,
//   ConvertFromShadow, UpdateShadow, GraphInvariantOut
package pipeline

import (
	"fmt"
	"sync"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/shadow"
)

// Phase names a fixed insertion point in the pipeline (spec.md §4.5).
type Phase string

const (
	PhaseTracing           Phase = "Tracing"
	PhaseGraphInvariantIn  Phase = "GraphInvariantIn"
	PhaseForwarding        Phase = "Forwarding"
	PhaseConvertFromShadow Phase = "ConvertFromShadow"
	PhaseUpdateShadow      Phase = "UpdateShadow"
	PhaseGraphInvariantOut Phase = "GraphInvariantOut"
)

// Node is one pipeline stage. Next points at the stage's successor; a Node
// overrides only the traps it cares about by wrapping Next's implementation.
type Node struct {
	Name string
	Next cylinder.TrapSet
}

// TraceFunc observes a trap entry or exit (the Tracing phase).
type TraceFunc func(event string, trapName string, target *shadow.Shadow)

// shadowInsertion records one per-shadow InsertHandler call: name is the
// node's key in byName, leadName is the node it was spliced in after.
type shadowInsertion struct {
	name     string
	leadName string
}

// List is the ordered, named chain of nodes for one graph, plus optional
// per-shadow overrides installed via InsertHandler.
type List struct {
	mu        sync.Mutex
	terminal  cylinder.TrapSet
	order     []string
	byName    map[string]cylinder.TrapSet
	perShadow map[*shadow.Shadow][]shadowInsertion

	Tracer TraceFunc
}

// New builds the default pipeline order terminating at terminal (normally a
// *graphhandler.Handler).
func New(terminal cylinder.TrapSet) *List {
	l := &List{
		terminal:  terminal,
		byName:    make(map[string]cylinder.TrapSet),
		perShadow: make(map[*shadow.Shadow][]shadowInsertion),
	}
	l.order = []string{
		string(PhaseTracing),
		string(PhaseGraphInvariantIn),
		string(PhaseForwarding),
		string(PhaseConvertFromShadow),
		string(PhaseUpdateShadow),
		string(PhaseGraphInvariantOut),
	}
	l.byName[string(PhaseTracing)] = &tracingNode{list: l}
	l.byName[string(PhaseGraphInvariantIn)] = &invariantInNode{}
	l.byName[string(PhaseForwarding)] = &forwardingNode{}
	l.byName[string(PhaseConvertFromShadow)] = &convertFromShadowNode{}
	l.byName[string(PhaseUpdateShadow)] = &updateShadowNode{}
	l.byName[string(PhaseGraphInvariantOut)] = &invariantOutNode{}
	return l
}

// InsertHandler installs node under name after leadName, either globally or
// (when insertTarget is non-nil) only for traps against that shadow
// (spec.md §4.5 "Nodes may be installed per-shadow or globally").
func (l *List) InsertHandler(leadName string, name string, node cylinder.TrapSet, insertTarget *shadow.Shadow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if insertTarget == nil {
		newOrder, err := spliceAfter(l.order, leadName, name)
		if err != nil {
			return err
		}
		l.byName[name] = node
		l.order = newOrder
		return nil
	}
	if !containsName(l.order, leadName) {
		return fmt.Errorf("pipeline: lead node %q does not exist", leadName)
	}
	l.byName[name] = node
	l.perShadow[insertTarget] = append(l.perShadow[insertTarget], shadowInsertion{name: name, leadName: leadName})
	return nil
}

// spliceAfter returns a copy of order with name inserted immediately after
// leadName, or an error if leadName is not present.
func spliceAfter(order []string, leadName, name string) ([]string, error) {
	idx := -1
	for i, n := range order {
		if n == leadName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("pipeline: lead node %q does not exist", leadName)
	}
	out := make([]string, 0, len(order)+1)
	out = append(out, order[:idx+1]...)
	out = append(out, name)
	out = append(out, order[idx+1:]...)
	return out, nil
}

func containsName(order []string, name string) bool {
	for _, n := range order {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve builds the effective TrapSet chain for target: the global order
// with any nodes installed per-shadow for this specific target spliced in
// after their lead node (spec.md §4.5 "Nodes may be installed per-shadow or
// globally"), wrapping down to l.terminal.
func (l *List) Resolve(target *shadow.Shadow) cylinder.TrapSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	order := l.order
	if insertions := l.perShadow[target]; len(insertions) > 0 {
		order = append([]string(nil), l.order...)
		for _, ins := range insertions {
			spliced, err := spliceAfter(order, ins.leadName, ins.name)
			if err != nil {
				continue
			}
			order = spliced
		}
	}
	var chain cylinder.TrapSet = l.terminal
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		node, ok := l.byName[name]
		if !ok {
			continue
		}
		chain = withNext(node, chain)
	}
	return chain
}

// withNext rebinds node's successor to chain. Built-in nodes expose SetNext
// (most of them through the embedded passthroughNode); custom nodes installed via InsertHandler must do the same
// to participate in the chain.
func withNext(node cylinder.TrapSet, next cylinder.TrapSet) cylinder.TrapSet {
	if setter, ok := node.(interface{ SetNext(cylinder.TrapSet) }); ok {
		setter.SetNext(next)
	}
	return node
}
