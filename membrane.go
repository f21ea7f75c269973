// Package membrane implements the mediating boundary described across the
// internal/ packages: per-value cylinders, per-graph handlers, a handler
// pipeline, a rule-modification layer, and a distortion catalog, unified
// behind the single façade type this package exports (spec.md §4.3).
//
// Ownership boundary:
// - graph-handler registry by name, admission control for new graphs
//
// - the value->cylinder weak map (delegated to internal/valuemap)
//
// - modifyRules / distortions wiring, function- and proxy-listener lists
//
// Canonical references (consult before changes):
// - spec.md §4.3 Membrane façade
// - spec.md §6 External interfaces
package membrane

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brinklayer/membrane/internal/auth"
	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/distortions"
	"github.com/brinklayer/membrane/internal/graphhandler"
	"github.com/brinklayer/membrane/internal/pipeline"
	"github.com/brinklayer/membrane/internal/rules"
	"github.com/brinklayer/membrane/internal/valuemap"
)

// PassThroughFilter decides whether a value should cross the membrane
// unwrapped even though it is not a primitive (spec.md §4.3 "If the global
// or both per-handler pass-through filters accept arg, return arg
// unchanged").
type PassThroughFilter func(graph cylinder.GraphName, v any) bool

// FunctionListener receives apply/construct trace events (spec.md §6
// "Listener ABIs").
type FunctionListener func(reason, trapName string, thisGraph, originGraph cylinder.GraphName, target any, rvOrExn any)

// ProxyListener receives a ListenerMeta on every first-crossing notification
// (spec.md §4.2.3).
type ProxyListener func(meta *ListenerMeta)

// Options configures a new Membrane (spec.md §6 "Construction").
type Options struct {
	// PassThroughFilter, when set, is consulted for every graph, together
	// with the catalog's ignorable set, before wrapping a non-primitive
	// value. There are no per-graph pass-through filters.
	PassThroughFilter PassThroughFilter
	// ShowGraphName enables the membraneGraphName sentinel property.
	ShowGraphName bool
	// Logger receives structured diagnostics; defaults to a disabled logger.
	Logger *zerolog.Logger
	// Refactor is a free-form compatibility tag carried for API parity; New
	// does not read it, and this implementation has only one, pipeline-based,
	// code path.
	Refactor string
	// GraphAdmission, when set, gates RegisterGraph with a token check.
	GraphAdmission auth.Validator
	// IgnorePrimordials, when true, wires distortions.IgnorePrimordials()
	// into the new membrane's catalog so every primordial (error, time.Time,
	// context.Context, ...) passes through unwrapped (spec.md §6
	// "ignorePrimordials()").
	IgnorePrimordials bool
}

// graphEntry bundles a graph's handler with its effective pipeline.
type graphEntry struct {
	handler  *graphhandler.Handler
	pipeline *pipeline.List
}

// Membrane is the mediation engine façade: one membrane owns any number of
// graphs and the cylinders that bind values crossing between them.
type Membrane struct {
	mu sync.RWMutex

	logger zerolog.Logger

	values  *valuemap.Map
	graphs  map[cylinder.GraphName]*graphEntry
	revoked map[cylinder.GraphName]bool

	rulesAPI *rules.Rules
	catalog  *distortions.Catalog

	passThroughFilter PassThroughFilter
	showGraphName     bool
	admission         auth.Validator

	warnOnce map[string]struct{}

	functionListeners []FunctionListener
	proxyListeners    map[cylinder.GraphName][]ProxyListener

	// boundPairs holds explicit cross-wirings installed by
	// BindValuesByHandlers (spec.md §6 "bindValuesByHandlers", S7): each
	// (target graph, value) pair maps directly to its counterpart so
	// ConvertArgumentToProxy can return the bound value with reference
	// identity instead of building a shadow/proxy pair. Keying by graph as
	// well as value keeps the binding scoped to the h0/h1 boundary it was
	// installed for, rather than applying to every graph that ever asks to
	// convert that value.
	boundPairs map[boundKey]any
}

// boundKey identifies one side of a BindValuesByHandlers binding: the graph
// a value is being converted into, plus the value itself.
type boundKey struct {
	graph cylinder.GraphName
	value any
}

// New constructs an empty Membrane with no graphs registered.
func New(opts Options) *Membrane {
	m := &Membrane{
		values:            valuemap.New(),
		graphs:            make(map[cylinder.GraphName]*graphEntry),
		revoked:           make(map[cylinder.GraphName]bool),
		catalog:           distortions.New(),
		passThroughFilter: opts.PassThroughFilter,
		showGraphName:     opts.ShowGraphName,
		admission:         opts.GraphAdmission,
		warnOnce:          make(map[string]struct{}),
		proxyListeners:    make(map[cylinder.GraphName][]ProxyListener),
		boundPairs:        make(map[boundKey]any),
	}
	if opts.Logger != nil {
		m.logger = *opts.Logger
	}
	if opts.IgnorePrimordials {
		m.catalog.IgnorePrimordials()
	}
	m.rulesAPI = rules.New(m)
	return m
}

// Catalog exposes the membrane's distortion catalog so callers can register
// listeners before any value crosses (spec.md §4.6).
func (m *Membrane) Catalog() *distortions.Catalog {
	return m.catalog
}

// Rules exposes the ModifyRules surface (spec.md §4.4).
func (m *Membrane) Rules() *rules.Rules {
	return m.rulesAPI
}

// RegisterGraph admits a new graph under name, optionally gated by a token
// checked against GraphAdmission (ADDED per SPEC_FULL.md §6: admission
// control). Re-registering an already-admitted graph fails with
// ErrGraphAlreadyRegistered; use GetHandlerByName(name, true) to fetch an
// existing graph idempotently instead.
func (m *Membrane) RegisterGraph(name cylinder.GraphName, token string) error {
	if m.admission != nil {
		if err := m.admission.ValidateGraphAdmission(string(name), token); err != nil {
			return fmt.Errorf("membrane: graph %s admission denied: %w", name, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.graphs[name]; exists {
		return fmt.Errorf("%w: %s", ErrGraphAlreadyRegistered, name)
	}
	entry := &graphEntry{}
	entry.handler = graphhandler.New(name, m)
	entry.pipeline = pipeline.New(entry.handler)
	m.graphs[name] = entry
	m.logger.Info().Str("graph", string(name)).Msg("graph registered")
	return nil
}

// GetHandlerByName returns graph g's handler, creating an un-gated entry for
// it when mustCreate is true and it does not yet exist (spec.md §4.3).
func (m *Membrane) GetHandlerByName(g cylinder.GraphName, mustCreate bool) (*graphhandler.Handler, error) {
	m.mu.RLock()
	entry, ok := m.graphs[g]
	m.mu.RUnlock()
	if ok {
		return entry.handler, nil
	}
	if !mustCreate {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGraph, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.graphs[g]; ok {
		return entry.handler, nil
	}
	entry = &graphEntry{}
	entry.handler = graphhandler.New(g, m)
	entry.pipeline = pipeline.New(entry.handler)
	m.graphs[g] = entry
	return entry.handler, nil
}

// pipelineFor returns graph g's handler pipeline, creating it if absent.
func (m *Membrane) pipelineFor(g cylinder.GraphName) *pipeline.List {
	m.mu.RLock()
	entry, ok := m.graphs[g]
	m.mu.RUnlock()
	if ok {
		return entry.pipeline
	}
	if _, err := m.GetHandlerByName(g, true); err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graphs[g].pipeline
}

// WarnOnce logs msg at warn level the first time it is seen, and silently
// ignores subsequent calls with the same msg (spec.md §4.3).
func (m *Membrane) WarnOnce(msg string) {
	m.mu.Lock()
	_, seen := m.warnOnce[msg]
	if !seen {
		m.warnOnce[msg] = struct{}{}
	}
	m.mu.Unlock()
	if !seen {
		m.logger.Warn().Msg(msg)
	}
}

// AddFunctionListener registers fn to receive enter/return/throw events.
func (m *Membrane) AddFunctionListener(fn FunctionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functionListeners = append(m.functionListeners, fn)
}

// RemoveFunctionListenerAt removes the function listener at index i, counted
// in registration order; an out-of-range index is ignored. Go funcs are not
// comparable, so listeners are removed by position rather than by identity.
func (m *Membrane) RemoveFunctionListenerAt(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.functionListeners) {
		return
	}
	m.functionListeners = append(m.functionListeners[:i], m.functionListeners[i+1:]...)
}

// AddProxyListener registers listener for graph g's first-crossing
// notifications (spec.md §4.2.3).
func (m *Membrane) AddProxyListener(g cylinder.GraphName, listener ProxyListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxyListeners[g] = append(m.proxyListeners[g], listener)
}

// IsGraphRevoked reports whether g has been revoked via RevokeEverything.
func (m *Membrane) IsGraphRevoked(g cylinder.GraphName) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revoked[g]
}

// RevokeEverything terminates every proxy that belongs to graph g
// (spec.md §6 "graphHandler.revokeEverything()").
func (m *Membrane) RevokeEverything(g cylinder.GraphName) {
	m.mu.Lock()
	m.revoked[g] = true
	m.mu.Unlock()
	m.logger.Info().Str("graph", string(g)).Msg("graph revoked")
}

// FireFunctionListener invokes every registered function listener with the
// given event, swallowing and logging any panic/error a listener produces
// (spec.md §7 "exceptions thrown by listeners are swallowed and logged").
func (m *Membrane) FireFunctionListener(reason, trapName string, thisGraph, originGraph cylinder.GraphName, target any, rvOrExn any) {
	m.mu.RLock()
	listeners := make([]FunctionListener, len(m.functionListeners))
	copy(listeners, m.functionListeners)
	m.mu.RUnlock()
	for _, fn := range listeners {
		m.safeCallListener(fn, reason, trapName, thisGraph, originGraph, target, rvOrExn)
	}
}

func (m *Membrane) safeCallListener(fn FunctionListener, reason, trapName string, thisGraph, originGraph cylinder.GraphName, target any, rvOrExn any) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("function listener panicked")
		}
	}()
	fn(reason, trapName, thisGraph, originGraph, target, rvOrExn)
}

// Lookup satisfies graphhandler.Wrapper / rules.Wrapper / cylinder.Registrar.
func (m *Membrane) Lookup(key any) (*cylinder.Cylinder, bool) {
	return m.values.Lookup(key)
}

// RegisterValue satisfies graphhandler.Wrapper / rules.Wrapper / cylinder.Registrar.
func (m *Membrane) RegisterValue(key any, c *cylinder.Cylinder) {
	m.values.RegisterValue(key, c)
}

// MarkDead satisfies cylinder.Registrar.
func (m *Membrane) MarkDead(key any) {
	m.values.MarkDead(key)
}

// HasProxyForValue reports whether v already has a live cylinder entry for
// graph g (spec.md §4.3).
func (m *Membrane) HasProxyForValue(g cylinder.GraphName, v any) bool {
	c, ok := m.values.Lookup(v)
	if !ok {
		return false
	}
	_, err := c.GetProxy(g)
	return err == nil
}

// GetMembraneValue returns the real value bound to v's cylinder on graph g,
// if any (spec.md §4.3).
func (m *Membrane) GetMembraneValue(g cylinder.GraphName, v any) (bool, any) {
	c, ok := m.values.Lookup(v)
	if !ok {
		return false, nil
	}
	orig, err := c.GetOriginal()
	if err != nil {
		return false, nil
	}
	_ = g
	return true, orig
}

// GetMembraneProxy returns the proxy bound to v's cylinder on graph g, if
// any (spec.md §4.3).
func (m *Membrane) GetMembraneProxy(g cylinder.GraphName, v any) (bool, any) {
	c, ok := m.values.Lookup(v)
	if !ok {
		return false, nil
	}
	p, err := c.GetProxy(g)
	if err != nil {
		return false, nil
	}
	return true, p
}

// RevokeMapping marks key's cylinder dead (spec.md §4.3).
func (m *Membrane) RevokeMapping(key any) error {
	c, ok := m.values.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownGraph, key)
	}
	c.RevokeAll(m)
	return nil
}
