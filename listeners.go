package membrane

import (
	"fmt"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/distortions"
	"github.com/brinklayer/membrane/internal/realvalue"
)

// shadowTargetMode names the three ShadowTarget materialization strategies a
// ProxyListener may request via ListenerMeta.UseShadowTarget (spec.md
// §4.2.3 "useShadowTarget(mode)").
type shadowTargetMode int

const (
	// shadowModePrepared is the default: the shadow is left as built. One-shot
	// lazy getters are installed for the real value's keys only when a trap
	// locks the shadow (spec.md §4.2.2).
	shadowModePrepared shadowTargetMode = iota
	// shadowModeSealed marks the shadow non-extensible immediately, without
	// eagerly resolving any descriptor.
	shadowModeSealed
	// shadowModeFrozen eagerly copies every real descriptor onto the shadow
	// now, then seals it; no further lazy resolution ever occurs.
	shadowModeFrozen
)

// ListenerMeta is passed to every ProxyListener at first-crossing time
// (spec.md §4.2.3). A listener may call UseShadowTarget, StopIteration, or
// ThrowException to influence how BuildMapping finishes.
type ListenerMeta struct {
	Membrane    *Membrane
	OriginGraph cylinder.GraphName
	TargetGraph cylinder.GraphName
	RealValue   any
	Proxy       *cylinder.Proxy

	shadowMode shadowTargetMode
	stop       bool
	thrown     error
}

// UseShadowTarget selects how the shadow behind this crossing should be
// materialized: "prepared" (default, lazy), "sealed" (non-extensible now,
// descriptors still resolved lazily on access), or "frozen" (every
// descriptor copied onto the shadow immediately).
func (lm *ListenerMeta) UseShadowTarget(mode string) {
	switch mode {
	case "sealed":
		lm.shadowMode = shadowModeSealed
	case "frozen":
		lm.shadowMode = shadowModeFrozen
	default:
		lm.shadowMode = shadowModePrepared
	}
}

// StopIteration halts the remaining listeners in this notification round
// (spec.md §4.2.3 "stopIteration()").
func (lm *ListenerMeta) StopIteration() {
	lm.stop = true
}

// ThrowException records e so ProxyNotify aborts the crossing and surfaces e
// to the original caller (spec.md §4.2.3 "throwException(e)").
func (lm *ListenerMeta) ThrowException(e error) {
	lm.thrown = e
	lm.stop = true
}

// notifyProxyListeners fires every listener registered for graph, in
// registration order, stopping early on StopIteration or ThrowException,
// then applies the resulting shadow mode to meta.Proxy.Shadow when a proxy
// was actually built (origin-side notifications carry no proxy). A listener
// that called ThrowException aborts the crossing: notifyProxyListeners
// returns that error instead of applying the catalog or shadow mode, and the
// caller must propagate it rather than continue (spec.md §4.2.3 "Listeners
// that call throwException(e) cause e to propagate after the current
// listener returns").
func (m *Membrane) notifyProxyListeners(graph cylinder.GraphName, meta *ListenerMeta) error {
	m.mu.RLock()
	listeners := make([]ProxyListener, len(m.proxyListeners[graph]))
	copy(listeners, m.proxyListeners[graph])
	m.mu.RUnlock()

	for _, listener := range listeners {
		m.safeCallProxyListener(listener, meta)
		if meta.stop {
			break
		}
	}

	if meta.thrown != nil {
		m.logger.Error().Err(meta.thrown).Str("graph", string(graph)).Msg("proxy listener threw")
		return meta.thrown
	}

	if meta.Proxy == nil {
		return nil
	}

	m.applyCatalogDistortion(graph, meta)

	if err := m.applyShadowMode(meta); err != nil {
		m.logger.Error().Err(err).Str("graph", string(graph)).Msg("failed to materialize shadow target")
	}
	return nil
}

// applyCatalogDistortion consults the membrane's distortion catalog for
// meta.RealValue and, on a match, translates it into ModifyRules calls
// against the freshly built proxy (spec.md §4.6 "Configuration lookup
// order" runs automatically on every first crossing).
func (m *Membrane) applyCatalogDistortion(graph cylinder.GraphName, meta *ListenerMeta) {
	var prototype any
	if ro, ok := meta.RealValue.(realvalue.RealObject); ok {
		prototype, _ = ro.GetPrototypeOf()
	}
	cfg, ok := m.catalog.Lookup(meta.RealValue, prototype)
	if !ok {
		return
	}
	err := distortions.ApplyConfiguration(m.rulesAPI, cfg, distortions.ListenerMeta{
		OriginGraph: meta.OriginGraph,
		TargetGraph: meta.TargetGraph,
		Target:      meta.RealValue,
		Proxy:       meta.Proxy,
	})
	if err != nil {
		m.logger.Error().Err(err).Str("graph", string(graph)).Msg("distortion catalog application failed")
	}
}

func (m *Membrane) safeCallProxyListener(listener ProxyListener, meta *ListenerMeta) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("proxy listener panicked")
		}
	}()
	listener(meta)
}

// applyShadowMode materializes meta.shadowMode onto meta.Proxy.Shadow
// (spec.md §4.2.3). "prepared" is a no-op here: the shadow stays as built
// and graphhandler's traps read the real value directly. Lazy getters
// (spec.md §4.2.2) are installed only when graphhandler's IsExtensible or
// PreventExtensions trap locks the shadow; OwnKeys and Get do not install
// them.
func (m *Membrane) applyShadowMode(meta *ListenerMeta) error {
	if meta.shadowMode == shadowModePrepared {
		return nil
	}

	ro, ok := meta.RealValue.(realvalue.RealObject)
	if !ok {
		return fmt.Errorf("%w: real value of type %T is not a RealObject", ErrPrimitiveWrap, meta.RealValue)
	}

	if meta.shadowMode == shadowModeSealed {
		meta.Proxy.Shadow.PreventExtensions()
		return nil
	}

	keys, err := ro.OwnKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		d, ok, err := ro.GetOwnPropertyDescriptor(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		wrapped, err := m.WrapDescriptor(meta.OriginGraph, meta.TargetGraph, d)
		if err != nil {
			return err
		}
		if err := meta.Proxy.Shadow.DefineOwn(key, wrapped); err != nil {
			return err
		}
	}
	proto, err := ro.GetPrototypeOf()
	if err != nil {
		return err
	}
	if proto != nil {
		wrappedProto, err := m.ConvertArgumentToProxy(meta.OriginGraph, meta.TargetGraph, proto)
		if err != nil {
			return err
		}
		if err := meta.Proxy.Shadow.SetPrototype(wrappedProto); err != nil {
			return err
		}
	}
	meta.Proxy.Shadow.PreventExtensions()
	return nil
}
