package distortions

import (
	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/realvalue"
	"github.com/brinklayer/membrane/internal/rules"
)

// ListenerMeta mirrors the metadata object a ProxyListener receives
// (spec.md §4.2.3): the fields applyConfiguration needs to translate a
// Config into ModifyRules calls.
type ListenerMeta struct {
	OriginGraph cylinder.GraphName
	TargetGraph cylinder.GraphName
	Target      any // the real value, origin graph
	Proxy       any // the proxy, target graph
}

// ApplyConfiguration translates cfg into ModifyRules calls against the
// target graph's proxy (meta.TargetGraph, meta.Proxy), per spec.md §4.6. No
// rule is installed on the origin graph, and cfg.UseShadowTarget is not
// applied.
func ApplyConfiguration(r *rules.Rules, cfg Config, meta ListenerMeta) error {
	if filterKeys, ok := cfg.FilterOwnKeys.([]any); ok {
		if err := r.FilterOwnKeys(meta.TargetGraph, meta.Proxy, rules.KeyFilter(filterKeys)); err != nil {
			return err
		}
	}

	if len(cfg.ProxyTraps) > 0 && len(cfg.ProxyTraps) < len(AllTrapNames) {
		allowed := make(map[string]struct{}, len(cfg.ProxyTraps))
		for _, t := range cfg.ProxyTraps {
			allowed[t] = struct{}{}
		}
		var disable []string
		for _, t := range AllTrapNames {
			if _, ok := allowed[t]; !ok {
				disable = append(disable, t)
			}
		}
		if len(disable) > 0 {
			if err := r.DisableTraps(meta.TargetGraph, meta.Proxy, disable); err != nil {
				return err
			}
		}
	}

	if cfg.StoreUnknownAsLocal {
		if err := r.StoreUnknownAsLocal(meta.TargetGraph, meta.Proxy); err != nil {
			return err
		}
	}
	if cfg.RequireLocalDelete {
		if err := r.RequireLocalDelete(meta.TargetGraph, meta.Proxy); err != nil {
			return err
		}
	}
	if cfg.TruncateArgList != nil && cfg.TruncateArgList != false {
		if err := r.TruncateArgList(meta.TargetGraph, meta.Proxy, cfg.TruncateArgList); err != nil {
			return err
		}
	}

	if ro, ok := meta.Target.(realvalue.RealObject); ok {
		if ext, err := ro.IsExtensible(); err == nil && !ext {
			if proxyObj, ok := meta.Proxy.(realvalue.RealObject); ok {
				_, _ = proxyObj.PreventExtensions()
			}
		}
	}
	return nil
}
