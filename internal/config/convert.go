package config

import (
	"strconv"

	"github.com/brinklayer/membrane/internal/distortions"
)

// CatalogEntry pairs a registered type name with the distortion config it
// should install on first crossing.
type CatalogEntry struct {
	TypeName string
	Config   distortions.Config
}

// ToCatalogEntries converts the TOML-level distortion rules into the
// distortions.Config shape the catalog consumes.
func ToCatalogEntries(rules []DistortionRule) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(rules))
	for _, r := range rules {
		cfg := distortions.Config{
			ProxyTraps:          r.ProxyTraps,
			StoreUnknownAsLocal: r.StoreUnknownAsLocal,
			RequireLocalDelete:  r.RequireLocalDelete,
		}
		if len(r.FilterOwnKeys) > 0 {
			keys := make([]any, len(r.FilterOwnKeys))
			for i, k := range r.FilterOwnKeys {
				keys[i] = k
			}
			cfg.FilterOwnKeys = keys
		} else {
			cfg.FilterOwnKeys = false
		}
		if r.UseShadowTarget != "" {
			cfg.UseShadowTarget = r.UseShadowTarget
		} else {
			cfg.UseShadowTarget = false
		}
		switch r.TruncateArgList {
		case "arity":
			cfg.TruncateArgList = true
		case "", "false":
			cfg.TruncateArgList = false
		default:
			if n, err := strconv.Atoi(r.TruncateArgList); err == nil {
				cfg.TruncateArgList = n
			}
		}
		entries = append(entries, CatalogEntry{TypeName: r.TypeName, Config: cfg})
	}
	return entries
}
