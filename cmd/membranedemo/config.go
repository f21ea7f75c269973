package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/brinklayer/membrane/internal/config"
)

// overrideFile is the optional second TOML document a deployment may layer
// on top of the primary MembraneConfig, following the same
// decode-into-raw-struct-then-check-meta.IsDefined pattern ghostctl uses for
// its service config: only fields actually present in the override file
// replace the base value, so a partial override never zeroes out the rest.
type overrideFile struct {
	Addr          string   `toml:"addr"`
	CorsOrigins   []string `toml:"cors_origins"`
	ShowGraphName bool     `toml:"show_graph_name"`
	AdminToken    string   `toml:"admin_token"`
}

func applyOverride(cfg config.MembraneConfig, path string) (config.MembraneConfig, error) {
	if path == "" {
		return cfg, nil
	}
	var raw overrideFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cfg, fmt.Errorf("load override config: %w", err)
	}
	if meta.IsDefined("addr") {
		addr := strings.TrimSpace(raw.Addr)
		if addr != "" {
			cfg.Addr = addr
		}
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("show_graph_name") {
		cfg.ShowGraphName = raw.ShowGraphName
	}
	if meta.IsDefined("admin_token") {
		adminToken = strings.TrimSpace(raw.AdminToken)
	}
	return cfg, nil
}
