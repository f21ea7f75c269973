package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MembraneConfig is the on-disk shape for bootstrapping a membrane and its
// graphs declaratively, instead of wiring every graph and distortion
// programmatically.
type MembraneConfig struct {
	Name          string           `toml:"name"`
	Addr          string           `toml:"addr"`
	CorsOrigins   []string         `toml:"cors_origins"`
	ShowGraphName bool             `toml:"show_graph_name"`
	Graphs        []GraphConfig    `toml:"graphs"`
	Distortions   []DistortionRule `toml:"distortions"`
}

// GraphConfig declares one graph this membrane should own at startup.
type GraphConfig struct {
	Name string `toml:"name"`
	Auth string `toml:"auth"`
}

// DistortionRule declares a catalog entry keyed by the registered type name
// of the real values it should apply to (cmd/membranedemo's
// registerDemoDistortions resolves that name to a Go type).
type DistortionRule struct {
	TypeName            string   `toml:"type_name"`
	FilterOwnKeys       []string `toml:"filter_own_keys"`
	ProxyTraps          []string `toml:"proxy_traps"`
	StoreUnknownAsLocal bool     `toml:"store_unknown_as_local"`
	RequireLocalDelete  bool     `toml:"require_local_delete"`
	UseShadowTarget     string   `toml:"use_shadow_target"`
	TruncateArgList      string   `toml:"truncate_arg_list"`
}

// LoadMembraneConfig reads and validates a MembraneConfig from path.
func LoadMembraneConfig(path string) (MembraneConfig, error) {
	var cfg MembraneConfig
	if err := loadToml(path, &cfg); err != nil {
		return MembraneConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "membrane-demo"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9000"
	}
	if err := ValidateMembraneConfig(cfg); err != nil {
		return MembraneConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ValidateMembraneConfig checks structural requirements that can't be
// expressed in the TOML schema itself.
func ValidateMembraneConfig(cfg MembraneConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("membrane config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("membrane config missing addr")
	}
	seen := make(map[string]struct{}, len(cfg.Graphs))
	for i, g := range cfg.Graphs {
		if err := ValidateGraphEntry(g); err != nil {
			return fmt.Errorf("graph[%d] invalid: %w", i, err)
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("graph[%d] invalid: duplicate graph name %q", i, g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	for i, d := range cfg.Distortions {
		if strings.TrimSpace(d.TypeName) == "" {
			return fmt.Errorf("distortion[%d] invalid: type_name is required", i)
		}
	}
	return nil
}

// ValidateGraphEntry checks one declared graph.
func ValidateGraphEntry(cfg GraphConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
