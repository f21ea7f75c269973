package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a starter MembraneConfig TOML document for the named
// scenario, written by WriteTemplate and cmd/membranedemo's config init path.
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "demo":
		return demoTemplate, nil
	case "minimal":
		return minimalTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const demoTemplate = `name = "membrane-demo"
addr = ":9000"
cors_origins = ["http://localhost:3000"]
show_graph_name = true

[[graphs]]
name = "wet"
auth = "wet-admission-key"

[[graphs]]
name = "dry"
auth = "dry-admission-key"

[[distortions]]
type_name = "DemoRecord"
filter_own_keys = ["id", "label"]
store_unknown_as_local = true
truncate_arg_list = "arity"
`

const minimalTemplate = `name = "membrane-minimal"
addr = ":9000"

[[graphs]]
name = "origin"

[[graphs]]
name = "sandbox"
`
