package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	for key, tp := range pol.Tables {
		schema, table, ok := strings.Cut(key, ".")
		if !ok || schema == "" || table == "" {
			return fmt.Errorf("tables[%q]: key must be schema.table", key)
		}
		for _, name := range tp.Keep {
			if name == "" {
				return fmt.Errorf("tables[%q].keep contains an empty name", key)
			}
			if _, ok := tp.Indexes[name]; ok {
				return fmt.Errorf("tables[%q]: index %q is both kept and suggested", key, name)
			}
		}
		for name := range tp.Indexes {
			if name == "" {
				return fmt.Errorf("tables[%q].indexes contains an empty key", key)
			}
		}
		for col := range tp.Columns {
			if col == "" {
				return fmt.Errorf("tables[%q].columns contains an empty key", key)
			}
		}
	}
	return nil
}
