package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled index knowledge loaded from a YAML file.
type Policy struct {
	Tables map[string]TablePolicy `yaml:"tables"`
}

// TablePolicy applies to one fully-qualified table (schema.table).
//
//	tables:
//	  shop.orders:
//	    keep: [idx_orders_customer]
//	    indexes:
//	      idx_orders_legacy: "Replaced by idx_orders_customer_created"
//	    columns:
//	      status:
//	        reason: "Three states only"
type TablePolicy struct {
	// Keep lists indexes whose heuristic suggestions are discarded.
	Keep    []string              `yaml:"keep"`
	Indexes map[string]Suggestion `yaml:"indexes"`
	Columns map[string]Suggestion `yaml:"columns"`
}

// Suggestion is an operator-supplied "possibly unused" hint.
type Suggestion struct {
	Reason string `yaml:"reason"`
}

// UnmarshalYAML accepts either a plain reason string or a mapping.
func (s *Suggestion) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Reason = value.Value
		return nil
	}
	type alias Suggestion
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding suggestion: %w", err)
	}
	*s = Suggestion(a)
	return nil
}

// For returns the policy for schema.table, if any.
func (p *Policy) For(schema, table string) (TablePolicy, bool) {
	if p == nil {
		return TablePolicy{}, false
	}
	tp, ok := p.Tables[schema+"."+table]
	return tp, ok
}
