package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Clause operators that appear in surrogate rules.
const (
	ClauseRange = "range"
	ClauseEqual = "=="
)

// IfClause is one condition of a rule: Variable Op Range, where the only
// supported Op is "range" (Lo <= Variable <= Hi).
type IfClause struct {
	Variable string     `yaml:"variable" json:"variable"`
	Op       string     `yaml:"type" json:"type"`
	Range    [2]float64 `yaml:"value" json:"value"`
}

// ThenClause assigns Variable the affine expression Expr.
type ThenClause struct {
	Variable string `yaml:"variable" json:"variable"`
	Op       string `yaml:"type" json:"type"`
	Expr     string `yaml:"value" json:"value"`
}

// LogicRule is one IF/THEN piece of a surrogate model.
type LogicRule struct {
	If   []IfClause   `yaml:"if" json:"if"`
	Then []ThenClause `yaml:"then" json:"then"`
}

// UnmarshalYAML accepts the range written either as a two element
// sequence or as a {lo, hi} mapping.
func (c *IfClause) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Variable string    `yaml:"variable"`
		Op       string    `yaml:"type"`
		Value    yaml.Node `yaml:"value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Variable, c.Op = raw.Variable, raw.Op

	switch raw.Value.Kind {
	case yaml.SequenceNode:
		var pair []float64
		if err := raw.Value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: range of %q needs 2 values, got %d", raw.Value.Line, c.Variable, len(pair))
		}
		c.Range = [2]float64{pair[0], pair[1]}
	case yaml.MappingNode:
		var lh struct {
			Lo float64 `yaml:"lo"`
			Hi float64 `yaml:"hi"`
		}
		if err := raw.Value.Decode(&lh); err != nil {
			return err
		}
		c.Range = [2]float64{lh.Lo, lh.Hi}
	case 0:
		return fmt.Errorf("line %d: clause on %q has no value", node.Line, c.Variable)
	default:
		return fmt.Errorf("line %d: range of %q must be a sequence or a lo/hi mapping", raw.Value.Line, c.Variable)
	}
	return nil
}
