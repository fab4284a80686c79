// Package rules compiles surrogate IF/THEN rules into indicator constraints.
//
// For rule i of a rule set with IF clauses j = 0..n-1:
//
//	z_i_j = 1  ->  lo_j <= x_j <= hi_j          (two indicators per clause)
//	t_i   = 1  ->  sum_j z_i_j == n
//	t_i   = 1  ->  target == affine(features)   (one per THEN clause)
//	sum_i t_i == 1                              (one row per rule set)
//
// The IF ranges of a rule set are expected to partition the domain of the
// governing variable; see ValidatePartition.
package rules

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ai-research-disi/Logic-HADA/internal/expr"
	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
)

var (
	// ErrUnsupportedRuleClause indicates an IF operator other than "range"
	// or a THEN operator other than "==".
	ErrUnsupportedRuleClause = errors.New("rules: unsupported rule clause")
	// ErrEmptyRuleSet indicates a rule set without rules, which would make
	// sum(t_i) == 1 infeasible.
	ErrEmptyRuleSet = errors.New("rules: empty rule set")
)

// Set is the ordered rule list of one (algorithm, surrogate model) pair.
// Prefix starts every activation binary name and must be unique per set.
type Set struct {
	Algorithm string
	Model     string
	Prefix    string
	Rules     []models.LogicRule
}

// Encoded keeps the activation binaries of one rule.
type Encoded struct {
	If   []*milp.Var
	Then *milp.Var
}

// Encoder writes rule sets into the registry's model.
type Encoder struct {
	reg *registry.Registry
}

func NewEncoder(reg *registry.Registry) *Encoder {
	return &Encoder{reg: reg}
}

// IfName is the activation binary of IF clause j of rule i.
func IfName(prefix string, i, j int) string {
	return fmt.Sprintf("%s_LogRul_%d_IF_z%d", prefix, i, j)
}

// ThenName is the activation binary of rule i with n IF clauses.
func ThenName(prefix string, i, n int) string {
	return fmt.Sprintf("%s_LogRul_%d_THEN_z%d", prefix, i, n)
}

// Encode compiles every rule of set and the exactly-one row over their THEN
// binaries. Clause operators are checked before anything is added, so an
// unsupported clause leaves the model untouched.
func (e *Encoder) Encode(set Set) ([]Encoded, error) {
	if len(set.Rules) == 0 {
		return nil, fmt.Errorf("%w: algorithm %q, model %q", ErrEmptyRuleSet, set.Algorithm, set.Model)
	}
	if err := checkClauses(set); err != nil {
		return nil, err
	}

	m := e.reg.Model()
	encoded := make([]Encoded, 0, len(set.Rules))
	thens := make([]*milp.Var, 0, len(set.Rules))

	for i, rule := range set.Rules {
		enc := Encoded{If: make([]*milp.Var, 0, len(rule.If))}

		for j, clause := range rule.If {
			slog.Debug("Rule condition", "set", set.Prefix, "rule", i, "variable", clause.Variable,
				"lo", clause.Range[0], "hi", clause.Range[1])
			x, err := e.reg.Resolve(clause.Variable)
			if err != nil {
				return nil, fmt.Errorf("rule %d of %s: %w", i, set.Prefix, err)
			}
			z, err := e.reg.CreateActivation(IfName(set.Prefix, i, j))
			if err != nil {
				return nil, err
			}
			name := z.Name()
			if _, err := m.AddIndicator(name+"_lo", z, milp.VarExpr(x, 1), milp.GreaterEqual, milp.Const(clause.Range[0])); err != nil {
				return nil, err
			}
			if _, err := m.AddIndicator(name+"_hi", z, milp.VarExpr(x, 1), milp.LessEqual, milp.Const(clause.Range[1])); err != nil {
				return nil, err
			}
			enc.If = append(enc.If, z)
		}

		t, err := e.reg.CreateActivation(ThenName(set.Prefix, i, len(rule.If)))
		if err != nil {
			return nil, err
		}
		if _, err := m.AddIndicator(t.Name()+"_link", t, milp.Sum(enc.If...), milp.Equal, milp.Const(float64(len(rule.If)))); err != nil {
			return nil, err
		}

		for k, clause := range rule.Then {
			slog.Debug("Rule consequence", "set", set.Prefix, "rule", i, "variable", clause.Variable, "expr", clause.Expr)
			y, err := e.reg.Resolve(clause.Variable)
			if err != nil {
				return nil, fmt.Errorf("rule %d of %s: %w", i, set.Prefix, err)
			}
			rhs, err := expr.ParseLinear(clause.Expr, e.reg.Resolve)
			if err != nil {
				return nil, fmt.Errorf("rule %d of %s: %w", i, set.Prefix, err)
			}
			name := fmt.Sprintf("%s_then%d", t.Name(), k)
			if _, err := m.AddIndicator(name, t, milp.VarExpr(y, 1), milp.Equal, rhs); err != nil {
				return nil, err
			}
		}

		enc.Then = t
		encoded = append(encoded, enc)
		thens = append(thens, t)
	}

	m.AddConstraint(set.Prefix+"_one_rule", milp.Sum(thens...), milp.Equal, milp.Const(1))
	return encoded, nil
}

func checkClauses(set Set) error {
	for i, rule := range set.Rules {
		for _, c := range rule.If {
			if c.Op != models.ClauseRange {
				return fmt.Errorf("%w: rule %d of %s: IF %s %q", ErrUnsupportedRuleClause, i, set.Prefix, c.Variable, c.Op)
			}
		}
		for _, c := range rule.Then {
			if c.Op != models.ClauseEqual {
				return fmt.Errorf("%w: rule %d of %s: THEN %s %q", ErrUnsupportedRuleClause, i, set.Prefix, c.Variable, c.Op)
			}
		}
	}
	return nil
}
