// Package linearize conditions constraints on the algorithm selectors
// without bilinear terms. Every formulation uses the variable's own
// non-negative bounds instead of an arbitrary big-M constant.
package linearize

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
)

// ErrUnsupportedConstraintType indicates a user constraint operator outside
// <=, >= and ==.
var ErrUnsupportedConstraintType = errors.New("linearize: unsupported constraint type")

// Linearizer writes selector-conditioned rows into the registry's model.
type Linearizer struct {
	reg     *registry.Registry
	applied int
}

func New(reg *registry.Registry) *Linearizer {
	return &Linearizer{reg: reg}
}

// Check rejects operators the linearizer cannot encode.
func Check(c models.UserConstraint) error {
	switch c.Op {
	case models.OpLessEqual, models.OpGreaterEqual, models.OpEqual:
		return nil
	}
	return fmt.Errorf("%w: %s %q %v", ErrUnsupportedConstraintType, c.Variable, c.Op, c.Value)
}

// Apply instantiates c against y_<alg>_<var> of every algorithm, with b the
// algorithm's selector and [lb, ub] the bounds of y:
//
//	<= v:  y <= v,  lb*b <= v
//	>= v:  y >= v,  (ub - v)*b >= 0
//	== v:  lb*b <= v*b,  ub*b >= v*b,  y - ub*(1-b) <= v*b,  y - lb*(1-b) >= v*b
//
// With b = 1 the equality rows force y == v; with b = 0 they reduce to
// lb <= y <= ub and leave y free inside its box.
func (l *Linearizer) Apply(c models.UserConstraint, algs []string) error {
	if err := Check(c); err != nil {
		return err
	}
	m := l.reg.Model()
	l.applied++
	for _, alg := range algs {
		y, err := l.reg.Target(alg, c.Variable)
		if err != nil {
			return fmt.Errorf("constraint %s: %w", c, err)
		}
		b, err := l.reg.Selector(alg)
		if err != nil {
			return fmt.Errorf("constraint %s: %w", c, err)
		}
		slog.Debug("User constraint", "algorithm", alg, "variable", y.Name(), "type", string(c.Op), "value", c.Value)

		lb, ub, v := y.LB(), y.UB(), c.Value
		name := fmt.Sprintf("user%d_%s_%s", l.applied, alg, c.Variable)
		yExpr := milp.VarExpr(y, 1)
		switch c.Op {
		case models.OpLessEqual:
			m.AddConstraint(name+"_le", yExpr, milp.LessEqual, milp.Const(v))
			m.AddConstraint(name+"_le_sel", milp.VarExpr(b, lb), milp.LessEqual, milp.Const(v))
		case models.OpGreaterEqual:
			m.AddConstraint(name+"_ge", yExpr, milp.GreaterEqual, milp.Const(v))
			m.AddConstraint(name+"_ge_sel", milp.VarExpr(b, ub-v), milp.GreaterEqual, milp.Const(0))
		case models.OpEqual:
			vb := milp.VarExpr(b, v)
			notB := milp.Const(1).Sub(milp.VarExpr(b, 1))
			m.AddConstraint(name+"_eq_lb", milp.VarExpr(b, lb), milp.LessEqual, vb)
			m.AddConstraint(name+"_eq_ub", milp.VarExpr(b, ub), milp.GreaterEqual, vb)
			m.AddConstraint(name+"_eq_hi", yExpr.Sub(notB.Scale(ub)), milp.LessEqual, vb)
			m.AddConstraint(name+"_eq_lo", yExpr.Sub(notB.Scale(lb)), milp.GreaterEqual, vb)
		}
	}
	return nil
}

// Product registers w = b_<alg> * y_<alg>_<var> through the exact
// linearization of a binary times a bounded continuous variable:
//
//	lb*b <= w <= ub*b
//	y - ub*(1-b) <= w <= y - lb*(1-b)
func (l *Linearizer) Product(alg, variable string) (*milp.Var, error) {
	y, err := l.reg.Target(alg, variable)
	if err != nil {
		return nil, err
	}
	b, err := l.reg.Selector(alg)
	if err != nil {
		return nil, err
	}
	lb, ub := y.LB(), y.UB()
	w, err := l.reg.CreateProduct(alg, variable, 0, ub)
	if err != nil {
		return nil, err
	}

	m := l.reg.Model()
	wExpr := milp.VarExpr(w, 1)
	yExpr := milp.VarExpr(y, 1)
	notB := milp.Const(1).Sub(milp.VarExpr(b, 1))
	name := w.Name()
	m.AddConstraint(name+"_lb", wExpr, milp.GreaterEqual, milp.VarExpr(b, lb))
	m.AddConstraint(name+"_ub", wExpr, milp.LessEqual, milp.VarExpr(b, ub))
	m.AddConstraint(name+"_lo", wExpr, milp.GreaterEqual, yExpr.Sub(notB.Scale(ub)))
	m.AddConstraint(name+"_hi", wExpr, milp.LessEqual, yExpr.Sub(notB.Scale(lb)))
	return w, nil
}
