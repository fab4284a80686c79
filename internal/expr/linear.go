package expr

import (
	"fmt"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
)

// Resolver maps a variable name to a model variable.
type Resolver func(name string) (*milp.Var, error)

// Linearize converts n into a linear expression over resolved variables.
// Every variable reference must resolve; a product is accepted only when one
// side is constant.
func Linearize(n Node, resolve Resolver) (milp.LinExpr, error) {
	switch n := n.(type) {
	case *Literal:
		return milp.Const(n.Value), nil
	case *VarRef:
		v, err := resolve(n.Name)
		if err != nil {
			return milp.LinExpr{}, err
		}
		return milp.VarExpr(v, 1), nil
	case *Neg:
		x, err := Linearize(n.X, resolve)
		if err != nil {
			return milp.LinExpr{}, err
		}
		return x.Scale(-1), nil
	case *BinaryOp:
		l, err := Linearize(n.Left, resolve)
		if err != nil {
			return milp.LinExpr{}, err
		}
		r, err := Linearize(n.Right, resolve)
		if err != nil {
			return milp.LinExpr{}, err
		}
		switch n.Op {
		case '+':
			return l.Add(r), nil
		case '-':
			return l.Sub(r), nil
		}
		switch {
		case l.IsConstant():
			return r.Scale(l.Constant), nil
		case r.IsConstant():
			return l.Scale(r.Constant), nil
		}
		return milp.LinExpr{}, fmt.Errorf("%w: %s", ErrNonLinear, n)
	}
	return milp.LinExpr{}, fmt.Errorf("%w: unknown node %T", ErrSyntax, n)
}

// ParseLinear parses s and linearizes it in one step.
func ParseLinear(s string, resolve Resolver) (milp.LinExpr, error) {
	n, err := Parse(s)
	if err != nil {
		return milp.LinExpr{}, err
	}
	return Linearize(n, resolve)
}
