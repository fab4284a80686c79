package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrUnboundedVariable indicates a variable with an infinite bound. The
// indicator reformulation needs finite bounds on every variable.
var ErrUnboundedVariable = errors.New("solver: variable bounds must be finite")

// row is sum(coef[k] * x[idx[k]]) <= rhs.
type row struct {
	idx  []int
	coef []float64
	rhs  float64
}

// relaxation is the model with indicators rewritten as bound-derived big-M
// rows and every row in <= form. The objective is always minimized; sign
// restores the original direction.
type relaxation struct {
	names   []string
	c       []float64
	sign    float64
	rows    []row
	integer []bool
	lb, ub  []float64
}

func newRelaxation(m *milp.Model) (*relaxation, error) {
	vars := m.Vars()
	r := &relaxation{
		names:   make([]string, len(vars)),
		c:       make([]float64, len(vars)),
		sign:    1,
		integer: make([]bool, len(vars)),
		lb:      make([]float64, len(vars)),
		ub:      make([]float64, len(vars)),
	}
	for i, v := range vars {
		if math.IsInf(v.LB(), 0) || math.IsInf(v.UB(), 0) {
			return nil, fmt.Errorf("%w: %s has [%v, %v]", ErrUnboundedVariable, v.Name(), v.LB(), v.UB())
		}
		r.names[i] = v.Name()
		r.integer[i] = v.Type() != milp.Continuous
		r.lb[i], r.ub[i] = v.LB(), v.UB()
	}

	if obj := m.Objective(); obj != nil {
		if obj.Sense == milp.Maximize {
			r.sign = -1
		}
		for _, t := range obj.Expr.Terms {
			r.c[t.Var.Index()] += r.sign * t.Coef
		}
	}

	for _, c := range m.Constraints() {
		r.addConstraint(c.Expr, c.Sense, c.RHS, nil, 0)
	}
	for _, ind := range m.Indicators() {
		c := ind.Constraint
		lo, hi := r.activity(c.Expr)
		z := ind.Binary.Index()
		if c.Sense == milp.LessEqual || c.Sense == milp.Equal {
			// a.x - rhs <= M(1 - z) with M = max(a.x) - rhs
			if bigM := hi - c.RHS; bigM > 0 {
				r.addConstraint(c.Expr, milp.LessEqual, c.RHS+bigM, &z, bigM)
			}
		}
		if c.Sense == milp.GreaterEqual || c.Sense == milp.Equal {
			// a.x - rhs >= -M(1 - z) with M = rhs - min(a.x)
			if bigM := c.RHS - lo; bigM > 0 {
				r.addConstraint(c.Expr, milp.GreaterEqual, c.RHS-bigM, &z, -bigM)
			}
		}
	}
	return r, nil
}

// activity bounds a.x over the root box.
func (r *relaxation) activity(e milp.LinExpr) (lo, hi float64) {
	for _, t := range e.Terms {
		i := t.Var.Index()
		if t.Coef >= 0 {
			lo += t.Coef * r.lb[i]
			hi += t.Coef * r.ub[i]
		} else {
			lo += t.Coef * r.ub[i]
			hi += t.Coef * r.lb[i]
		}
	}
	return lo, hi
}

// addConstraint stores e + zCoef*z sense rhs as one or two <= rows.
func (r *relaxation) addConstraint(e milp.LinExpr, sense milp.Sense, rhs float64, z *int, zCoef float64) {
	coefs := make(map[int]float64, len(e.Terms)+1)
	for _, t := range e.Terms {
		coefs[t.Var.Index()] += t.Coef
	}
	if z != nil {
		coefs[*z] += zCoef
	}
	idx := make([]int, 0, len(coefs))
	for i, c := range coefs {
		if c != 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	le := row{idx: idx, coef: make([]float64, len(idx)), rhs: rhs}
	ge := row{idx: idx, coef: make([]float64, len(idx)), rhs: -rhs}
	for k, i := range idx {
		le.coef[k] = coefs[i]
		ge.coef[k] = -coefs[i]
	}
	switch sense {
	case milp.LessEqual:
		r.rows = append(r.rows, le)
	case milp.GreaterEqual:
		r.rows = append(r.rows, ge)
	default:
		r.rows = append(r.rows, le, ge)
	}
}

// solve optimizes the LP over the box [lb, ub]. ok is false when the box
// admits no feasible point.
//
// Standard form for gonum's simplex: x = lb + x' with x' >= 0, one slack
// per row (upper bounds included), so the constraint matrix always has full
// row rank.
func (r *relaxation) solve(lb, ub []float64, tol float64) (obj float64, x []float64, ok bool, err error) {
	n := len(lb)
	col := make([]int, n)
	var free []int
	for j := 0; j < n; j++ {
		col[j] = -1
		if ub[j]-lb[j] > tol {
			col[j] = len(free)
			free = append(free, j)
		} else if ub[j] < lb[j]-tol {
			return 0, nil, false, nil
		}
	}

	type stdRow struct {
		coef map[int]float64
		rhs  float64
	}
	var rows []stdRow
	for _, rw := range r.rows {
		rhs := rw.rhs
		coef := make(map[int]float64)
		for k, j := range rw.idx {
			rhs -= rw.coef[k] * lb[j]
			if col[j] >= 0 {
				coef[col[j]] = rw.coef[k]
			}
		}
		if len(coef) == 0 {
			if rhs < -tol {
				return 0, nil, false, nil
			}
			continue
		}
		rows = append(rows, stdRow{coef: coef, rhs: rhs})
	}
	for k, j := range free {
		rows = append(rows, stdRow{coef: map[int]float64{k: 1}, rhs: ub[j] - lb[j]})
	}

	x = make([]float64, n)
	copy(x, lb)
	constant := 0.0
	for j := 0; j < n; j++ {
		constant += r.c[j] * lb[j]
	}
	if len(rows) == 0 {
		return constant, x, true, nil
	}

	nf, m := len(free), len(rows)
	A := mat.NewDense(m, nf+m, nil)
	b := make([]float64, m)
	basis := make([]int, m)
	slackBasis := true
	for i, rw := range rows {
		s := 1.0
		if rw.rhs < 0 {
			s = -1
			slackBasis = false
		}
		for k, v := range rw.coef {
			A.Set(i, k, s*v)
		}
		A.Set(i, nf+i, s)
		b[i] = s * rw.rhs
		basis[i] = nf + i
	}
	c := make([]float64, nf+m)
	for k, j := range free {
		c[k] = r.c[j]
	}
	if !slackBasis {
		basis = nil
	}

	opt, xs, err := lp.Simplex(c, A, b, tol, basis)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return 0, nil, false, nil
	case err != nil:
		return 0, nil, false, fmt.Errorf("lp relaxation: %w", err)
	}
	for k, j := range free {
		x[j] = lb[j] + xs[k]
		x[j] = math.Min(math.Max(x[j], lb[j]), ub[j])
	}
	return constant + opt, x, true, nil
}
