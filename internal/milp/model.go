// Package milp holds the mixed-integer linear program that the builders
// populate. A *Model is the build context: every component receives it
// explicitly and appends variables and constraints to it. Nothing is removed
// once added.
package milp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownVariable indicates a lookup of a name that was never registered.
	ErrUnknownVariable = errors.New("milp: unknown variable")
	// ErrDuplicateVariable indicates a second registration under an existing name.
	ErrDuplicateVariable = errors.New("milp: duplicate variable")
	// ErrInvalidBounds indicates NaN bounds or a lower bound above the upper bound.
	ErrInvalidBounds = errors.New("milp: invalid variable bounds")
	// ErrNotBinary indicates an indicator constraint conditioned on a non-binary variable.
	ErrNotBinary = errors.New("milp: indicator variable must be binary")
)

// VarType is the domain of a decision variable.
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Var is a named decision variable. Its identity is its name.
type Var struct {
	index int
	name  string
	typ   VarType
	lb    float64
	ub    float64
}

func (v *Var) Name() string  { return v.name }
func (v *Var) Type() VarType { return v.typ }
func (v *Var) LB() float64   { return v.lb }
func (v *Var) UB() float64   { return v.ub }

// Index is the position of the variable in creation order.
func (v *Var) Index() int { return v.index }

func (v *Var) String() string { return v.name }

// Constraint is a linear row Expr Sense RHS. Expr carries no constant.
type Constraint struct {
	Name  string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// Satisfied reports whether the row holds for values within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %s", c.Expr, c.Sense, formatFloat(c.RHS))
}

// Indicator enforces Constraint only when Binary equals 1.
type Indicator struct {
	Name       string
	Binary     *Var
	Constraint Constraint
}

func (ind Indicator) String() string {
	return fmt.Sprintf("%s = 1 -> %s", ind.Binary.name, ind.Constraint)
}

// ObjectiveSense selects minimization or maximization.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

func (s ObjectiveSense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Objective is the single model objective.
type Objective struct {
	Sense ObjectiveSense
	Expr  LinExpr
}

// Stats counts the model contents.
type Stats struct {
	Variables  int `json:"variables"`
	Continuous int `json:"continuous"`
	Integer    int `json:"integer"`
	Binary     int `json:"binary"`
	Linear     int `json:"linear_constraints"`
	Indicators int `json:"indicator_constraints"`
}

// Model is the aggregate of variables, constraints and one objective.
type Model struct {
	name        string
	vars        []*Var
	byName      map[string]*Var
	constraints []Constraint
	indicators  []Indicator
	objective   *Objective
}

// New creates an empty model.
func New(name string) *Model {
	return &Model{
		name:   name,
		byName: make(map[string]*Var),
	}
}

func (m *Model) Name() string { return m.name }

// AddVar registers a variable. Binary variables always get [0, 1].
func (m *Model) AddVar(name string, typ VarType, lb, ub float64) (*Var, error) {
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateVariable, name)
	}
	if typ == Binary {
		lb, ub = 0, 1
	}
	if math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		return nil, fmt.Errorf("%w: %q has [%v, %v]", ErrInvalidBounds, name, lb, ub)
	}
	v := &Var{index: len(m.vars), name: name, typ: typ, lb: lb, ub: ub}
	m.vars = append(m.vars, v)
	m.byName[name] = v
	return v, nil
}

// Var resolves a variable by name.
func (m *Model) Var(name string) (*Var, error) {
	v, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return v, nil
}

// Vars returns the variables in creation order.
func (m *Model) Vars() []*Var { return m.vars }

// AddConstraint appends a linear row lhs sense rhs.
func (m *Model) AddConstraint(name string, lhs LinExpr, sense Sense, rhs LinExpr) Constraint {
	c := newConstraint(name, lhs, sense, rhs)
	m.constraints = append(m.constraints, c)
	return c
}

// AddIndicator appends binary = 1 -> lhs sense rhs.
func (m *Model) AddIndicator(name string, binary *Var, lhs LinExpr, sense Sense, rhs LinExpr) (Indicator, error) {
	if binary == nil || binary.typ != Binary {
		return Indicator{}, fmt.Errorf("%w: %v", ErrNotBinary, binary)
	}
	ind := Indicator{
		Name:       name,
		Binary:     binary,
		Constraint: newConstraint(name, lhs, sense, rhs),
	}
	m.indicators = append(m.indicators, ind)
	return ind, nil
}

func newConstraint(name string, lhs LinExpr, sense Sense, rhs LinExpr) Constraint {
	diff := lhs.Sub(rhs).Simplify()
	return Constraint{
		Name:  name,
		Expr:  LinExpr{Terms: diff.Terms},
		Sense: sense,
		RHS:   0 - diff.Constant, // never -0
	}
}

func (m *Model) Constraints() []Constraint { return m.constraints }
func (m *Model) Indicators() []Indicator   { return m.indicators }

// SetObjective replaces the model objective.
func (m *Model) SetObjective(sense ObjectiveSense, expr LinExpr) {
	m.objective = &Objective{Sense: sense, Expr: expr.Simplify()}
}

// Objective returns nil until SetObjective is called.
func (m *Model) Objective() *Objective { return m.objective }

func (m *Model) Stats() Stats {
	s := Stats{
		Variables:  len(m.vars),
		Linear:     len(m.constraints),
		Indicators: len(m.indicators),
	}
	for _, v := range m.vars {
		switch v.typ {
		case Continuous:
			s.Continuous++
		case Integer:
			s.Integer++
		case Binary:
			s.Binary++
		}
	}
	return s
}

// Values converts a name keyed assignment into a dense vector indexed by
// Var.Index. Missing names are reported as ErrUnknownVariable.
func (m *Model) Values(assignment map[string]float64) ([]float64, error) {
	x := make([]float64, len(m.vars))
	for name, val := range assignment {
		v, err := m.Var(name)
		if err != nil {
			return nil, err
		}
		x[v.index] = val
	}
	return x, nil
}

// Violation describes one failed check of CheckPoint.
type Violation struct {
	Name   string
	Reason string
}

func (v Violation) String() string { return v.Name + ": " + v.Reason }

// CheckPoint evaluates a full assignment against bounds, integrality, linear
// rows and indicators. An indicator counts as active when its binary is at
// least 0.5.
func (m *Model) CheckPoint(x []float64, tol float64) []Violation {
	var out []Violation
	for _, v := range m.vars {
		val := x[v.index]
		if val < v.lb-tol || val > v.ub+tol {
			out = append(out, Violation{v.name, fmt.Sprintf("value %v outside [%v, %v]", val, v.lb, v.ub)})
		}
		if v.typ != Continuous && math.Abs(val-math.Round(val)) > tol {
			out = append(out, Violation{v.name, fmt.Sprintf("value %v is not integral", val)})
		}
	}
	for _, c := range m.constraints {
		if !c.Satisfied(x, tol) {
			out = append(out, Violation{c.Name, "violates " + c.String()})
		}
	}
	for _, ind := range m.indicators {
		if x[ind.Binary.index] >= 0.5 && !ind.Constraint.Satisfied(x, tol) {
			out = append(out, Violation{ind.Name, "violates " + ind.String()})
		}
	}
	return out
}
