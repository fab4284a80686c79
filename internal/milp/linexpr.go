package milp

import (
	"fmt"
	"strconv"
	"strings"
)

// Sense is the comparison of a linear row.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "=="
	}
}

// Term is Coef * Var.
type Term struct {
	Var  *Var
	Coef float64
}

// LinExpr is sum(Terms) + Constant. The zero value is the constant 0. All
// methods return new expressions and leave the receiver untouched.
type LinExpr struct {
	Terms    []Term
	Constant float64
}

// Const returns the constant expression c.
func Const(c float64) LinExpr { return LinExpr{Constant: c} }

// VarExpr returns coef * v.
func VarExpr(v *Var, coef float64) LinExpr {
	return LinExpr{Terms: []Term{{Var: v, Coef: coef}}}
}

// Sum adds all variables with coefficient 1.
func Sum(vars ...*Var) LinExpr {
	e := LinExpr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

func (e LinExpr) Add(o LinExpr) LinExpr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, o.Terms...)
	return LinExpr{Terms: terms, Constant: e.Constant + o.Constant}
}

func (e LinExpr) Sub(o LinExpr) LinExpr { return e.Add(o.Scale(-1)) }

func (e LinExpr) Scale(k float64) LinExpr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Var: t.Var, Coef: t.Coef * k}
	}
	return LinExpr{Terms: terms, Constant: e.Constant * k}
}

// AddTerm appends coef * v.
func (e LinExpr) AddTerm(v *Var, coef float64) LinExpr {
	return e.Add(VarExpr(v, coef))
}

// IsConstant reports whether the expression has no variable terms after
// merging.
func (e LinExpr) IsConstant() bool { return len(e.Simplify().Terms) == 0 }

// Simplify merges repeated variables and drops zero coefficients, keeping
// first-occurrence order.
func (e LinExpr) Simplify() LinExpr {
	pos := make(map[*Var]int, len(e.Terms))
	terms := make([]Term, 0, len(e.Terms))
	for _, t := range e.Terms {
		if i, ok := pos[t.Var]; ok {
			terms[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(terms)
		terms = append(terms, t)
	}
	out := terms[:0]
	for _, t := range terms {
		if t.Coef != 0 {
			out = append(out, t)
		}
	}
	return LinExpr{Terms: out, Constant: e.Constant}
}

// Eval computes the expression against a dense vector indexed by Var.Index.
func (e LinExpr) Eval(values []float64) float64 {
	sum := e.Constant
	for _, t := range e.Terms {
		sum += t.Coef * values[t.Var.index]
	}
	return sum
}

func (e LinExpr) String() string {
	s := e.Simplify()
	var b strings.Builder
	for i, t := range s.Terms {
		coef := t.Coef
		switch {
		case i == 0 && coef < 0:
			b.WriteString("-")
			coef = -coef
		case i > 0 && coef < 0:
			b.WriteString(" - ")
			coef = -coef
		case i > 0:
			b.WriteString(" + ")
		}
		if coef != 1 {
			b.WriteString(formatFloat(coef))
			b.WriteString(" ")
		}
		b.WriteString(t.Var.name)
	}
	switch {
	case len(s.Terms) == 0:
		b.WriteString(formatFloat(s.Constant))
	case s.Constant > 0:
		fmt.Fprintf(&b, " + %s", formatFloat(s.Constant))
	case s.Constant < 0:
		fmt.Fprintf(&b, " - %s", formatFloat(-s.Constant))
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
