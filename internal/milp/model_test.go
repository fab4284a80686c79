package milp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddVar(t *testing.T) {
	m := New("vars")

	x, err := m.AddVar("x", Continuous, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, x.Index())

	b, err := m.AddVar("b", Binary, -5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.LB())
	assert.Equal(t, 1.0, b.UB())

	_, err = m.AddVar("x", Integer, 0, 1)
	assert.ErrorIs(t, err, ErrDuplicateVariable)

	_, err = m.AddVar("bad", Continuous, 3, 2)
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = m.AddVar("nan", Continuous, math.NaN(), 2)
	assert.ErrorIs(t, err, ErrInvalidBounds)

	got, err := m.Var("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = m.Var("missing")
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestAddConstraint_MovesConstantsRight(t *testing.T) {
	m := New("rows")
	x, _ := m.AddVar("x", Continuous, 0, 10)
	y, _ := m.AddVar("y", Continuous, 0, 10)

	// 2x + 3 <= y + 7  ->  2x - y <= 4
	c := m.AddConstraint("c", VarExpr(x, 2).Add(Const(3)), LessEqual, VarExpr(y, 1).Add(Const(7)))
	assert.Equal(t, 4.0, c.RHS)
	assert.Equal(t, "2 x - y", c.Expr.String())
	assert.Equal(t, 0.0, c.Expr.Constant)
	assert.Equal(t, "2 x - y <= 4", c.String())
	assert.Len(t, m.Constraints(), 1)
}

func TestAddIndicator(t *testing.T) {
	m := New("ind")
	x, _ := m.AddVar("x", Continuous, 0, 10)
	b, _ := m.AddVar("b", Binary, 0, 1)

	ind, err := m.AddIndicator("b_x", b, VarExpr(x, 1), GreaterEqual, Const(3))
	require.NoError(t, err)
	assert.Equal(t, "b = 1 -> x >= 3", ind.String())

	_, err = m.AddIndicator("x_x", x, VarExpr(x, 1), GreaterEqual, Const(3))
	assert.ErrorIs(t, err, ErrNotBinary)

	_, err = m.AddIndicator("nil", nil, VarExpr(x, 1), GreaterEqual, Const(3))
	assert.ErrorIs(t, err, ErrNotBinary)
	assert.Len(t, m.Indicators(), 1)
}

func TestStats(t *testing.T) {
	m := New("stats")
	x, _ := m.AddVar("x", Continuous, 0, 10)
	_, _ = m.AddVar("n", Integer, 0, 10)
	b, _ := m.AddVar("b", Binary, 0, 1)
	m.AddConstraint("c", VarExpr(x, 1), LessEqual, Const(5))
	_, err := m.AddIndicator("i", b, VarExpr(x, 1), GreaterEqual, Const(1))
	require.NoError(t, err)

	assert.Equal(t, Stats{Variables: 3, Continuous: 1, Integer: 1, Binary: 1, Linear: 1, Indicators: 1}, m.Stats())
}

func TestCheckPoint(t *testing.T) {
	m := New("check")
	x, _ := m.AddVar("x", Continuous, 0, 10)
	n, _ := m.AddVar("n", Integer, 0, 5)
	b, _ := m.AddVar("b", Binary, 0, 1)
	m.AddConstraint("cap", VarExpr(x, 1).Add(VarExpr(n, 1)), LessEqual, Const(8))
	_, err := m.AddIndicator("on", b, VarExpr(x, 1), GreaterEqual, Const(4))
	require.NoError(t, err)

	tests := []struct {
		name  string
		point map[string]float64
		want  []string
	}{
		{name: "feasible", point: map[string]float64{"x": 4, "n": 3, "b": 1}},
		{name: "inactive indicator", point: map[string]float64{"x": 1, "n": 3, "b": 0}},
		{name: "active indicator violated", point: map[string]float64{"x": 1, "n": 3, "b": 1}, want: []string{"on"}},
		{name: "row violated", point: map[string]float64{"x": 6, "n": 3, "b": 0}, want: []string{"cap"}},
		{name: "out of bounds and fractional", point: map[string]float64{"x": 11, "n": 0.5}, want: []string{"x", "n", "cap"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := m.Values(tt.point)
			require.NoError(t, err)
			var got []string
			for _, v := range m.CheckPoint(x, 1e-9) {
				got = append(got, v.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = m.Values(map[string]float64{"z": 1})
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestLinExpr(t *testing.T) {
	m := New("expr")
	x, _ := m.AddVar("x", Continuous, 0, 10)
	y, _ := m.AddVar("y", Continuous, 0, 10)

	tests := []struct {
		name string
		expr LinExpr
		want string
	}{
		{name: "constant", expr: Const(2.5), want: "2.5"},
		{name: "unit coefficient", expr: VarExpr(x, 1), want: "x"},
		{name: "negative first", expr: VarExpr(x, -3).AddTerm(y, 1), want: "-3 x + y"},
		{name: "merged terms", expr: VarExpr(x, 1).AddTerm(y, 2).AddTerm(x, 1), want: "2 x + 2 y"},
		{name: "cancelled terms", expr: VarExpr(x, 1).Sub(VarExpr(x, 1)).Add(Const(-4)), want: "-4"},
		{name: "scaled with constant", expr: VarExpr(x, 1).Add(Const(-1)).Scale(2), want: "2 x - 2"},
		{name: "sum", expr: Sum(x, y).Add(Const(1)), want: "x + y + 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}

	assert.True(t, VarExpr(x, 1).Sub(VarExpr(x, 1)).IsConstant())
	assert.False(t, Sum(x).IsConstant())
	assert.Equal(t, 24.0, VarExpr(x, 2).AddTerm(y, 3).Add(Const(1)).Eval([]float64{4, 5}))
}
