package solver

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVar(t *testing.T, m *milp.Model, name string, typ milp.VarType, lb, ub float64) *milp.Var {
	t.Helper()
	v, err := m.AddVar(name, typ, lb, ub)
	require.NoError(t, err)
	return v
}

func solve(t *testing.T, m *milp.Model) *Solution {
	t.Helper()
	sol, err := NewBranchAndBound(DefaultOptions()).Solve(context.Background(), m, time.Minute)
	require.NoError(t, err)
	return sol
}

func TestSolve_IntegerProgram(t *testing.T) {
	// max 5x + 4y  s.t.  6x + 4y <= 24,  x + 2y <= 6; relaxed optimum (3, 1.5)
	m := milp.New("ip")
	x := mustVar(t, m, "x", milp.Integer, 0, 10)
	y := mustVar(t, m, "y", milp.Integer, 0, 10)
	m.AddConstraint("c1", milp.VarExpr(x, 6).AddTerm(y, 4), milp.LessEqual, milp.Const(24))
	m.AddConstraint("c2", milp.VarExpr(x, 1).AddTerm(y, 2), milp.LessEqual, milp.Const(6))
	m.SetObjective(milp.Maximize, milp.VarExpr(x, 5).AddTerm(y, 4))

	sol := solve(t, m)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 20, sol.Objective, 1e-6)
	assert.Equal(t, 4.0, sol.Values["x"])
	assert.Equal(t, 0.0, sol.Values["y"])
	assert.Greater(t, sol.Nodes, 1)
}

func TestSolve_ContinuousLP(t *testing.T) {
	// min x + y  s.t.  x + 2y >= 4,  x in [1, 10], y in [0, 10]
	m := milp.New("lp")
	x := mustVar(t, m, "x", milp.Continuous, 1, 10)
	y := mustVar(t, m, "y", milp.Continuous, 0, 10)
	m.AddConstraint("cover", milp.VarExpr(x, 1).AddTerm(y, 2), milp.GreaterEqual, milp.Const(4))
	m.SetObjective(milp.Minimize, milp.Sum(x, y))

	sol := solve(t, m)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2.5, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Values["x"], 1e-6)
	assert.InDelta(t, 1.5, sol.Values["y"], 1e-6)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolve_Indicators(t *testing.T) {
	tests := []struct {
		name  string
		limit float64
		wantB float64
		wantX [2]float64
	}{
		// b = 1 needs x >= 8, which x <= limit allows
		{name: "indicator can fire", limit: 9, wantB: 1, wantX: [2]float64{8, 9}},
		// x <= 5 contradicts the indicator, so b stays 0
		{name: "indicator blocked", limit: 5, wantB: 0, wantX: [2]float64{0, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := milp.New("ind")
			x := mustVar(t, m, "x", milp.Continuous, 0, 10)
			b := mustVar(t, m, "b", milp.Binary, 0, 1)
			m.AddConstraint("limit", milp.VarExpr(x, 1), milp.LessEqual, milp.Const(tt.limit))
			_, err := m.AddIndicator("need", b, milp.VarExpr(x, 1), milp.GreaterEqual, milp.Const(8))
			require.NoError(t, err)
			m.SetObjective(milp.Maximize, milp.VarExpr(b, 1))

			sol := solve(t, m)
			require.Equal(t, StatusOptimal, sol.Status)
			assert.Equal(t, tt.wantB, sol.Values["b"])
			assert.InDelta(t, tt.wantB, sol.Objective, 1e-9)
			assert.GreaterOrEqual(t, sol.Values["x"], tt.wantX[0]-1e-9)
			assert.LessOrEqual(t, sol.Values["x"], tt.wantX[1]+1e-9)
		})
	}
}

func TestSolve_EqualityIndicatorPicksCheaperBranch(t *testing.T) {
	// exactly one of two pieces is active; each pins cost to an affine value
	m := milp.New("pieces")
	n := mustVar(t, m, "n", milp.Continuous, 0, 100)
	cost := mustVar(t, m, "cost", milp.Continuous, 0, 1000)
	t0 := mustVar(t, m, "t0", milp.Binary, 0, 1)
	t1 := mustVar(t, m, "t1", milp.Binary, 0, 1)
	m.AddConstraint("one", milp.Sum(t0, t1), milp.Equal, milp.Const(1))
	add := func(name string, bin *milp.Var, lhs milp.LinExpr, sense milp.Sense, rhs milp.LinExpr) {
		_, err := m.AddIndicator(name, bin, lhs, sense, rhs)
		require.NoError(t, err)
	}
	add("t0_lo", t0, milp.VarExpr(n, 1), milp.GreaterEqual, milp.Const(0))
	add("t0_hi", t0, milp.VarExpr(n, 1), milp.LessEqual, milp.Const(50))
	add("t0_eq", t0, milp.VarExpr(cost, 1), milp.Equal, milp.Const(400).Sub(milp.VarExpr(n, 1)))
	add("t1_lo", t1, milp.VarExpr(n, 1), milp.GreaterEqual, milp.Const(50))
	add("t1_hi", t1, milp.VarExpr(n, 1), milp.LessEqual, milp.Const(100))
	add("t1_eq", t1, milp.VarExpr(cost, 1), milp.Equal, milp.Const(300).Add(milp.VarExpr(n, 0.5)))
	m.SetObjective(milp.Minimize, milp.VarExpr(cost, 1))

	sol := solve(t, m)
	require.Equal(t, StatusOptimal, sol.Status)
	// both pieces meet at n = 50 with cost 350 vs 325; the second is cheaper
	assert.InDelta(t, 325, sol.Objective, 1e-6)
	assert.InDelta(t, 50, sol.Values["n"], 1e-6)
	assert.Equal(t, 1.0, sol.Values["t1"])

	x, err := m.Values(sol.Values)
	require.NoError(t, err)
	assert.Empty(t, m.CheckPoint(x, 1e-6))
}

func TestSolve_Infeasible(t *testing.T) {
	m := milp.New("infeasible")
	x := mustVar(t, m, "x", milp.Continuous, 0, 1)
	m.AddConstraint("too_big", milp.VarExpr(x, 1), milp.GreaterEqual, milp.Const(2))

	sol := solve(t, m)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.False(t, sol.HasSolution())
	assert.Nil(t, sol.Values)

	_, err := sol.Value("x")
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolve_IntegerInfeasible(t *testing.T) {
	// 2n == 3 has a relaxed solution but no integer one
	m := milp.New("parity")
	n := mustVar(t, m, "n", milp.Integer, 0, 5)
	m.AddConstraint("odd", milp.VarExpr(n, 2), milp.Equal, milp.Const(3))

	sol := solve(t, m)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Equal(t, 3, sol.Nodes)
}

func TestSolve_Errors(t *testing.T) {
	m := milp.New("unbounded")
	mustVar(t, m, "x", milp.Continuous, 0, math.Inf(1))
	_, err := NewBranchAndBound(DefaultOptions()).Solve(context.Background(), m, 0)
	assert.ErrorIs(t, err, ErrUnboundedVariable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m = milp.New("cancelled")
	mustVar(t, m, "x", milp.Continuous, 0, 1)
	_, err = NewBranchAndBound(DefaultOptions()).Solve(ctx, m, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_TimeLimit(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	m := milp.New("late")
	mustVar(t, m, "x", milp.Continuous, 0, 1)
	sol, err := NewBranchAndBound(DefaultOptions()).Solve(ctx, m, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimitInfeasible, sol.Status)
	assert.Equal(t, 0, sol.Nodes)
}

func TestSolutionValue(t *testing.T) {
	sol := &Solution{Status: StatusOptimal, Values: map[string]float64{"x": 2}}
	v, err := sol.Value("x")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = sol.Value("y")
	assert.ErrorIs(t, err, milp.ErrUnknownVariable)

	var none *Solution
	assert.False(t, none.HasSolution())
	assert.True(t, StatusTimeLimitFeasible.HasSolution())
	assert.False(t, StatusTimeLimitInfeasible.HasSolution())
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	opts, err = DecodeOptions(map[string]any{"absolute_gap": 0.5, "integrality_tolerance": 1e-4})
	require.NoError(t, err)
	assert.Equal(t, 0.5, opts.AbsoluteGap)
	assert.Equal(t, 1e-4, opts.IntegralityTol)
	assert.Equal(t, DefaultOptions().LPTolerance, opts.LPTolerance)

	_, err = DecodeOptions(map[string]any{"threads": 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver options")

	_, err = DecodeOptions(map[string]any{"absolute_gap": "tiny"})
	assert.Error(t, err)
}
