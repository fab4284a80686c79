package linearize

import (
	"testing"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRegistry registers b_A and y_A_cost without the selector row, so a
// point with b_A = 0 is checked only against the rows under test.
func newRegistry(t *testing.T, lb, ub float64) *registry.Registry {
	t.Helper()
	reg := registry.New(milp.New("lin"))
	_, err := reg.CreateSelector("A")
	require.NoError(t, err)
	_, err = reg.CreateTarget("A", "cost", lb, ub)
	require.NoError(t, err)
	return reg
}

func violations(t *testing.T, reg *registry.Registry, b, y float64) []string {
	t.Helper()
	m := reg.Model()
	x, err := m.Values(map[string]float64{"b_A": b, "y_A_cost": y})
	require.NoError(t, err)
	var names []string
	for _, v := range m.CheckPoint(x, 1e-9) {
		names = append(names, v.Name)
	}
	return names
}

func TestApply_Equality(t *testing.T) {
	reg := newRegistry(t, 0, 100)
	c := models.UserConstraint{Variable: "cost", Op: models.OpEqual, Value: 50}
	require.NoError(t, New(reg).Apply(c, []string{"A"}))
	assert.Len(t, reg.Model().Constraints(), 4)

	// selected: y is pinned to v
	assert.Empty(t, violations(t, reg, 1, 50))
	assert.Equal(t, []string{"user1_A_cost_eq_lo"}, violations(t, reg, 1, 49))
	assert.Equal(t, []string{"user1_A_cost_eq_hi"}, violations(t, reg, 1, 51))

	// not selected: the whole box stays feasible
	for _, y := range []float64{0, 25, 50, 100} {
		assert.Empty(t, violations(t, reg, 0, y), "y=%v", y)
	}
}

func TestApply_LessEqual(t *testing.T) {
	tests := []struct {
		name      string
		lb, v     float64
		b, y      float64
		wantRows  []string
		wantClean bool
	}{
		{name: "satisfied", lb: 10, v: 50, b: 1, y: 40, wantClean: true},
		{name: "target above limit", lb: 10, v: 50, b: 1, y: 60, wantRows: []string{"user1_A_cost_le"}},
		{name: "limit below lower bound forbids selection", lb: 300, v: 200, b: 1, y: 200,
			wantRows: []string{"user1_A_cost_le_sel"}},
		{name: "limit below lower bound unselected", lb: 300, v: 200, b: 0, y: 300,
			wantRows: []string{"user1_A_cost_le"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, tt.lb, 1000)
			c := models.UserConstraint{Variable: "cost", Op: models.OpLessEqual, Value: tt.v}
			require.NoError(t, New(reg).Apply(c, []string{"A"}))

			got := violations(t, reg, tt.b, tt.y)
			// y below its own lower bound is reported first
			got = withoutVar(got, "y_A_cost")
			if tt.wantClean {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.wantRows, got)
		})
	}
}

func withoutVar(names []string, v string) []string {
	var out []string
	for _, n := range names {
		if n != v {
			out = append(out, n)
		}
	}
	return out
}

func TestApply_GreaterEqual(t *testing.T) {
	reg := newRegistry(t, 0, 400)
	c := models.UserConstraint{Variable: "cost", Op: models.OpGreaterEqual, Value: 350}
	require.NoError(t, New(reg).Apply(c, []string{"A"}))
	assert.Empty(t, violations(t, reg, 1, 360))
	assert.Equal(t, []string{"user1_A_cost_ge"}, violations(t, reg, 1, 300))

	// a limit above the upper bound forbids selecting the algorithm
	reg = newRegistry(t, 0, 400)
	c.Value = 500
	require.NoError(t, New(reg).Apply(c, []string{"A"}))
	assert.Contains(t, violations(t, reg, 1, 400), "user1_A_cost_ge_sel")
	assert.NotContains(t, violations(t, reg, 0, 400), "user1_A_cost_ge_sel")
}

func TestApply_Errors(t *testing.T) {
	reg := newRegistry(t, 0, 100)
	lin := New(reg)

	err := lin.Apply(models.UserConstraint{Variable: "cost", Op: "!=", Value: 1}, []string{"A"})
	assert.ErrorIs(t, err, ErrUnsupportedConstraintType)
	assert.Empty(t, reg.Model().Constraints())

	err = lin.Apply(models.UserConstraint{Variable: "time", Op: models.OpLessEqual, Value: 1}, []string{"A"})
	assert.ErrorIs(t, err, milp.ErrUnknownVariable)

	err = lin.Apply(models.UserConstraint{Variable: "cost", Op: models.OpLessEqual, Value: 1}, []string{"B"})
	assert.ErrorIs(t, err, milp.ErrUnknownVariable)
}

func TestCheck(t *testing.T) {
	for _, op := range []models.ConstraintOp{models.OpLessEqual, models.OpGreaterEqual, models.OpEqual} {
		assert.NoError(t, Check(models.UserConstraint{Variable: "cost", Op: op}))
	}
	for _, op := range []models.ConstraintOp{"!=", "<", ">", ""} {
		assert.ErrorIs(t, Check(models.UserConstraint{Variable: "cost", Op: op}), ErrUnsupportedConstraintType)
	}
}

func TestProduct(t *testing.T) {
	reg := newRegistry(t, 20, 100)
	w, err := New(reg).Product("A", "cost")
	require.NoError(t, err)
	assert.Equal(t, "w_A_cost", w.Name())
	assert.Len(t, reg.Model().Constraints(), 4)

	m := reg.Model()
	check := func(b, y, wv float64) bool {
		x, err := m.Values(map[string]float64{"b_A": b, "y_A_cost": y, "w_A_cost": wv})
		require.NoError(t, err)
		return len(m.CheckPoint(x, 1e-9)) == 0
	}
	assert.True(t, check(1, 70, 70))
	assert.False(t, check(1, 70, 69))
	assert.False(t, check(1, 70, 71))
	assert.True(t, check(0, 70, 0))
	assert.False(t, check(0, 70, 5))

	_, err = New(reg).Product("A", "missing")
	assert.ErrorIs(t, err, milp.ErrUnknownVariable)
}
