package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
	"github.com/ai-research-disi/Logic-HADA/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(milp.New("report"), registry.WithIntegerShadows(true))
	for _, alg := range []string{"ANTICIPATE", "CONTINGENCY"} {
		_, err := reg.CreateSelector(alg)
		require.NoError(t, err)
	}
	require.NoError(t, reg.Complete())
	_, err := reg.CreateTarget("ANTICIPATE", "sol(keuro)", 300, 400)
	require.NoError(t, err)
	_, err = reg.CreateHparam("nScenarios", 1, 100, true)
	require.NoError(t, err)
	_, err = reg.CreateActivation("ANTICIPATE_LogRul_0_THEN_z1")
	require.NoError(t, err)
	return reg
}

func solvedReport(t *testing.T) *Report {
	t.Helper()
	r := &Report{
		RunID:       "run-42",
		ModelFile:   "out/hada.lp",
		Objective:   "min(sol(keuro))",
		Constraints: []string{"sol(keuro)<=600", "time(sec)>=1"},
		Timings: []Timing{
			{Label: "before_model", Elapsed: 0},
			{Label: "after_model", Elapsed: 1500 * time.Millisecond},
		},
	}
	r.Fill(testRegistry(t), &solver.Solution{
		Status:    solver.StatusOptimal,
		Objective: 325,
		Time:      2 * time.Second,
		Values: map[string]float64{
			"b_ANTICIPATE":                1,
			"b_CONTINGENCY":               0,
			"y_ANTICIPATE_sol(keuro)":     325,
			"y_nScenarios":                50,
			"y_nScenarios_int":            50,
			"ANTICIPATE_LogRul_0_THEN_z1": 1,
		},
	})
	return r
}

func TestFill_PartitionsByKind(t *testing.T) {
	r := solvedReport(t)

	assert.True(t, r.Solved)
	assert.Equal(t, "ANTICIPATE", r.Algorithm)
	assert.Equal(t, 325.0, r.ObjectiveValue)
	assert.Equal(t, []Value{{"y_ANTICIPATE_sol(keuro)", 325}, {"y_nScenarios", 50}}, r.Continuous)
	assert.Equal(t, []Value{{"y_nScenarios_int", 50}}, r.Integer)
	assert.Equal(t, []Value{
		{"b_ANTICIPATE", 1},
		{"b_CONTINGENCY", 0},
		{"ANTICIPATE_LogRul_0_THEN_z1", 1},
	}, r.Binary)
	assert.Equal(t, "optimal", r.StatusText())
}

func TestFill_NoSolution(t *testing.T) {
	tests := []struct {
		name       string
		sol        *solver.Solution
		wantStatus solver.Status
	}{
		{name: "nil solution", sol: nil, wantStatus: solver.StatusInfeasible},
		{name: "infeasible", sol: &solver.Solution{Status: solver.StatusInfeasible}, wantStatus: solver.StatusInfeasible},
		{name: "time limit", sol: &solver.Solution{Status: solver.StatusTimeLimitInfeasible}, wantStatus: solver.StatusTimeLimitInfeasible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Report
			r.Fill(testRegistry(t), tt.sol)
			assert.False(t, r.Solved)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Empty(t, r.Continuous)
			assert.Empty(t, r.Binary)
			assert.Equal(t, NoSolution, r.StatusText())
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, solvedReport(t)))
	out := buf.String()

	assert.Contains(t, out, "Run:          run-42")
	assert.Contains(t, out, "Objective:    min(sol(keuro))")
	assert.Contains(t, out, "Constraint:   time(sec)>=1")
	assert.Contains(t, out, "SOLUTION DATA")
	assert.Contains(t, out, "Solver status: optimal")
	assert.Contains(t, out, "Algorithm:     ANTICIPATE")
	assert.Contains(t, out, "*INT VARIABLES")
	assert.Contains(t, out, strings.Repeat("-", defaultWidth))

	// names are padded to a common width
	assert.Contains(t, out, "    * y_nScenarios             50\n")
	assert.Contains(t, out, "    * y_ANTICIPATE_sol(keuro)  325\n")
}

func TestWrite_NoSolution(t *testing.T) {
	var r Report
	r.Objective = "max(time(sec))"
	r.Fill(testRegistry(t), &solver.Solution{Status: solver.StatusTimeLimitInfeasible})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &r))
	assert.Contains(t, buf.String(), "No solution found (time_limit_infeasible)")
	assert.NotContains(t, buf.String(), "SOLUTION DATA")
}

func TestWriteModel(t *testing.T) {
	var buf bytes.Buffer
	r := solvedReport(t)
	r.Stats = milp.Stats{Variables: 6, Continuous: 2, Integer: 1, Binary: 3, Linear: 2, Indicators: 4}
	require.NoError(t, WriteModel(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "6 VARIABLES (2 continuous, 1 integer, 3 binary)")
	assert.Contains(t, out, "4 INDICATOR CONSTRAINTS")
	assert.Contains(t, out, "  * after_model   1.500000s")
	assert.NotContains(t, out, "SOLUTION DATA")
}

func TestAppendLogs(t *testing.T) {
	dir := t.TempDir()
	timeLog := filepath.Join(dir, "time_logs.csv")
	solLog := filepath.Join(dir, "sol_logs.csv")

	r := solvedReport(t)
	require.NoError(t, AppendTimeLog(timeLog, r))
	require.NoError(t, AppendSolutionLog(solLog, r))

	data, err := os.ReadFile(timeLog)
	require.NoError(t, err)
	assert.Equal(t, "run_id,before_model,after_model,solver_time(sol)\nrun-42,0.000000,1.500000,2.000000\n", string(data))

	data, err = os.ReadFile(solLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "run_id,objective,constraints,model_file,status,time,y_ANTICIPATE_sol(keuro),y_nScenarios,y_nScenarios_int", lines[0])
	assert.Equal(t, `run-42,min(sol(keuro)),"[sol(keuro)<=600, time(sec)>=1]",out/hada.lp,optimal,2.00,325,50,50`, lines[1])

	// each run appends its own header and value rows
	var unsolved Report
	unsolved.RunID = "run-43"
	unsolved.Fill(testRegistry(t), nil)
	require.NoError(t, AppendSolutionLog(solLog, &unsolved))
	data, err = os.ReadFile(solLog)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "run-43,,[],,No sol found", lines[3])
}
