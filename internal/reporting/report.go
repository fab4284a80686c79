// Package reporting turns a solve outcome into the run report and appends
// the two per-run CSV logs.
package reporting

import (
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
	"github.com/ai-research-disi/Logic-HADA/internal/solver"
)

// NoSolution is the status recorded when the solver found no feasible point.
const NoSolution = "No sol found"

// Value is one reported variable assignment.
type Value struct {
	Name  string
	Value float64
}

// Timing is the elapsed time of a build phase since the build started.
type Timing struct {
	Label   string
	Elapsed time.Duration
}

// Marker is the model size after a build phase.
type Marker struct {
	Label       string
	Constraints int
	Variables   int
}

// Report is the outcome of one build-and-solve run.
type Report struct {
	RunID       string
	ModelFile   string
	Objective   string
	Constraints []string

	Status         solver.Status
	Solved         bool
	Algorithm      string
	ObjectiveValue float64
	SolveTime      time.Duration
	Nodes          int

	// Continuous holds targets, features, hyperparameters and products;
	// Integer the integer shadows; Binary the selectors and rule activations.
	Continuous []Value
	Integer    []Value
	Binary     []Value

	Stats   milp.Stats
	Timings []Timing
	Markers []Marker
}

// Fill copies sol into the report, partitioning the values by the role the
// registry recorded for each variable. A nil or valueless solution marks the
// report unsolved.
func (r *Report) Fill(reg *registry.Registry, sol *solver.Solution) {
	r.Continuous, r.Integer, r.Binary = nil, nil, nil
	r.Algorithm = ""
	r.Solved = sol.HasSolution()
	if sol == nil {
		r.Status = solver.StatusInfeasible
		return
	}
	r.Status = sol.Status
	r.SolveTime = sol.Time
	r.Nodes = sol.Nodes
	if !r.Solved {
		return
	}
	r.ObjectiveValue = sol.Objective

	for i, b := range reg.Selectors() {
		if sol.Values[b.Name()] > 0.5 {
			r.Algorithm = reg.Algorithms()[i]
		}
	}
	for _, e := range reg.Entries() {
		v := Value{Name: e.Var.Name(), Value: sol.Values[e.Var.Name()]}
		switch e.Kind {
		case registry.KindShadow:
			r.Integer = append(r.Integer, v)
		case registry.KindSelector, registry.KindActivation:
			r.Binary = append(r.Binary, v)
		default:
			r.Continuous = append(r.Continuous, v)
		}
	}
}

// StatusText is the status as written to the solution log.
func (r *Report) StatusText() string {
	if !r.Solved {
		return NoSolution
	}
	return string(r.Status)
}
