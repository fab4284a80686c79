// Package solver defines the boundary to the MILP solving engine and ships
// a branch-and-bound engine built on an LP relaxation.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
)

// ErrNoSolution indicates a solution without assigned values.
var ErrNoSolution = errors.New("solver: no solution")

// Status is the terminal state of a solve.
type Status string

const (
	StatusOptimal             Status = "optimal"
	StatusFeasible            Status = "feasible"
	StatusTimeLimitFeasible   Status = "time_limit_feasible"
	StatusInfeasible          Status = "infeasible"
	StatusTimeLimitInfeasible Status = "time_limit_infeasible"
)

// HasSolution reports whether the status carries variable values.
func (s Status) HasSolution() bool {
	switch s {
	case StatusOptimal, StatusFeasible, StatusTimeLimitFeasible:
		return true
	}
	return false
}

// Solver solves a model within a wall-clock limit. Infeasibility is a
// Status, not an error; errors are reserved for engine failures.
type Solver interface {
	Solve(ctx context.Context, model *milp.Model, timeLimit time.Duration) (*Solution, error)
}

// Solution is the outcome of a solve.
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64
	Time      time.Duration
	Nodes     int
}

// HasSolution reports whether values were assigned.
func (s *Solution) HasSolution() bool {
	return s != nil && s.Status.HasSolution()
}

// Value returns the value assigned to name.
func (s *Solution) Value(name string) (float64, error) {
	if !s.HasSolution() {
		return 0, ErrNoSolution
	}
	v, ok := s.Values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", milp.ErrUnknownVariable, name)
	}
	return v, nil
}
