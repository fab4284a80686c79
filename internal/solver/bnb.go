package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/go-viper/mapstructure/v2"
)

// Options tunes the branch-and-bound engine.
type Options struct {
	// IntegralityTol is how far from an integer a value may be and still
	// count as integral.
	IntegralityTol float64 `mapstructure:"integrality_tolerance"`
	// LPTolerance is passed to the simplex as its optimality tolerance and
	// also decides when a branched variable counts as fixed.
	LPTolerance float64 `mapstructure:"lp_tolerance"`
	// AbsoluteGap prunes nodes whose bound does not beat the incumbent by
	// more than this amount.
	AbsoluteGap float64 `mapstructure:"absolute_gap"`
}

func DefaultOptions() Options {
	return Options{
		IntegralityTol: 1e-6,
		LPTolerance:    1e-10,
		AbsoluteGap:    1e-9,
	}
}

// DecodeOptions overlays a free-form option map (as found in the problem
// file) onto DefaultOptions. Unknown keys are rejected.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(raw) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("solver options: %w", err)
	}
	return opts, nil
}

// BranchAndBound is a depth-first branch-and-bound over the binary and
// integer variables, each node solved as an LP relaxation.
type BranchAndBound struct {
	opts Options
}

func NewBranchAndBound(opts Options) *BranchAndBound {
	return &BranchAndBound{opts: opts}
}

type node struct {
	lb, ub []float64
}

func (n node) with(j int, lb, ub float64) node {
	c := node{lb: append([]float64(nil), n.lb...), ub: append([]float64(nil), n.ub...)}
	c.lb[j], c.ub[j] = lb, ub
	return c
}

// Solve implements Solver. When timeLimit elapses the best point found so
// far is returned with a time-limit status. A zero timeLimit means no limit.
func (s *BranchAndBound) Solve(ctx context.Context, model *milp.Model, timeLimit time.Duration) (*Solution, error) {
	start := time.Now()
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	rel, err := newRelaxation(model)
	if err != nil {
		return nil, err
	}

	var (
		best     []float64
		bestObj  = math.Inf(1)
		nodes    int
		timedOut bool
	)
	stack := []node{{lb: rel.lb, ub: rel.ub}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			timedOut = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, ok, err := rel.solve(nd.lb, nd.ub, s.opts.LPTolerance)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nodes, err)
		}
		if !ok || obj >= bestObj-s.opts.AbsoluteGap {
			continue
		}

		j := s.branchVariable(rel, x)
		if j < 0 {
			best, bestObj = x, obj
			slog.Debug("New incumbent", "node", nodes, "objective", rel.sign*obj)
			continue
		}

		down, up := math.Floor(x[j]), math.Ceil(x[j])
		lo := nd.with(j, nd.lb[j], down)
		hi := nd.with(j, up, nd.ub[j])
		// the side nearer to the relaxed value is popped first
		if x[j]-down < up-x[j] {
			stack = append(stack, hi, lo)
		} else {
			stack = append(stack, lo, hi)
		}
	}

	sol := &Solution{Time: time.Since(start), Nodes: nodes}
	switch {
	case best == nil && timedOut:
		sol.Status = StatusTimeLimitInfeasible
	case best == nil:
		sol.Status = StatusInfeasible
	case timedOut:
		sol.Status = StatusTimeLimitFeasible
	default:
		sol.Status = StatusOptimal
	}
	if best != nil {
		sol.Objective = rel.sign * bestObj
		sol.Values = make(map[string]float64, len(best))
		for j, v := range best {
			if rel.integer[j] {
				v = math.Round(v)
			}
			sol.Values[rel.names[j]] = v
		}
	}
	slog.Info("Branch and bound finished", "status", string(sol.Status), "nodes", nodes, "elapsed", sol.Time)
	return sol, nil
}

// branchVariable picks the most fractional integer variable, or -1 when x
// is integral.
func (s *BranchAndBound) branchVariable(rel *relaxation, x []float64) int {
	best, bestFrac := -1, s.opts.IntegralityTol
	for j, v := range x {
		if !rel.integer[j] {
			continue
		}
		frac := math.Abs(v - math.Round(v))
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}
	return best
}
