// Package assembler builds the algorithm-selection model in dependency
// order, persists it and hands it to the solver.
package assembler

//go:generate go tool mockgen -destination=mock_solver_test.go -package=assembler github.com/ai-research-disi/Logic-HADA/internal/solver Solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/bounds"
	"github.com/ai-research-disi/Logic-HADA/internal/catalog"
	"github.com/ai-research-disi/Logic-HADA/internal/linearize"
	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/objective"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
	"github.com/ai-research-disi/Logic-HADA/internal/reporting"
	"github.com/ai-research-disi/Logic-HADA/internal/rules"
	"github.com/ai-research-disi/Logic-HADA/internal/solver"
	"github.com/google/uuid"
)

// DefaultTimeLimit applies when neither the options nor the problem set one.
const DefaultTimeLimit = 20000 * time.Second

// Timing labels, in the order they are recorded.
const (
	TimeBeforeModel   = "before_model"
	TimeAfterSettings = "after_settings"
	TimeAfterPrint    = "after_print"
	TimeAfterSave     = "after_save"
	TimeAfterModel    = "after_model"
	TimeAfterSolve    = "after_solve"
)

// Marker labels.
const (
	MarkerModelCreated = "after_model_creation"
	MarkerVariables    = "after_variables"
	MarkerRules        = "after_rules"
	MarkerConstraints  = "after_user_constraints"
	MarkerObjective    = "after_objective"
)

// ErrInvalidPartition wraps the partition findings of a rule set when strict
// partition checking is enabled.
var ErrInvalidPartition = errors.New("assembler: rule ranges do not partition the domain")

// Options configures a build.
type Options struct {
	// ModelName defaults to EML_model_<dd_mm_yyyy-HH_MM_SS>.
	ModelName string
	// OutputDir receives the exported model. Nothing is exported when empty.
	OutputDir string
	// Format is the export extension: lp, json, optionally with .gz or .zst.
	Format string
	// TimeLimit overrides the problem's time_limit when positive.
	TimeLimit time.Duration
	// EnableVarType overrides the problem's enable_var_type when set.
	EnableVarType *bool
	// StrictPartitions turns partition findings into build errors.
	StrictPartitions bool
	// TimeLog and SolutionLog are appended after each solve when set.
	TimeLog     string
	SolutionLog string
	// RunID defaults to a random UUID.
	RunID string
}

// EventType is the kind of a progress event.
type EventType string

const (
	EventPhase       EventType = "phase"
	EventSolveStart  EventType = "solve_start"
	EventSolveFinish EventType = "solve_finish"
)

// ProgressEvent reports build and solve progress.
type ProgressEvent struct {
	EventType EventType
	Phase     string
	Stats     milp.Stats
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// Option configures an Assembler.
type Option func(*Assembler)

// WithProgressListener registers a listener for progress events.
func WithProgressListener(l ProgressListener) Option {
	return func(a *Assembler) {
		a.listeners = append(a.listeners, l)
	}
}

// WithClock replaces the wall clock used for timings and default names.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// Assembler wires the bounds, rules and solver collaborators together.
type Assembler struct {
	bounds bounds.Provider
	rules  catalog.Provider
	solver solver.Solver
	opts   Options
	now    func() time.Time

	progressMu sync.Mutex
	listeners  []ProgressListener
}

func New(b bounds.Provider, r catalog.Provider, s solver.Solver, opts Options, options ...Option) *Assembler {
	a := &Assembler{
		bounds: b,
		rules:  r,
		solver: s,
		opts:   opts,
		now:    time.Now,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Build is a constructed model with the registry that named its variables.
type Build struct {
	Spec      *models.ProblemSpec
	Model     *milp.Model
	Registry  *registry.Registry
	Report    *reporting.Report
	TimeLimit time.Duration

	start time.Time
}

// Run builds, persists and solves spec.
func (a *Assembler) Run(ctx context.Context, spec *models.ProblemSpec) (*reporting.Report, error) {
	b, err := a.Build(spec)
	if err != nil {
		return nil, err
	}
	return a.Solve(ctx, b)
}

// Build constructs the model. Every input is checked before anything is
// persisted, so a failed build leaves no model file behind.
func (a *Assembler) Build(spec *models.ProblemSpec) (*Build, error) {
	start := a.now()
	b := &Build{Spec: spec, start: start, TimeLimit: a.timeLimit(spec)}
	b.Report = &reporting.Report{
		RunID:     a.opts.RunID,
		Objective: spec.Objective.String(),
	}
	if b.Report.RunID == "" {
		b.Report.RunID = uuid.NewString()
	}
	for _, c := range spec.Constraints {
		b.Report.Constraints = append(b.Report.Constraints, c.String())
	}
	a.timing(b, TimeBeforeModel)

	if err := checkInputs(spec); err != nil {
		return nil, err
	}

	name := a.opts.ModelName
	if name == "" {
		name = spec.Name
	}
	if name == "" {
		name = "EML_model_" + start.Format("02_01_2006-15_04_05")
	}
	b.Model = milp.New(name)
	b.Registry = registry.New(b.Model, registry.WithIntegerShadows(a.enableVarType(spec)))
	a.marker(b, MarkerModelCreated)
	slog.Info("Building model", "name", name, "run", b.Report.RunID, "algorithms", len(spec.Algorithms))

	if err := a.createVariables(b); err != nil {
		return nil, err
	}
	a.marker(b, MarkerVariables)

	if err := a.encodeRules(b); err != nil {
		return nil, err
	}
	a.marker(b, MarkerRules)

	lin := linearize.New(b.Registry)
	algs := b.Registry.Algorithms()
	for _, c := range spec.Constraints {
		if err := lin.Apply(c, algs); err != nil {
			return nil, err
		}
	}
	a.marker(b, MarkerConstraints)

	if _, err := objective.Build(b.Registry, lin, spec.Objective, algs); err != nil {
		return nil, err
	}
	a.marker(b, MarkerObjective)
	a.timing(b, TimeAfterSettings)

	b.Report.Stats = b.Model.Stats()
	s := b.Report.Stats
	slog.Info("Model built", "variables", s.Variables, "linear", s.Linear, "indicators", s.Indicators)
	a.timing(b, TimeAfterPrint)

	if a.opts.OutputDir != "" {
		path, err := a.export(b.Model)
		if err != nil {
			return nil, err
		}
		b.Report.ModelFile = path
		slog.Info("Model saved", "path", path)
	}
	a.timing(b, TimeAfterSave)
	a.timing(b, TimeAfterModel)
	return b, nil
}

// checkInputs rejects unsupported operators before the model is touched.
func checkInputs(spec *models.ProblemSpec) error {
	for _, c := range spec.Constraints {
		if err := linearize.Check(c); err != nil {
			return err
		}
	}
	if _, err := objective.ParseSense(spec.Objective.Sense); err != nil {
		return err
	}
	return nil
}

func (a *Assembler) createVariables(b *Build) error {
	reg := b.Registry
	spec := b.Spec
	for _, alg := range spec.Algorithms {
		if _, err := reg.CreateSelector(alg.Name); err != nil {
			return err
		}
	}
	if err := reg.Complete(); err != nil {
		return err
	}

	for _, target := range spec.Targets {
		for _, alg := range spec.Algorithms {
			r, err := a.bounds.Bounds(alg.Name, target)
			if err != nil {
				return err
			}
			if _, err := reg.CreateTarget(alg.Name, target, r.Lower, r.Upper); err != nil {
				return err
			}
		}
	}

	for _, feature := range spec.InstanceFeatures {
		r, err := a.bounds.Bounds(bounds.GlobalScope, feature)
		if err != nil {
			return err
		}
		if _, err := reg.CreateFeature(feature, r.Lower, r.Upper); err != nil {
			return err
		}
	}

	for _, p := range hparams(spec) {
		r, err := a.bounds.Bounds(bounds.GlobalScope, p.Name)
		if err != nil {
			return err
		}
		if _, err := reg.CreateHparam(p.Name, r.Lower, r.Upper, p.IsInteger()); err != nil {
			return err
		}
	}
	return nil
}

// hparams merges the parameters of every algorithm by name, in declaration
// order. A parameter declared int by any algorithm is integer.
func hparams(spec *models.ProblemSpec) []models.ParamSpec {
	var out []models.ParamSpec
	index := make(map[string]int)
	for _, alg := range spec.Algorithms {
		for _, p := range alg.Params {
			if i, ok := index[p.Name]; ok {
				if p.IsInteger() {
					out[i].Type = models.ParamInt
				}
				continue
			}
			index[p.Name] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func (a *Assembler) encodeRules(b *Build) error {
	enc := rules.NewEncoder(b.Registry)
	for _, alg := range b.Spec.Algorithms {
		for i, sm := range alg.Models {
			rs, err := a.rules.Rules(alg.Name, sm.ID)
			if err != nil {
				return err
			}
			set := rules.Set{
				Algorithm: alg.Name,
				Model:     sm.ID,
				Prefix:    rulePrefix(alg, i),
				Rules:     rs,
			}
			if err := a.checkPartition(b, set); err != nil {
				return err
			}
			slog.Info("Encoding rules", "algorithm", alg.Name, "model", sm.ID, "rules", len(rs))
			if _, err := enc.Encode(set); err != nil {
				return err
			}
		}
	}
	return nil
}

// rulePrefix is the algorithm name, qualified by the model file name when
// the algorithm has more than one surrogate model. Models whose file names
// collide are further qualified by their position.
func rulePrefix(alg models.AlgorithmSpec, i int) string {
	if len(alg.Models) == 1 {
		return alg.Name
	}
	base := modelBase(alg.Models[i].ID)
	for j, other := range alg.Models {
		if j != i && modelBase(other.ID) == base {
			return alg.Name + "_" + base + "_" + strconv.Itoa(i)
		}
	}
	return alg.Name + "_" + base
}

func modelBase(id string) string {
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *Assembler) checkPartition(b *Build, set rules.Set) error {
	variable, ok := rules.GoverningVariable(set.Rules)
	if !ok {
		return nil
	}
	v, err := b.Registry.Resolve(variable)
	if err != nil {
		return err
	}
	_, perr := rules.ValidatePartition(set.Rules, v.LB(), v.UB())
	if perr == nil {
		return nil
	}
	if a.opts.StrictPartitions {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPartition, set.Prefix, perr)
	}
	slog.Warn("Rule ranges do not partition the domain", "set", set.Prefix, "variable", variable, "error", perr)
	return nil
}

func (a *Assembler) export(m *milp.Model) (string, error) {
	format := a.opts.Format
	if format == "" {
		format = string(milp.FormatLP)
	}
	path := filepath.Join(a.opts.OutputDir, m.Name()+"."+strings.TrimPrefix(format, "."))
	if _, _, err := milp.FormatOf(path); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := m.Export(path); err != nil {
		return "", err
	}
	return path, nil
}

// Solve runs the solver on a built model and completes its report. A solve
// without values is reported, not returned as an error.
func (a *Assembler) Solve(ctx context.Context, b *Build) (*reporting.Report, error) {
	a.notify(ProgressEvent{EventType: EventSolveStart, Stats: b.Report.Stats})
	slog.Info("Starting the solution process", "time_limit", b.TimeLimit)

	sol, err := a.solver.Solve(ctx, b.Model, b.TimeLimit)
	a.notify(ProgressEvent{EventType: EventSolveFinish, Stats: b.Report.Stats})
	if err != nil {
		return nil, fmt.Errorf("solving %s: %w", b.Model.Name(), err)
	}

	b.Report.Fill(b.Registry, sol)
	a.timing(b, TimeAfterSolve)
	if !b.Report.Solved {
		slog.Info("No solution found", "status", string(b.Report.Status))
	} else {
		slog.Info("Solution found", "status", string(b.Report.Status), "objective", b.Report.ObjectiveValue,
			"algorithm", b.Report.Algorithm)
	}

	if a.opts.TimeLog != "" {
		if err := reporting.AppendTimeLog(a.opts.TimeLog, b.Report); err != nil {
			return b.Report, err
		}
	}
	if a.opts.SolutionLog != "" {
		if err := reporting.AppendSolutionLog(a.opts.SolutionLog, b.Report); err != nil {
			return b.Report, err
		}
	}
	return b.Report, nil
}

func (a *Assembler) timeLimit(spec *models.ProblemSpec) time.Duration {
	switch {
	case a.opts.TimeLimit > 0:
		return a.opts.TimeLimit
	case spec.Solver.TimeLimitSec > 0:
		return time.Duration(spec.Solver.TimeLimitSec) * time.Second
	}
	return DefaultTimeLimit
}

func (a *Assembler) enableVarType(spec *models.ProblemSpec) bool {
	if a.opts.EnableVarType != nil {
		return *a.opts.EnableVarType
	}
	return spec.EnableVarType != nil && *spec.EnableVarType
}

func (a *Assembler) notify(event ProgressEvent) {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	for _, l := range a.listeners {
		l(event)
	}
}

func (a *Assembler) timing(b *Build, label string) {
	b.Report.Timings = append(b.Report.Timings, reporting.Timing{Label: label, Elapsed: a.now().Sub(b.start)})
}

func (a *Assembler) marker(b *Build, label string) {
	s := b.Model.Stats()
	b.Report.Markers = append(b.Report.Markers, reporting.Marker{
		Label:       label,
		Constraints: s.Linear + s.Indicators,
		Variables:   s.Variables,
	})
	slog.Debug("MARKER", "phase", label, "constraints", s.Linear+s.Indicators, "variables", s.Variables)
	a.notify(ProgressEvent{EventType: EventPhase, Phase: label, Stats: s})
}
