package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParamType is the declared domain of an algorithm hyperparameter.
type ParamType string

const (
	ParamInt   ParamType = "int"
	ParamFloat ParamType = "float"
)

// ParamSpec describes one hyperparameter of an algorithm (e.g. nScenarios).
type ParamSpec struct {
	Name string    `yaml:"name" json:"name"`
	Type ParamType `yaml:"type" json:"type"`
}

// IsInteger reports whether the parameter is integer valued.
func (p ParamSpec) IsInteger() bool { return p.Type == ParamInt }

// SurrogateModelSpec names a learned model whose rules approximate Target
// as a function of Features.
type SurrogateModelSpec struct {
	ID       string   `yaml:"id" json:"id"`
	Target   string   `yaml:"target" json:"target"`
	Features []string `yaml:"features,omitempty" json:"features,omitempty"`
}

// AlgorithmSpec is one discrete choice of the decision problem.
type AlgorithmSpec struct {
	Name   string               `yaml:"name" json:"name"`
	Params []ParamSpec          `yaml:"params,omitempty" json:"params,omitempty"`
	Models []SurrogateModelSpec `yaml:"models" json:"models"`
}

// SelectorVar is the name of the algorithm's selector binary.
func (a AlgorithmSpec) SelectorVar() string { return "b_" + a.Name }

// ConstraintOp is the comparison of a user constraint.
type ConstraintOp string

const (
	OpLessEqual    ConstraintOp = "<="
	OpGreaterEqual ConstraintOp = ">="
	OpEqual        ConstraintOp = "=="
)

// UserConstraint bounds one ML target of every algorithm, conditioned on
// that algorithm's selector.
type UserConstraint struct {
	Variable string       `yaml:"variable" json:"variable"`
	Op       ConstraintOp `yaml:"type" json:"type"`
	Value    float64      `yaml:"value" json:"value"`
}

// String renders the constraint the way the solution log records it.
func (c UserConstraint) String() string {
	return c.Variable + string(c.Op) + strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// ObjectiveSpec selects the optimized ML target and its direction.
type ObjectiveSpec struct {
	Sense    string `yaml:"type" json:"type"`
	Variable string `yaml:"variable" json:"variable"`
}

// String renders the objective as min(var) or max(var).
func (o ObjectiveSpec) String() string {
	return fmt.Sprintf("%s(%s)", o.Sense, o.Variable)
}

// BoundsSource locates the variable bounds: either a YAML table or a
// directory of <ALG>_trainDataset.csv files.
type BoundsSource struct {
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Datasets string `yaml:"datasets,omitempty" json:"datasets,omitempty"`
}

// SolverSpec configures the solve step. Options are engine specific.
type SolverSpec struct {
	TimeLimitSec int            `yaml:"time_limit,omitempty" json:"time_limit,omitempty"`
	Options      map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// ProblemSpec is the full description of one build-and-solve run.
type ProblemSpec struct {
	Name             string           `yaml:"name,omitempty" json:"name,omitempty"`
	Algorithms       []AlgorithmSpec  `yaml:"algorithms" json:"algorithms"`
	InstanceFeatures []string         `yaml:"instance_features,omitempty" json:"instance_features,omitempty"`
	Targets          []string         `yaml:"targets" json:"targets"`
	Constraints      []UserConstraint `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Objective        ObjectiveSpec    `yaml:"objective" json:"objective"`
	Bounds           BoundsSource     `yaml:"bounds" json:"bounds"`
	Rules            string           `yaml:"rules" json:"rules"`
	Solver           SolverSpec       `yaml:"solver,omitempty" json:"solver,omitempty"`
	EnableVarType    *bool            `yaml:"enable_var_type,omitempty" json:"enable_var_type,omitempty"`
}

// AlgorithmNames lists the algorithms in declaration order.
func (p *ProblemSpec) AlgorithmNames() []string {
	names := make([]string, len(p.Algorithms))
	for i, a := range p.Algorithms {
		names[i] = a.Name
	}
	return names
}

// LoadProblemSpec reads a problem YAML file. Relative bounds and rules paths
// are resolved against the file's directory.
func LoadProblemSpec(path string) (*ProblemSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec ProblemSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	spec.Bounds.File = resolvePath(base, spec.Bounds.File)
	spec.Bounds.Datasets = resolvePath(base, spec.Bounds.Datasets)
	spec.Rules = resolvePath(base, spec.Rules)
	return &spec, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks the structural requirements that the YAML schema cannot
// express.
func (p *ProblemSpec) Validate() error {
	if len(p.Algorithms) == 0 {
		return fmt.Errorf("at least one algorithm is required")
	}
	seen := make(map[string]bool)
	for _, a := range p.Algorithms {
		if a.Name == "" {
			return fmt.Errorf("algorithm name must not be empty")
		}
		if seen[a.Name] {
			return fmt.Errorf("algorithm %q declared twice", a.Name)
		}
		seen[a.Name] = true
		if len(a.Models) == 0 {
			return fmt.Errorf("algorithm %q has no surrogate model", a.Name)
		}
		for _, prm := range a.Params {
			if prm.Type != ParamInt && prm.Type != ParamFloat {
				return fmt.Errorf("algorithm %q: parameter %q has type %q, want int or float", a.Name, prm.Name, prm.Type)
			}
		}
	}
	if p.Objective.Variable == "" {
		return fmt.Errorf("objective variable is required")
	}
	if p.Bounds.File == "" && p.Bounds.Datasets == "" {
		return fmt.Errorf("bounds need either a file or a datasets directory")
	}
	if p.Rules == "" {
		return fmt.Errorf("rules catalog path is required")
	}
	if p.Solver.TimeLimitSec < 0 {
		return fmt.Errorf("solver time_limit must not be negative, got %d", p.Solver.TimeLimitSec)
	}
	return nil
}
