// Package registry allocates and names every decision variable of the
// algorithm-selection model and resolves names back to variables.
//
// Naming scheme:
//
//	b_<alg>            selector binary of an algorithm
//	y_<alg>_<var>      per-algorithm ML target (cost, time, memory...)
//	y_<var>            instance feature or hyperparameter
//	y_<var>_int        integer shadow of an integer hyperparameter
//	w_<alg>_<var>      product b_<alg> * y_<alg>_<var>
//
// Rule activation binaries are named by the rule encoder and registered
// through CreateActivation.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
)

var (
	// ErrNegativeBound indicates a variable bound below zero. The selector
	// linearizations rely on non-negative bounds.
	ErrNegativeBound = errors.New("registry: negative bound")
	// ErrAlreadyComplete indicates a selector created after Complete.
	ErrAlreadyComplete = errors.New("registry: selectors already completed")
	// ErrNoSelectors indicates Complete without any selector.
	ErrNoSelectors = errors.New("registry: no algorithm selectors")
)

// Kind is the role of a variable in the model.
type Kind int

const (
	KindSelector Kind = iota
	KindTarget
	KindFeature
	KindHparam
	KindShadow
	KindActivation
	KindProduct
)

func (k Kind) String() string {
	switch k {
	case KindSelector:
		return "selector"
	case KindTarget:
		return "target"
	case KindFeature:
		return "feature"
	case KindHparam:
		return "hparam"
	case KindShadow:
		return "shadow"
	case KindActivation:
		return "activation"
	case KindProduct:
		return "product"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one registered variable with its role.
type Entry struct {
	Var  *milp.Var
	Kind Kind
}

// Registry wraps a model and keeps the role of each variable it created.
type Registry struct {
	model         *milp.Model
	enableVarType bool
	selectors     []*milp.Var
	algorithms    []string
	entries       []Entry
	kinds         map[string]Kind
	complete      bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithIntegerShadows enables the y_<var>_int shadow variables of integer
// hyperparameters and the equality linking each shadow to its continuous
// variable. Disabled by default.
func WithIntegerShadows(enabled bool) Option {
	return func(r *Registry) { r.enableVarType = enabled }
}

// New creates a registry over m.
func New(m *milp.Model, opts ...Option) *Registry {
	r := &Registry{model: m, kinds: make(map[string]Kind)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the wrapped model.
func (r *Registry) Model() *milp.Model { return r.model }

func SelectorName(alg string) string         { return "b_" + alg }
func TargetName(alg, variable string) string  { return "y_" + alg + "_" + variable }
func FeatureName(variable string) string      { return "y_" + variable }
func ShadowName(variable string) string       { return "y_" + variable + "_int" }
func ProductName(alg, variable string) string { return "w_" + alg + "_" + variable }

func (r *Registry) add(name string, typ milp.VarType, lb, ub float64, kind Kind) (*milp.Var, error) {
	if lb < 0 || ub < 0 {
		return nil, fmt.Errorf("%w: %q has [%v, %v]", ErrNegativeBound, name, lb, ub)
	}
	v, err := r.model.AddVar(name, typ, lb, ub)
	if err != nil {
		return nil, err
	}
	r.entries = append(r.entries, Entry{Var: v, Kind: kind})
	r.kinds[name] = kind
	slog.Debug("Registered variable", "name", name, "kind", kind.String(), "lb", v.LB(), "ub", v.UB())
	return v, nil
}

// CreateSelector registers b_<alg>.
func (r *Registry) CreateSelector(alg string) (*milp.Var, error) {
	if r.complete {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyComplete, alg)
	}
	v, err := r.add(SelectorName(alg), milp.Binary, 0, 1, KindSelector)
	if err != nil {
		return nil, err
	}
	r.selectors = append(r.selectors, v)
	r.algorithms = append(r.algorithms, alg)
	return v, nil
}

// CreateTarget registers the continuous y_<alg>_<var>.
func (r *Registry) CreateTarget(alg, variable string, lb, ub float64) (*milp.Var, error) {
	return r.add(TargetName(alg, variable), milp.Continuous, lb, ub, KindTarget)
}

// CreateFeature registers the continuous instance feature y_<var>.
func (r *Registry) CreateFeature(variable string, lb, ub float64) (*milp.Var, error) {
	return r.add(FeatureName(variable), milp.Continuous, lb, ub, KindFeature)
}

// CreateHparam registers the continuous hyperparameter y_<var>. When
// asInteger is set and integer shadows are enabled, it also registers
// y_<var>_int and the row y_<var>_int == y_<var>.
func (r *Registry) CreateHparam(variable string, lb, ub float64, asInteger bool) (*milp.Var, error) {
	v, err := r.add(FeatureName(variable), milp.Continuous, lb, ub, KindHparam)
	if err != nil {
		return nil, err
	}
	if !asInteger || !r.enableVarType {
		return v, nil
	}
	shadow, err := r.add(ShadowName(variable), milp.Integer, lb, ub, KindShadow)
	if err != nil {
		return nil, err
	}
	r.model.AddConstraint("link_"+shadow.Name(), milp.VarExpr(shadow, 1), milp.Equal, milp.VarExpr(v, 1))
	return v, nil
}

// CreateActivation registers a rule activation binary.
func (r *Registry) CreateActivation(name string) (*milp.Var, error) {
	return r.add(name, milp.Binary, 0, 1, KindActivation)
}

// CreateProduct registers w_<alg>_<var> with the given bounds.
func (r *Registry) CreateProduct(alg, variable string, lb, ub float64) (*milp.Var, error) {
	return r.add(ProductName(alg, variable), milp.Continuous, lb, ub, KindProduct)
}

// Complete emits sum(b_<alg>) == 1 over every registered selector. It must
// be called exactly once, after the last CreateSelector.
func (r *Registry) Complete() error {
	if r.complete {
		return ErrAlreadyComplete
	}
	if len(r.selectors) == 0 {
		return ErrNoSelectors
	}
	r.model.AddConstraint("select_one_algorithm", milp.Sum(r.selectors...), milp.Equal, milp.Const(1))
	r.complete = true
	return nil
}

// Resolve looks up any model variable by name.
func (r *Registry) Resolve(name string) (*milp.Var, error) {
	return r.model.Var(name)
}

// Selector resolves b_<alg>.
func (r *Registry) Selector(alg string) (*milp.Var, error) {
	return r.Resolve(SelectorName(alg))
}

// Target resolves y_<alg>_<var>.
func (r *Registry) Target(alg, variable string) (*milp.Var, error) {
	return r.Resolve(TargetName(alg, variable))
}

// Algorithms lists the algorithms in selector creation order.
func (r *Registry) Algorithms() []string { return r.algorithms }

// Selectors lists the selector binaries in creation order.
func (r *Registry) Selectors() []*milp.Var { return r.selectors }

// Entries lists every registered variable in creation order.
func (r *Registry) Entries() []Entry { return r.entries }

// KindOf reports the role of a registered variable.
func (r *Registry) KindOf(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}
