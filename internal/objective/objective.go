// Package objective builds the selector-conditioned model objective
// sum_alg b_alg * y_alg_<var>, with each product linearized.
package objective

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ai-research-disi/Logic-HADA/internal/linearize"
	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/registry"
)

// ErrUnsupportedSense indicates an objective direction other than min or max.
var ErrUnsupportedSense = errors.New("objective: unsupported objective type")

// ParseSense accepts min, minimize, max and maximize (any case).
func ParseSense(s string) (milp.ObjectiveSense, error) {
	switch strings.ToLower(s) {
	case "min", "minimize":
		return milp.Minimize, nil
	case "max", "maximize":
		return milp.Maximize, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSense, s)
}

// Build sets the single objective of the model over algs. It returns the
// product variables in algorithm order.
func Build(reg *registry.Registry, lin *linearize.Linearizer, spec models.ObjectiveSpec, algs []string) ([]*milp.Var, error) {
	sense, err := ParseSense(spec.Sense)
	if err != nil {
		return nil, err
	}
	products := make([]*milp.Var, 0, len(algs))
	for _, alg := range algs {
		w, err := lin.Product(alg, spec.Variable)
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", spec, err)
		}
		products = append(products, w)
	}
	reg.Model().SetObjective(sense, milp.Sum(products...))
	return products, nil
}
