// Package catalog serves the surrogate rules extracted from the learned
// models, keyed by algorithm and model id.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrNoRules indicates that no rule set exists for an (algorithm, model) pair.
var ErrNoRules = errors.New("catalog: no rules")

// Provider yields the ordered rules of one surrogate model.
type Provider interface {
	Rules(algorithm, modelID string) ([]models.LogicRule, error)
}

// RuleSet is one catalog entry as written in the YAML file.
type RuleSet struct {
	Algorithm string             `yaml:"algorithm"`
	Model     string             `yaml:"model"`
	Rules     []models.LogicRule `yaml:"rules"`
}

type key struct{ alg, model string }

// Catalog is an in-memory Provider.
type Catalog struct {
	sets map[key][]models.LogicRule
}

func New() *Catalog {
	return &Catalog{sets: make(map[key][]models.LogicRule)}
}

// Add appends rules to the set of (algorithm, modelID), keeping order.
func (c *Catalog) Add(algorithm, modelID string, rules ...models.LogicRule) {
	k := key{algorithm, modelID}
	c.sets[k] = append(c.sets[k], rules...)
}

// Rules implements Provider.
func (c *Catalog) Rules(algorithm, modelID string) ([]models.LogicRule, error) {
	rules, ok := c.sets[key{algorithm, modelID}]
	if !ok {
		return nil, fmt.Errorf("%w: algorithm %q, model %q", ErrNoRules, algorithm, modelID)
	}
	return rules, nil
}

// Load reads a catalog file:
//
//	rule_sets:
//	  - algorithm: ANTICIPATE
//	    model: memory_DecisionTree_MaxDepth10
//	    rules:
//	      - if:   [{variable: y_nScenarios, type: range, value: [0.99, 20.79]}]
//	        then: [{variable: y_ANTICIPATE_memAvg(MB), type: "==", value: "66.20 + 4.02 * y_nScenarios"}]
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule catalog: %w", err)
	}
	var doc struct {
		RuleSets []RuleSet `yaml:"rule_sets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rule catalog %s: %w", path, err)
	}
	c := New()
	for _, rs := range doc.RuleSets {
		c.Add(rs.Algorithm, rs.Model, rs.Rules...)
	}
	return c, nil
}
