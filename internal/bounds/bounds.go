// Package bounds provides the lower and upper bound of every quantity that
// can become a model variable, per algorithm and across all algorithms.
package bounds

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GlobalScope holds bounds shared by all algorithms (instance features and
// hyperparameters).
const GlobalScope = "global"

// ErrMissingBounds indicates that no bounds exist for a (scope, name) pair.
var ErrMissingBounds = errors.New("bounds: missing bounds")

// Range is a closed interval.
type Range struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// Provider yields bounds for a variable within a scope.
type Provider interface {
	Bounds(scope, name string) (Range, error)
}

// Table is an in-memory Provider.
type Table struct {
	scopes map[string]map[string]Range
}

func NewTable() *Table {
	return &Table{scopes: make(map[string]map[string]Range)}
}

// Set stores r for name within scope, replacing any previous value.
func (t *Table) Set(scope, name string, r Range) {
	s, ok := t.scopes[scope]
	if !ok {
		s = make(map[string]Range)
		t.scopes[scope] = s
	}
	s[name] = r
}

// Bounds implements Provider.
func (t *Table) Bounds(scope, name string) (Range, error) {
	r, ok := t.scopes[scope][name]
	if !ok {
		return Range{}, fmt.Errorf("%w: %q in scope %q", ErrMissingBounds, name, scope)
	}
	return r, nil
}

// Scopes lists the scope names in sorted order.
func (t *Table) Scopes() []string {
	names := make([]string, 0, len(t.scopes))
	for s := range t.scopes {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// DeriveGlobal fills the global scope with the union of the algorithm
// scopes: the smallest lower and the largest upper bound of each name.
// Entries already present in the global scope are kept.
func (t *Table) DeriveGlobal() {
	union := make(map[string]Range)
	for scope, entries := range t.scopes {
		if scope == GlobalScope {
			continue
		}
		for name, r := range entries {
			u, ok := union[name]
			if !ok {
				union[name] = r
				continue
			}
			union[name] = Range{Lower: math.Min(u.Lower, r.Lower), Upper: math.Max(u.Upper, r.Upper)}
		}
	}
	for name, r := range union {
		if _, ok := t.scopes[GlobalScope][name]; !ok {
			t.Set(GlobalScope, name, r)
		}
	}
}

// LoadFile reads a YAML table of the form
//
//	ANTICIPATE:
//	  sol(keuro): {lower: 0.5, upper: 42}
//	global:
//	  nScenarios: {lower: 1, upper: 100}
//
// A missing global scope is derived from the algorithm scopes.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bounds: %w", err)
	}
	var raw map[string]map[string]Range
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing bounds %s: %w", path, err)
	}
	t := NewTable()
	for scope, entries := range raw {
		for name, r := range entries {
			t.Set(scope, name, r)
		}
	}
	t.DeriveGlobal()
	return t, nil
}

// WriteFile saves the table in the layout LoadFile reads.
func (t *Table) WriteFile(path string) error {
	data, err := yaml.Marshal(t.scopes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
