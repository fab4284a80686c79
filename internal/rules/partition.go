package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ai-research-disi/Logic-HADA/internal/models"
)

var (
	// ErrPartitionOverlap indicates two rules whose IF ranges share interior points.
	ErrPartitionOverlap = errors.New("rules: overlapping rule ranges")
	// ErrPartitionGap indicates part of the domain that no rule covers.
	ErrPartitionGap = errors.New("rules: gap between rule ranges")
)

// ValidatePartition checks that the IF ranges of a single-variable rule set
// cover [lo, hi] without overlaps. Adjacent ranges may share an endpoint.
// Rule sets with several IF variables per rule are not checked and return
// checked == false. Every problem found is joined into err.
func ValidatePartition(rules []models.LogicRule, lo, hi float64) (checked bool, err error) {
	variable, ok := GoverningVariable(rules)
	if !ok {
		return false, nil
	}

	ranges := make([][2]float64, len(rules))
	for i, r := range rules {
		ranges[i] = r.If[0].Range
	}
	sort.Slice(ranges, func(a, b int) bool { return ranges[a][0] < ranges[b][0] })

	var errs []error
	if ranges[0][0] > lo {
		errs = append(errs, fmt.Errorf("%w: %s in [%v, %v)", ErrPartitionGap, variable, lo, ranges[0][0]))
	}
	// cover is the range reaching furthest right among those seen so far
	cover := ranges[0]
	for _, cur := range ranges[1:] {
		switch {
		case cur[0] < cover[1]:
			errs = append(errs, fmt.Errorf("%w: %s ranges [%v, %v] and [%v, %v]", ErrPartitionOverlap,
				variable, cover[0], cover[1], cur[0], cur[1]))
		case cur[0] > cover[1]:
			errs = append(errs, fmt.Errorf("%w: %s in (%v, %v)", ErrPartitionGap, variable, cover[1], cur[0]))
		}
		if cur[1] > cover[1] {
			cover = cur
		}
	}
	if cover[1] < hi {
		errs = append(errs, fmt.Errorf("%w: %s in (%v, %v]", ErrPartitionGap, variable, cover[1], hi))
	}
	return true, errors.Join(errs...)
}

// GoverningVariable returns the variable that every rule conditions on
// when each rule has exactly one IF clause over the same variable.
func GoverningVariable(rules []models.LogicRule) (string, bool) {
	if len(rules) == 0 {
		return "", false
	}
	var variable string
	for i, r := range rules {
		if len(r.If) != 1 {
			return "", false
		}
		if i == 0 {
			variable = r.If[0].Variable
		} else if r.If[0].Variable != variable {
			return "", false
		}
	}
	return variable, true
}
