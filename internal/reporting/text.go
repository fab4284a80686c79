package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const defaultWidth = 60

// WriteModel renders the build part of the report: inputs, model size and
// phase timings.
func WriteModel(w io.Writer, r *Report) error {
	var b strings.Builder
	writeModel(&b, r)
	_, err := io.WriteString(w, b.String())
	return err
}

// Write renders the whole report as aligned plain text.
func Write(w io.Writer, r *Report) error {
	var b strings.Builder
	rule := strings.Repeat("-", separatorWidth(w))

	writeModel(&b, r)
	b.WriteString(rule + "\n")
	if !r.Solved {
		fmt.Fprintf(&b, "No solution found (%s)\n", r.Status)
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("SOLUTION DATA\n")
	fmt.Fprintf(&b, "Solution time: %.2f (sec)\n", r.SolveTime.Seconds())
	fmt.Fprintf(&b, "Solver status: %s\n", r.Status)
	fmt.Fprintf(&b, "Objective:     %g\n", r.ObjectiveValue)
	if r.Algorithm != "" {
		fmt.Fprintf(&b, "Algorithm:     %s\n", r.Algorithm)
	}
	writeValues(&b, "CONT VARIABLES", r.Continuous)
	writeValues(&b, "INT VARIABLES", r.Integer)
	writeValues(&b, "BINARY VARIABLES", r.Binary)
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeModel(b *strings.Builder, r *Report) {
	b.WriteString("=== Model ===\n")
	if r.RunID != "" {
		fmt.Fprintf(b, "Run:          %s\n", r.RunID)
	}
	if r.ModelFile != "" {
		fmt.Fprintf(b, "Model file:   %s\n", r.ModelFile)
	}
	fmt.Fprintf(b, "Objective:    %s\n", r.Objective)
	for _, c := range r.Constraints {
		fmt.Fprintf(b, "Constraint:   %s\n", c)
	}
	fmt.Fprintf(b, "%d VARIABLES (%d continuous, %d integer, %d binary)\n",
		r.Stats.Variables, r.Stats.Continuous, r.Stats.Integer, r.Stats.Binary)
	fmt.Fprintf(b, "%d LINEAR CONSTRAINTS\n", r.Stats.Linear)
	fmt.Fprintf(b, "%d INDICATOR CONSTRAINTS\n", r.Stats.Indicators)

	if len(r.Timings) > 0 {
		b.WriteString("\nBuild timings:\n")
		labels := make([]string, len(r.Timings))
		for i, t := range r.Timings {
			labels[i] = t.Label
		}
		width := maxWidth(labels)
		for _, t := range r.Timings {
			fmt.Fprintf(b, "  * %s  %.6fs\n", runewidth.FillRight(t.Label, width), t.Elapsed.Seconds())
		}
	}
}

func writeValues(b *strings.Builder, title string, values []Value) {
	fmt.Fprintf(b, "  *%s\n", title)
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.Name
	}
	width := maxWidth(names)
	for _, v := range values {
		fmt.Fprintf(b, "    * %s  %g\n", runewidth.FillRight(v.Name, width), v.Value)
	}
}

func maxWidth(names []string) int {
	width := 0
	for _, n := range names {
		width = max(width, runewidth.StringWidth(n))
	}
	return width
}

// separatorWidth follows the terminal width when w is one, capped at 100
// columns.
func separatorWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return min(width, 100)
}
