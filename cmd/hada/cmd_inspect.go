package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ai-research-disi/Logic-HADA/internal/milp"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var hide []string
	cmd := &cobra.Command{
		Use:   "inspect <model.json>",
		Short: "Print the variables and constraints of a saved model",
		Long: `Print the objective, variables, linear constraints and indicator
constraints of a model saved in JSON format (optionally .gz or .zst).

Use --hide to leave out variables whose name contains the given text,
together with every constraint over them, for example the per-rule
activation binaries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := milp.ReadFile(args[0])
			if err != nil {
				return err
			}
			return printModel(cmd.OutOrStdout(), m, hide)
		},
	}
	cmd.Flags().StringSliceVar(&hide, "hide", nil, "Hide names containing this text (repeatable)")
	return cmd
}

func printModel(w io.Writer, m *milp.Model, hide []string) error {
	hidden := func(name string) bool {
		for _, h := range hide {
			if h != "" && strings.Contains(name, h) {
				return true
			}
		}
		return false
	}
	// rows over hidden variables are hidden with them
	hiddenRow := func(name string, e milp.LinExpr) bool {
		if hidden(name) {
			return true
		}
		for _, t := range e.Terms {
			if hidden(t.Var.Name()) {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s\n", m.Name())
	if obj := m.Objective(); obj != nil {
		fmt.Fprintf(&b, "Objective: %s %s\n", obj.Sense, obj.Expr)
	}

	b.WriteString("\nVARIABLES\n")
	for _, v := range m.Vars() {
		if hidden(v.Name()) {
			continue
		}
		fmt.Fprintf(&b, "  %s %s [%g, %g]\n", v.Name(), v.Type(), v.LB(), v.UB())
	}

	b.WriteString("\nLINEAR CONSTRAINTS\n")
	for _, c := range m.Constraints() {
		if hiddenRow(c.Name, c.Expr) {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", c.Name, c)
	}

	b.WriteString("\nINDICATOR CONSTRAINTS\n")
	for _, ind := range m.Indicators() {
		if hiddenRow(ind.Name, ind.Constraint.Expr) || hidden(ind.Binary.Name()) {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", ind.Name, ind)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
