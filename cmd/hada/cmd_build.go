package main

import (
	"github.com/ai-research-disi/Logic-HADA/internal/assembler"
	"github.com/ai-research-disi/Logic-HADA/internal/reporting"
	"github.com/spf13/cobra"
)

func newBuildCommand() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build <problem.yaml>",
		Short: "Build and save the selection model without solving it",
		Long: `Build the algorithm-selection model from a problem file and save it to the
output directory.

The problem file and its rule catalog are validated first. A build that
fails leaves no model file behind.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProblem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			// no solver: the model is only built and exported
			a := assembler.New(p.bounds, p.rules, nil, flags.options(cmd, p))
			b, err := a.Build(p.spec)
			if err != nil {
				return err
			}
			return reporting.WriteModel(cmd.OutOrStdout(), b.Report)
		},
	}
	flags.register(cmd)
	return cmd
}
