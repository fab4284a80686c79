package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hada",
		Short: "HADA - hardware dimensioning and algorithm configuration as optimization",
		Long: `HADA builds a mixed-integer model that selects the algorithm, and its
hyperparameters, that best meets user constraints on the targets predicted
by learned surrogate models.

The surrogate models enter the model as logic rules extracted from decision
trees, encoded with indicator constraints.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newSolveCommand())
	cmd.AddCommand(newBoundsCommand())
	cmd.AddCommand(newInspectCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
