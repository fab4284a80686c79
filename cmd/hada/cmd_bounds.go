package main

import (
	"fmt"

	"github.com/ai-research-disi/Logic-HADA/internal/bounds"
	"github.com/spf13/cobra"
)

func newBoundsCommand() *cobra.Command {
	var (
		datasets string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "bounds <problem.yaml>",
		Short: "Compute variable bounds from the training datasets",
		Long: `Compute the per-algorithm and global bounds of every hyperparameter,
instance feature and target from one <ALG>_trainDataset.csv file per
algorithm, and write them as a bounds table that problem files can reference.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}
			dir := spec.Bounds.Datasets
			if cmd.Flags().Changed("datasets") {
				dir = datasets
			}
			if dir == "" {
				return fmt.Errorf("%s names no datasets directory; pass --datasets", args[0])
			}

			table, err := bounds.FromDatasets(cmd.Context(), dir, spec.Algorithms, spec.InstanceFeatures, spec.Targets)
			if err != nil {
				return err
			}
			if err := table.WriteFile(output); err != nil {
				return fmt.Errorf("writing bounds: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote bounds for %d scopes to %s\n", len(table.Scopes()), output) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().StringVar(&datasets, "datasets", "", "Directory holding <ALG>_trainDataset.csv files (default from the problem file)")
	cmd.Flags().StringVarP(&output, "output", "o", "bounds.yaml", "Bounds table to write")
	return cmd
}
