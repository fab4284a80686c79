package main

import (
	"fmt"
	"os"

	"github.com/ai-research-disi/Logic-HADA/internal/assembler"
	"github.com/ai-research-disi/Logic-HADA/internal/reporting"
	"github.com/ai-research-disi/Logic-HADA/internal/solver"
	"github.com/ai-research-disi/Logic-HADA/internal/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var phaseMessages = map[string]string{
	assembler.MarkerModelCreated: "Creating variables...",
	assembler.MarkerVariables:    "Encoding rules...",
	assembler.MarkerRules:        "Adding user constraints...",
	assembler.MarkerConstraints:  "Building objective...",
	assembler.MarkerObjective:    "Saving model...",
}

func newSolveCommand() *cobra.Command {
	var (
		flags        buildFlags
		timeLimitSec int
		noLogs       bool
		failNoSol    bool
	)
	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Build, save and solve the selection model",
		Long: `Build the algorithm-selection model from a problem file, save it, solve it
and print the chosen algorithm with every variable value.

Each run appends one timing row and one solution row to the CSV logs in the
output directory. The command exits with status 1 when no feasible solution
exists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProblem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if timeLimitSec < 0 {
				return fmt.Errorf("--time-limit must not be negative, got %d", timeLimitSec)
			}
			limit, solverOpts, err := solveSettings(timeLimitSec, cmd.Flags().Changed("time-limit"), p)
			if err != nil {
				return err
			}

			opts := flags.options(cmd, p)
			opts.TimeLimit = limit
			if !noLogs {
				opts.TimeLog = logPath(opts.OutputDir, p.config.Paths.TimeLog)
				opts.SolutionLog = logPath(opts.OutputDir, p.config.Paths.SolutionLog)
			}

			var options []assembler.Option
			if f, ok := cmd.ErrOrStderr().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				spin := spinner.Start(f, "Building model...")
				defer spin.Stop()
				options = append(options, assembler.WithProgressListener(func(e assembler.ProgressEvent) {
					switch e.EventType {
					case assembler.EventPhase:
						if msg, ok := phaseMessages[e.Phase]; ok {
							spin.Update(msg)
						}
					case assembler.EventSolveStart:
						spin.Update("Solving...")
					case assembler.EventSolveFinish:
						spin.Stop()
					}
				}))
			}

			a := assembler.New(p.bounds, p.rules, solver.NewBranchAndBound(solverOpts), opts, options...)
			report, err := a.Run(cmd.Context(), p.spec)
			if err != nil {
				return err
			}
			if err := reporting.Write(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Solved && failNoSol {
				return &NoSolutionError{Status: string(report.Status)}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&timeLimitSec, "time-limit", 0, "Solver time limit in seconds (default from the problem file or .hada.yaml)")
	cmd.Flags().BoolVar(&noLogs, "no-logs", false, "Do not append to the time and solution CSV logs")
	cmd.Flags().BoolVar(&failNoSol, "fail-on-infeasible", false, "Exit with status 1 when the solver finds no solution")
	return cmd
}
