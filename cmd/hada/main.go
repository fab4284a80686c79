package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // A solution was found, or the command completed
	ExitNoSolution = 1 // No feasible point and --fail-on-infeasible was set
	ExitError      = 2 // Configuration, build or runtime error
)

// NoSolutionError indicates that the model was built and solved
// successfully, but the solver found no feasible assignment.
type NoSolutionError struct {
	Status string
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("no solution found (%s)", e.Status)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var noSolution *NoSolutionError
		if errors.As(err, &noSolution) {
			os.Exit(ExitNoSolution)
		}

		os.Exit(ExitError)
	}
}
