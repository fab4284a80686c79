package reporting

import (
	"strconv"
	"strings"

	"github.com/ai-research-disi/Logic-HADA/internal/dataset"
)

// AppendTimeLog appends one header row and one value row to the timing log.
// Values are seconds since the build started, followed by the solver's own
// time.
func AppendTimeLog(path string, r *Report) error {
	labels := []string{"run_id"}
	values := []string{r.RunID}
	for _, t := range r.Timings {
		labels = append(labels, t.Label)
		values = append(values, formatSeconds(t.Elapsed.Seconds()))
	}
	labels = append(labels, "solver_time(sol)")
	values = append(values, formatSeconds(r.SolveTime.Seconds()))
	return dataset.AppendRecords(path, labels, values)
}

// AppendSolutionLog appends one header row and one value row to the solution
// log. Variable values are written only when a solution exists.
func AppendSolutionLog(path string, r *Report) error {
	labels := []string{"run_id", "objective", "constraints", "model_file", "status"}
	values := []string{r.RunID, r.Objective, "[" + strings.Join(r.Constraints, ", ") + "]", r.ModelFile, r.StatusText()}
	if r.Solved {
		labels = append(labels, "time")
		values = append(values, strconv.FormatFloat(r.SolveTime.Seconds(), 'f', 2, 64))
		for _, group := range [][]Value{r.Continuous, r.Integer} {
			for _, v := range group {
				labels = append(labels, v.Name)
				values = append(values, strconv.FormatFloat(v.Value, 'g', -1, 64))
			}
		}
	}
	return dataset.AppendRecords(path, labels, values)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}
