package bounds

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ai-research-disi/Logic-HADA/internal/dataset"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DatasetFile is the training dataset name of an algorithm inside the
// datasets directory.
func DatasetFile(alg string) string { return alg + "_trainDataset.csv" }

// FromDatasets computes bounds from one training dataset per algorithm.
// Each algorithm scope gets the min and max of its hyperparameters, the
// instance features and the ML targets; the global scope is their union.
//
// An instance feature named <base>_mean or <base>_std that is not a column
// itself is computed per row from a vector column named <base> or
// <base>(<unit>) holding values such as "[1.5 2 3.25]".
func FromDatasets(ctx context.Context, dir string, algs []models.AlgorithmSpec, features, targets []string) (*Table, error) {
	scopes := make([]map[string]Range, len(algs))

	g, gctx := errgroup.WithContext(ctx)
	for i, alg := range algs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cols := make([]string, 0, len(alg.Params)+len(features)+len(targets))
			for _, p := range alg.Params {
				cols = append(cols, p.Name)
			}
			cols = append(cols, features...)
			cols = append(cols, targets...)

			path := filepath.Join(dir, DatasetFile(alg.Name))
			rows, err := dataset.LoadCSV(path)
			if err != nil {
				return fmt.Errorf("algorithm %s: %w", alg.Name, err)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := columnRanges(rows, cols)
			if err != nil {
				return fmt.Errorf("algorithm %s: %s: %w", alg.Name, path, err)
			}
			slog.Debug("Loaded dataset bounds", "algorithm", alg.Name, "rows", len(rows), "columns", len(cols))
			scopes[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := NewTable()
	for i, alg := range algs {
		for name, r := range scopes[i] {
			t.Set(alg.Name, name, r)
		}
	}
	t.DeriveGlobal()
	return t, nil
}

// columnRanges computes min and max of each requested column. Rows that
// repeat the header (a cell equal to its column name) are skipped.
func columnRanges(rows []dataset.Row, cols []string) (map[string]Range, error) {
	out := make(map[string]Range, len(cols))
	for _, row := range rows {
		if isHeaderRow(row) {
			continue
		}
		for _, col := range cols {
			v, err := cellValue(row, col)
			if err != nil {
				return nil, err
			}
			r, ok := out[col]
			if !ok {
				out[col] = Range{Lower: v, Upper: v}
				continue
			}
			out[col] = Range{Lower: math.Min(r.Lower, v), Upper: math.Max(r.Upper, v)}
		}
	}
	for _, col := range cols {
		if _, ok := out[col]; !ok {
			return nil, fmt.Errorf("%w: no data rows for %q", ErrMissingBounds, col)
		}
	}
	return out, nil
}

func isHeaderRow(row dataset.Row) bool {
	for k, v := range row {
		if k == v {
			return true
		}
	}
	return false
}

func cellValue(row dataset.Row, col string) (float64, error) {
	if s, ok := row[col]; ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", col, err)
		}
		return v, nil
	}

	base, kind, ok := splitStat(col)
	if !ok {
		return 0, fmt.Errorf("%w: column %q not in dataset", ErrMissingBounds, col)
	}
	raw, ok := vectorColumn(row, base)
	if !ok {
		return 0, fmt.Errorf("%w: no column %q or vector column for %q", ErrMissingBounds, col, base)
	}
	values, err := parseVector(raw)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	m, sd := stat.PopMeanStdDev(values, nil)
	if kind == "mean" {
		return m, nil
	}
	return sd, nil
}

func splitStat(col string) (base, kind string, ok bool) {
	i := strings.LastIndex(col, "_")
	if i <= 0 {
		return "", "", false
	}
	base, kind = col[:i], col[i+1:]
	return base, kind, kind == "mean" || kind == "std"
}

func vectorColumn(row dataset.Row, base string) (string, bool) {
	if s, ok := row[base]; ok {
		return s, true
	}
	for k, v := range row {
		if strings.HasPrefix(k, base+"(") {
			return v, true
		}
	}
	return "", false
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Fields(strings.Trim(strings.TrimSpace(s), "[]"))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector %q", s)
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSuffix(f, ","), 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
