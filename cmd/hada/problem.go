package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ai-research-disi/Logic-HADA/internal/assembler"
	"github.com/ai-research-disi/Logic-HADA/internal/bounds"
	"github.com/ai-research-disi/Logic-HADA/internal/catalog"
	"github.com/ai-research-disi/Logic-HADA/internal/models"
	"github.com/ai-research-disi/Logic-HADA/internal/projectconfig"
	"github.com/ai-research-disi/Logic-HADA/internal/solver"
	"github.com/ai-research-disi/Logic-HADA/internal/validation"
	"github.com/spf13/cobra"
)

// problem is a validated problem file with its collaborators loaded.
type problem struct {
	path   string
	spec   *models.ProblemSpec
	config *projectconfig.ProjectConfig
	bounds *bounds.Table
	rules  *catalog.Catalog
}

// loadSpec validates the problem file and its rule catalog against their
// schemas, then decodes the problem.
func loadSpec(path string) (*models.ProblemSpec, error) {
	problemErrs, rulesErrs, err := validation.ValidateProblemFile(path)
	if err != nil {
		return nil, err
	}
	if err := validation.Error(path, problemErrs); err != nil {
		return nil, err
	}
	files := make([]string, 0, len(rulesErrs))
	for file := range rulesErrs {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		if err := validation.Error(file, rulesErrs[file]); err != nil {
			return nil, err
		}
	}
	return models.LoadProblemSpec(path)
}

// loadProblem loads a validated problem with its bounds, rules and the
// project configuration.
func loadProblem(ctx context.Context, path string) (*problem, error) {
	spec, err := loadSpec(path)
	if err != nil {
		return nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := projectconfig.Load(wd)
	if err != nil {
		return nil, err
	}

	table, err := loadBounds(ctx, spec)
	if err != nil {
		return nil, err
	}
	rules, err := catalog.Load(spec.Rules)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded problem", "path", path, "algorithms", len(spec.Algorithms), "scopes", len(table.Scopes()))
	return &problem{path: path, spec: spec, config: cfg, bounds: table, rules: rules}, nil
}

// loadBounds reads the bounds table, or derives it from the training
// datasets when the problem names a datasets directory.
func loadBounds(ctx context.Context, spec *models.ProblemSpec) (*bounds.Table, error) {
	if spec.Bounds.Datasets != "" {
		return bounds.FromDatasets(ctx, spec.Bounds.Datasets, spec.Algorithms, spec.InstanceFeatures, spec.Targets)
	}
	return bounds.LoadFile(spec.Bounds.File)
}

// buildFlags are the model construction flags shared by build and solve.
type buildFlags struct {
	outputDir        string
	name             string
	format           string
	runID            string
	enableVarType    bool
	strictPartitions bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for the model file and logs (default from .hada.yaml)")
	cmd.Flags().StringVar(&f.name, "name", "", "Model name (default: problem name or EML_model_<timestamp>)")
	cmd.Flags().StringVar(&f.format, "format", "", "Model file format: lp, json, optionally with .gz or .zst")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier recorded in the logs (default: random UUID)")
	cmd.Flags().BoolVar(&f.enableVarType, "enable-var-type", false, "Add integer shadow variables for int hyperparameters")
	cmd.Flags().BoolVar(&f.strictPartitions, "strict-partitions", false, "Fail when rule ranges overlap or leave gaps")
}

// options resolves the build options. Flags win over the problem file, which
// wins over .hada.yaml.
func (f *buildFlags) options(cmd *cobra.Command, p *problem) assembler.Options {
	cfg := p.config
	opts := assembler.Options{
		ModelName: f.name,
		OutputDir: cfg.Paths.Output,
		Format:    cfg.Build.Format,
		RunID:     f.runID,
	}
	if cmd.Flags().Changed("output-dir") {
		opts.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("format") {
		opts.Format = f.format
	}

	switch {
	case cmd.Flags().Changed("enable-var-type"):
		opts.EnableVarType = &f.enableVarType
	case p.spec.EnableVarType == nil:
		opts.EnableVarType = cfg.Build.EnableVarType
	}

	opts.StrictPartitions = cfg.Build.StrictPartitions != nil && *cfg.Build.StrictPartitions
	if cmd.Flags().Changed("strict-partitions") {
		opts.StrictPartitions = f.strictPartitions
	}
	return opts
}

// solveSettings resolves the time limit and engine options of a solve.
func solveSettings(timeLimitSec int, changed bool, p *problem) (time.Duration, solver.Options, error) {
	var limit time.Duration
	switch {
	case changed:
		limit = time.Duration(timeLimitSec) * time.Second
	case p.spec.Solver.TimeLimitSec == 0 && p.config.Solver.TimeLimit > 0:
		limit = time.Duration(p.config.Solver.TimeLimit) * time.Second
	}

	raw := make(map[string]any)
	maps.Copy(raw, p.config.Solver.Options)
	maps.Copy(raw, p.spec.Solver.Options)
	opts, err := solver.DecodeOptions(raw)
	if err != nil {
		return 0, solver.Options{}, err
	}
	return limit, opts, nil
}

// logPath places name under dir unless it is absolute.
func logPath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
