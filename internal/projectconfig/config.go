// Package projectconfig provides the ProjectConfig struct and loader for
// .hada.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".hada.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultOutputDir    = "EML_results/"
	DefaultTimeLimitSec = 20000
	DefaultFormat       = "lp"

	DefaultTimeLog     = "time_logs.csv"
	DefaultSolutionLog = "sol_logs.csv"
)

// PathsConfig holds output locations.
type PathsConfig struct {
	Output      string `yaml:"output,omitempty"`
	TimeLog     string `yaml:"time_log,omitempty"`
	SolutionLog string `yaml:"solution_log,omitempty"`
}

// BuildConfig holds model construction settings.
type BuildConfig struct {
	// Format is the export format, optionally with a compression suffix
	// (lp, json, lp.zst, json.gz...).
	Format           string `yaml:"format,omitempty"`
	EnableVarType    *bool  `yaml:"enable_var_type,omitempty"`
	StrictPartitions *bool  `yaml:"strict_partitions,omitempty"`
}

// SolverConfig holds solve settings.
type SolverConfig struct {
	TimeLimit int            `yaml:"time_limit,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .hada.yaml.
type ProjectConfig struct {
	Paths  PathsConfig  `yaml:"paths,omitempty"`
	Build  BuildConfig  `yaml:"build,omitempty"`
	Solver SolverConfig `yaml:"solver,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Output:      DefaultOutputDir,
			TimeLog:     DefaultTimeLog,
			SolutionLog: DefaultSolutionLog,
		},
		Build: BuildConfig{
			Format:           DefaultFormat,
			EnableVarType:    boolPtr(false),
			StrictPartitions: boolPtr(false),
		},
		Solver: SolverConfig{
			TimeLimit: DefaultTimeLimitSec,
		},
	}
}

// Load finds .hada.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .hada.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Output != "" {
		dst.Paths.Output = src.Paths.Output
	}
	if src.Paths.TimeLog != "" {
		dst.Paths.TimeLog = src.Paths.TimeLog
	}
	if src.Paths.SolutionLog != "" {
		dst.Paths.SolutionLog = src.Paths.SolutionLog
	}

	if src.Build.Format != "" {
		dst.Build.Format = src.Build.Format
	}
	if src.Build.EnableVarType != nil {
		dst.Build.EnableVarType = src.Build.EnableVarType
	}
	if src.Build.StrictPartitions != nil {
		dst.Build.StrictPartitions = src.Build.StrictPartitions
	}

	if src.Solver.TimeLimit != 0 {
		dst.Solver.TimeLimit = src.Solver.TimeLimit
	}
	if src.Solver.Options != nil {
		dst.Solver.Options = src.Solver.Options
	}
}

func boolPtr(b bool) *bool {
	return &b
}
