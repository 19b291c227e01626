package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/artifact"
	"github.com/macks22/ers/internal/config"
	"github.com/macks22/ers/internal/pipeline"
)

// StageOptions holds the flags shared by every stage command.
type StageOptions struct {
	*RootOptions
	Force   bool
	Filters string // override for the configured filter specs
}

func addStageFlags(cmd *cobra.Command, opts *StageOptions) {
	cmd.Flags().BoolVar(&opts.Force, "force", false, "re-run steps even when outputs are up to date")
	cmd.Flags().StringVar(&opts.Filters, "filters", "", "cohort filter specs, space separated (overrides config)")
}

// StageSummary is the success payload of a stage command.
type StageSummary struct {
	Stage     string `json:"stage"`
	Steps     int    `json:"steps"`
	OutputDir string `json:"output_dir"`
}

func (s StageSummary) String() string {
	return fmt.Sprintf("✓ %s complete (%d step(s), artifacts in %s)", s.Stage, s.Steps, s.OutputDir)
}

// loadStageConfig loads the configuration and applies command-line
// overrides, revalidating afterwards.
func loadStageConfig(opts *StageOptions) (config.Config, error) {
	var cfg config.Config
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if opts.Filters != "" {
		cfg.Filters = opts.Filters
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return config.Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return cfg, nil
}

// newRunner builds the step runner, backed by the artifact catalog
// when one is configured. The returned func releases the catalog.
func newRunner(cfg config.Config, force bool) (*pipeline.Runner, func(), error) {
	runner := &pipeline.Runner{Force: force}
	if cfg.CatalogPath == "" {
		return runner, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0o755); err != nil {
		return nil, nil, err
	}
	catalog, err := artifact.Open(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	runner.Catalog = catalog
	return runner, func() { catalog.Close() }, nil
}

// runStage runs the pipeline chain through the given stage.
func runStage(opts *StageOptions, stage pipeline.Stage, stageName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadStageConfig(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}

	plan, err := pipeline.NewPlan(cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "building pipeline plan", err)
	}
	steps := plan.StepsThrough(stage)

	runner, closeRunner, err := newRunner(cfg, opts.Force)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening artifact catalog", err)
	}
	defer closeRunner()

	formatter.VerboseLog("Running %d step(s) through stage %s", len(steps), stageName)
	if err := runner.Run(cmd.Context(), steps); err != nil {
		_ = formatter.Error(ErrCodeStepFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, stageName+" failed", err)
	}

	return formatter.Success(StageSummary{
		Stage:     stageName,
		Steps:     len(steps),
		OutputDir: cfg.OutputDir,
	})
}
