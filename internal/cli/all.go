package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// AllOptions holds flags for the all command.
type AllOptions struct {
	*StageOptions
	Splits []string // filter spec per experiment
}

// DefaultSplits are the experiments run when none are given.
var DefaultSplits = []string{"0-4", "0-7"}

// AllSummary is the success payload of the all command.
type AllSummary struct {
	Experiments []StageSummary `json:"experiments"`
	OutputDir   string         `json:"output_dir"`
}

func (s AllSummary) String() string {
	return fmt.Sprintf("✓ %d experiment(s) complete (artifacts in %s)", len(s.Experiments), s.OutputDir)
}

// NewAllCommand creates the all command.
func NewAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AllOptions{StageOptions: &StageOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run the full pipeline for each experiment split",
		Long: `Run preprocess, split, encode, solve, compare, and table for each
experiment filter spec in turn. Artifact names carry the split
parameters, so the experiments share a preprocess stage and nothing
else.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(opts, cmd)
		},
	}

	addStageFlags(cmd, opts.StageOptions)
	cmd.Flags().StringSliceVar(&opts.Splits, "splits", DefaultSplits, "filter spec per experiment")
	return cmd
}

func runAll(opts *AllOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	baseCfg, err := loadStageConfig(opts.StageOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}

	runner, closeRunner, err := newRunner(baseCfg, opts.Force)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening artifact catalog", err)
	}
	defer closeRunner()

	summary := AllSummary{OutputDir: baseCfg.OutputDir}
	for _, spec := range opts.Splits {
		cfg := baseCfg
		cfg.Filters = spec
		if _, err := cfg.ParsedFilters(); err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("experiment %q", spec), err)
		}

		plan, err := pipeline.NewPlan(cfg)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("experiment %q", spec), err)
		}
		steps := plan.Steps()

		formatter.VerboseLog("Running experiment %q (%d steps)", spec, len(steps))
		if err := runner.Run(cmd.Context(), steps); err != nil {
			_ = formatter.Error(ErrCodeStepFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("experiment %q failed", spec), err)
		}
		summary.Experiments = append(summary.Experiments, StageSummary{
			Stage:     spec,
			Steps:     len(steps),
			OutputDir: cfg.OutputDir,
		})
	}

	return formatter.Success(summary)
}
