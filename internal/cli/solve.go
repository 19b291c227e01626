package cli

import (
	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Sweep the solver over the dimension range per variant",
		Long: `Run the external libFM-style solver once per factorization dimension
for each model variant (SVD, BiasedSVD, TimeSVD, BiasedTimeSVD, BPTF,
BiasedBPTF) and record the train/test error per dimension.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(opts, pipeline.StageSolve, "solve", cmd)
		},
	}

	addStageFlags(cmd, opts)
	return cmd
}
