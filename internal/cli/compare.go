package cli

import (
	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Merge per-variant results into a leaderboard",
		Long: `Take the top results per variant by test error and merge them into a
single leaderboard sorted by test error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(opts, pipeline.StageCompare, "compare", cmd)
		},
	}

	addStageFlags(cmd, opts)
	return cmd
}
