package cli

import (
	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Partition the dataset into train and test sets",
		Long: `Split the preprocessed dataset by cohort/term filters into train and
test record tables, stripping withdrawals and other nongrades from the
test side and backfilling cold-start students and courses into train.

Filter specs take the form "A-B", "A-B:C-D", or "A:C", where A-B bounds
the cohort and C-D bounds the term number.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(opts, pipeline.StageSplit, "split", cmd)
		},
	}

	addStageFlags(cmd, opts)
	return cmd
}
