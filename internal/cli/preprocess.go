package cli

import (
	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// NewPreprocessCommand creates the preprocess command.
func NewPreprocessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean raw enrollment records into the dense-id dataset",
		Long: `Build the dense id maps from the raw course records, fill quality
points from letter grades, derive student cohorts from admissions, and
substitute natural keys with dense ids. Writes the id-map files and the
preprocessed dataset.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(opts, pipeline.StagePreprocess, "preprocess", cmd)
		},
	}

	addStageFlags(cmd, opts)
	return cmd
}
