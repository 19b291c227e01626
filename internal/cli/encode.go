package cli

import (
	"github.com/spf13/cobra"

	"github.com/macks22/ers/internal/pipeline"
)

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode the split for the factorization solver",
		Long: `Write the train/test split as sparse (student, course, grade) triples
and as libFM feature-vector files, one file pair per time encoding
(none, categorical, binary).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(opts, pipeline.StageEncode, "encode", cmd)
		},
	}

	addStageFlags(cmd, opts)
	return cmd
}
