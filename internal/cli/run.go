package cli

import (
	"github.com/bigdegenenergy/maker-framework/internal/source"
	"github.com/spf13/cobra"
)

var (
	runK          int
	runSteps      int
	runMaxSamples int
	runParallel   int
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:          "run <task-file|example-name>",
	Short:        "Execute a task step by step with voting",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(cmd.Context(), source.Resolve(args[0]))
	},
}

func init() {
	runCmd.Flags().IntVarP(&runK, "k", "k", 0, "Required vote lead (overrides the task file)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "Number of steps (overrides the task file)")
	runCmd.Flags().IntVar(&runMaxSamples, "max-samples", 0, "Sample budget per step")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "Concurrent samples per step")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Plain line-per-event output")
}
