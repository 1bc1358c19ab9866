package cli

import (
	"fmt"

	"github.com/bigdegenenergy/maker-framework/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "maker",
	Short: "Error-corrected step execution over unreliable generative models",
	Long: `maker executes a long task as a chain of micro-steps, resolving each step
by sampling a generative model until one candidate action is ahead of every
other by k votes. Red-flagged responses are discarded and resampled.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("maker %s\n", version.Version)
	},
}
