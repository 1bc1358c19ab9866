package cli

import (
	"fmt"
	"sort"

	"github.com/bigdegenenergy/maker-framework/internal/assets"
	"github.com/bigdegenenergy/maker-framework/internal/task"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the embedded example tasks",
	RunE:  runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	all, err := assets.ListTasks()
	if err != nil {
		return fmt.Errorf("loading embedded tasks: %w", err)
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-12s %-4s %-6s %s\n", "Name", "k", "Steps", "Description")
	for _, name := range names {
		t, err := task.Parse([]byte(all[name]))
		if err != nil {
			fmt.Printf("%-12s (unparsable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-12s %-4d %-6d %s\n", name, t.K, t.TotalSteps, t.Description)
	}
	fmt.Println("\nRun one with: maker run <name>")
	return nil
}
