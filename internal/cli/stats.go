package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bigdegenenergy/maker-framework/internal/run"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cost and run statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	runsDir := filepath.Join(".maker", "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No runs found.")
			return nil
		}
		return fmt.Errorf("reading runs dir: %w", err)
	}

	type runStat struct {
		id   string
		meta *run.Meta
	}

	var stats []runStat
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "latest" {
			continue
		}
		meta, err := run.ReadMeta(filepath.Join(runsDir, e.Name()))
		if err != nil {
			continue
		}
		stats = append(stats, runStat{id: e.Name(), meta: meta})
	}

	if len(stats) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Sort by started_at descending
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].meta.StartedAt.After(stats[j].meta.StartedAt)
	})

	var totalCost float64
	var totalSamples, totalFlagged int
	byStatus := map[string]int{}
	for _, s := range stats {
		totalCost += s.meta.TotalCost
		totalSamples += s.meta.TotalSamples
		totalFlagged += s.meta.TotalFlagged
		byStatus[s.meta.Status]++
	}

	fmt.Printf("Runs: %d total, %d completed, %d interrupted, %d stalled, %d failed\n",
		len(stats), byStatus["completed"], byStatus["interrupted"], byStatus["stalled"], byStatus["failed"])
	fmt.Printf("Samples: %d total, %d flagged\n", totalSamples, totalFlagged)
	fmt.Printf("Total cost: $%.4f\n", totalCost)
	fmt.Printf("Average cost: $%.4f\n", totalCost/float64(len(stats)))
	fmt.Println()
	fmt.Printf("%-44s %-12s %-7s %-9s %s\n", "Run ID", "Status", "Steps", "Samples", "Cost")
	fmt.Println(strings.Repeat("─", 84))
	for _, s := range stats {
		fmt.Printf("%-44s %-12s %3d/%-3d %-9d $%.4f\n",
			s.id, s.meta.Status, s.meta.StepsCompleted, s.meta.TotalSteps,
			s.meta.TotalSamples, s.meta.TotalCost)
	}
	return nil
}
