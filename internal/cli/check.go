package cli

import (
	"fmt"

	"github.com/bigdegenenergy/maker-framework/internal/assets"
	"github.com/bigdegenenergy/maker-framework/internal/config"
	"github.com/bigdegenenergy/maker-framework/internal/task"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check maker prerequisites and configuration",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	allOK := true

	check := func(label string, ok bool, hint string) {
		if ok {
			fmt.Printf("✅ %s\n", label)
		} else {
			fmt.Printf("❌ %s — %s\n", label, hint)
			allOK = false
		}
	}

	// 1. config
	cfg, cfgErr := config.Load()
	check("config loadable", cfgErr == nil, fmt.Sprintf("fix config: %v", cfgErr))
	if cfgErr == nil {
		validateErr := cfg.Validate()
		check("config valid", validateErr == nil, fmt.Sprintf("%v", validateErr))

		check(keyEnvName(cfg)+" set", cfg.APIKey() != "",
			"set environment variable "+keyEnvName(cfg))
	}

	// 2. embedded example tasks
	all, listErr := assets.ListTasks()
	check("embedded tasks readable", listErr == nil, fmt.Sprintf("%v", listErr))
	for name, content := range all {
		t, err := task.Parse([]byte(content))
		if err == nil {
			err = t.Validate()
		}
		check(fmt.Sprintf("task %q valid", name), err == nil, fmt.Sprintf("%v", err))
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed. maker is ready.")
	} else {
		fmt.Println("Some checks failed. Fix the issues above before running maker.")
	}
	return nil
}
