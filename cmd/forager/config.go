package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrelbio/forager/internal/config"
	"github.com/kestrelbio/forager/internal/state"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: fmt.Sprintf(`Display the effective configuration after merging defaults, the
config file, and FORAGER_* environment variables.

The config file lives at %s.`, filepath.Join(config.ConfigDir(), "config.yaml")),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		apiKey := "(not set)"
		if cfg.Anthropic.APIKey != "" {
			apiKey = "****"
		}
		model := cfg.Anthropic.Model
		if model == "" {
			model = "(default)"
		}
		dbPath := cfg.State.DBPath
		if dbPath == "" {
			dbPath = state.DefaultDBPath()
		}
		manifest := cfg.Agents.Manifest
		if manifest == "" {
			manifest = "(none)"
		}

		fmt.Printf("round.max_parallel_tasks: %d\n", cfg.Round.MaxParallelTasks)
		fmt.Printf("round.retry_budget: %d\n", cfg.Round.RetryBudget)
		fmt.Printf("round.per_task_timeout: %s\n", cfg.Round.PerTaskTimeout)
		fmt.Printf("round.deadline: %s\n", cfg.Round.Deadline)
		fmt.Printf("fusion.rrf_k: %d\n", cfg.Fusion.K)
		fmt.Printf("confidence.top_n: %d\n", cfg.Confidence.TopN)
		fmt.Printf("agents.manifest: %s\n", manifest)
		fmt.Printf("agents.max_results: %d\n", cfg.Agents.MaxResults)
		fmt.Printf("anthropic.api_key: %s\n", apiKey)
		fmt.Printf("anthropic.model: %s\n", model)
		fmt.Printf("state.db_path: %s\n", dbPath)
		return nil
	},
}
