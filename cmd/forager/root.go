package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kestrelbio/forager/internal/logging"
)

var verbose bool

// log is the root logger, configured before any command runs.
var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "forager",
	Short: "Multi-agent pharma research orchestrator",
	Long: `Forager answers pharmaceutical research questions by fanning a query
out to capability-specific worker agents, clinical trial registries,
biomedical literature, patent filings, and LLM-backed deep research,
then fusing their ranked findings into a single deduplicated result
with an overall confidence score.

A round always returns whatever evidence was gathered: agents that
fail or time out reduce confidence, they never block the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logging.New(os.Stderr, verbose)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
