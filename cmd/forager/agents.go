package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelbio/forager/internal/config"
	"github.com/kestrelbio/forager/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List worker agents and their availability",
	Long: `List the worker agents forager can dispatch to, and whether each
one is currently available given the configuration and manifest.`,
	RunE: runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry, _, err := buildRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	enabled := make(map[models.Capability]bool)
	for _, c := range registry.Capabilities() {
		enabled[c] = true
	}

	all := []models.Capability{
		models.CapabilityClinicalTrials,
		models.CapabilityLiterature,
		models.CapabilityPatents,
		models.CapabilityDeepResearch,
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	good := color.New(color.FgGreen)
	dim := color.New(color.Faint)
	for _, c := range all {
		fmt.Printf("  %-18s ", c)
		switch {
		case enabled[c]:
			good.Println("enabled")
		case c == models.CapabilityDeepResearch && cfg.Anthropic.APIKey == "":
			dim.Println("unavailable (no Anthropic API key)")
		default:
			dim.Println("disabled")
		}
	}
	return nil
}
