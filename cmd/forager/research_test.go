package main

import (
	"testing"
	"time"

	"github.com/kestrelbio/forager/internal/config"
)

func TestApplyResearchFlags_OverridesOnlySetValues(t *testing.T) {
	cfg := &config.Config{
		Round: config.RoundConfig{
			MaxParallelTasks: 4,
			RetryBudget:      1,
			PerTaskTimeout:   30 * time.Second,
			Deadline:         2 * time.Minute,
		},
	}

	researchParallel = 8
	researchRetries = -1
	researchTaskTimeout = 0
	researchDeadline = 10 * time.Second
	t.Cleanup(func() {
		researchParallel = 0
		researchDeadline = 0
	})

	applyResearchFlags(cfg)

	if cfg.Round.MaxParallelTasks != 8 {
		t.Errorf("max parallel = %d, want 8", cfg.Round.MaxParallelTasks)
	}
	if cfg.Round.RetryBudget != 1 {
		t.Errorf("retry budget = %d, want unchanged 1", cfg.Round.RetryBudget)
	}
	if cfg.Round.PerTaskTimeout != 30*time.Second {
		t.Errorf("per-task timeout = %s, want unchanged 30s", cfg.Round.PerTaskTimeout)
	}
	if cfg.Round.Deadline != 10*time.Second {
		t.Errorf("deadline = %s, want 10s", cfg.Round.Deadline)
	}
}

func TestApplyResearchFlags_ZeroRetriesIsValidOverride(t *testing.T) {
	cfg := &config.Config{Round: config.RoundConfig{RetryBudget: 1}}

	researchRetries = 0
	t.Cleanup(func() { researchRetries = -1 })

	applyResearchFlags(cfg)
	if cfg.Round.RetryBudget != 0 {
		t.Errorf("retry budget = %d, want 0", cfg.Round.RetryBudget)
	}
}

func TestIndent(t *testing.T) {
	got := indent("first\nsecond\n", "  ")
	want := "  first\n  second"
	if got != want {
		t.Errorf("indent = %q, want %q", got, want)
	}
}
