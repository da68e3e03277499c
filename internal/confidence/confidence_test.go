package confidence

import (
	"math"
	"testing"

	"github.com/kestrelbio/forager/pkg/models"
)

func entry(key string, caps []string, confs ...float64) models.FusedEntry {
	return models.FusedEntry{Key: key, Sources: caps, Capabilities: caps, Confidences: confs}
}

func TestScore_EmptyFusedIsZero(t *testing.T) {
	s := New(10)
	got := s.Score(nil, []models.TaskOutcome{{State: models.TaskCompleted}})
	if got != 0 {
		t.Errorf("Score = %v, want 0 for empty fused list", got)
	}
}

func TestScore_MeanOfSourceConfidences(t *testing.T) {
	s := New(10)
	fused := []models.FusedEntry{
		entry("x", []string{"deep-research"}, 0.8),
		entry("y", []string{"deep-research"}, 0.6),
	}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityDeepResearch, State: models.TaskCompleted},
	}

	got := s.Score(fused, outcomes)
	if math.Abs(got-0.7) > 1e-12 {
		t.Errorf("Score = %v, want 0.7 (mean of 0.8, 0.6, no failures)", got)
	}
}

func TestScore_FallbackCorroborationBreadth(t *testing.T) {
	s := New(10)
	// Two of three tasks completed and contributed; no confidences anywhere.
	fused := []models.FusedEntry{
		entry("x", []string{"clinical-trials"}),
		entry("y", []string{"literature"}),
	}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityClinicalTrials, State: models.TaskCompleted},
		{Capability: models.CapabilityLiterature, State: models.TaskCompleted},
		{Capability: models.CapabilityPatents, State: models.TaskTimedOut},
	}

	// Base 2/3, penalty factor (1 - 0.5*(1/3)) = 5/6.
	want := (2.0 / 3.0) * (5.0 / 6.0)
	got := s.Score(fused, outcomes)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScore_FailurePenalty(t *testing.T) {
	s := New(10)
	fused := []models.FusedEntry{entry("x", []string{"deep-research"}, 1.0)}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityDeepResearch, State: models.TaskCompleted},
		{Capability: models.CapabilityPatents, State: models.TaskFailed},
	}

	// Base 1.0, half the tasks failed: 1.0 * (1 - 0.5*0.5) = 0.75.
	got := s.Score(fused, outcomes)
	if math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Score = %v, want 0.75", got)
	}
}

func TestScore_OneThirdFailedPenalty(t *testing.T) {
	s := New(10)
	// Three capabilities, one timed out, the two survivors contributed
	// disjoint single-item lists with no source confidences.
	fused := []models.FusedEntry{
		entry("x", []string{"clinical-trials"}),
		entry("y", []string{"patents"}),
	}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityClinicalTrials, State: models.TaskCompleted},
		{Capability: models.CapabilityLiterature, State: models.TaskTimedOut},
		{Capability: models.CapabilityPatents, State: models.TaskCompleted},
	}

	want := (2.0 / 3.0) * (1 - 0.5/3.0)
	got := s.Score(fused, outcomes)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScore_BreadthMatchesCapabilityNotAgentName(t *testing.T) {
	s := New(10)
	// The contributing agent is named differently from its capability tag;
	// breadth must still credit the completed literature task.
	fused := []models.FusedEntry{
		{Key: "x", Sources: []string{"pubmed"}, Capabilities: []string{"literature"}},
	}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityLiterature, State: models.TaskCompleted},
	}

	got := s.Score(fused, outcomes)
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScore_TopNLimitsConsideredEntries(t *testing.T) {
	s := New(1)
	fused := []models.FusedEntry{
		entry("x", []string{"deep-research"}, 1.0),
		entry("y", []string{"deep-research"}, 0.0),
	}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityDeepResearch, State: models.TaskCompleted},
	}

	// Only the top entry's confidence counts with topN=1.
	got := s.Score(fused, outcomes)
	if got != 1.0 {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScore_Clamped(t *testing.T) {
	s := New(10)
	fused := []models.FusedEntry{entry("x", []string{"deep-research"}, 1.0)}
	outcomes := []models.TaskOutcome{
		{Capability: models.CapabilityDeepResearch, State: models.TaskCompleted},
	}
	got := s.Score(fused, outcomes)
	if got < 0 || got > 1 {
		t.Errorf("Score = %v, out of [0,1]", got)
	}
}

func TestNew_DefaultsTopN(t *testing.T) {
	if New(0).TopN() != DefaultTopN {
		t.Errorf("topN should default to %d", DefaultTopN)
	}
}
