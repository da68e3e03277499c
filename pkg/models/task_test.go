package models

import "testing"

func TestTaskState_Valid(t *testing.T) {
	valid := []TaskState{
		TaskPending, TaskDispatched, TaskRunning,
		TaskCompleted, TaskFailed, TaskTimedOut,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}
	if TaskState("cancelled").Valid() {
		t.Error("unknown state should not be valid")
	}
}

func TestTaskState_Terminal(t *testing.T) {
	terminal := map[TaskState]bool{
		TaskPending:    false,
		TaskDispatched: false,
		TaskRunning:    false,
		TaskCompleted:  true,
		TaskFailed:     true,
		TaskTimedOut:   true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestAggregatedResult_FailedFraction(t *testing.T) {
	r := &AggregatedResult{
		Outcomes: []TaskOutcome{
			{State: TaskCompleted},
			{State: TaskTimedOut},
			{State: TaskCompleted},
		},
	}
	got := r.FailedFraction()
	want := 1.0 / 3.0
	if got != want {
		t.Errorf("FailedFraction = %v, want %v", got, want)
	}
}

func TestAggregatedResult_FailedFraction_Empty(t *testing.T) {
	r := &AggregatedResult{}
	if got := r.FailedFraction(); got != 0 {
		t.Errorf("FailedFraction on empty outcomes = %v, want 0", got)
	}
}

func TestAggregatedResult_FailedCapabilities(t *testing.T) {
	r := &AggregatedResult{
		Outcomes: []TaskOutcome{
			{Capability: CapabilityPatents, State: TaskFailed},
			{Capability: CapabilityLiterature, State: TaskCompleted},
		},
	}
	caps := r.FailedCapabilities()
	if len(caps) != 1 || caps[0] != CapabilityPatents {
		t.Errorf("FailedCapabilities = %v, want [patents]", caps)
	}
}
