package tracker

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kestrelbio/forager/pkg/models"
)

func newTask(id string) *models.Task {
	return &models.Task{
		ID:         id,
		Capability: models.CapabilityLiterature,
		State:      models.TaskPending,
	}
}

func TestTracker_HappyPath(t *testing.T) {
	tr := New(1, zerolog.Nop())
	if err := tr.Add(newTask("t1")); err != nil {
		t.Fatal(err)
	}

	for _, s := range []models.TaskState{models.TaskDispatched, models.TaskRunning, models.TaskCompleted} {
		if err := tr.Transition("t1", s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}

	if !tr.AllSettled() {
		t.Error("completed task should settle the round")
	}
}

func TestTracker_IllegalTransitions(t *testing.T) {
	tr := New(1, zerolog.Nop())
	_ = tr.Add(newTask("t1"))

	// Cannot run before dispatch.
	if err := tr.Transition("t1", models.TaskRunning); err == nil {
		t.Error("pending -> running should be illegal")
	}

	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)
	_ = tr.Transition("t1", models.TaskCompleted)

	// Completed is terminal.
	if err := tr.Transition("t1", models.TaskRunning); err == nil {
		t.Error("completed -> running should be illegal")
	}
}

func TestTracker_AddRequiresPending(t *testing.T) {
	tr := New(1, zerolog.Nop())
	task := newTask("t1")
	task.State = models.TaskRunning
	if err := tr.Add(task); err == nil {
		t.Error("adding a non-pending task should fail")
	}
}

func TestTracker_RetryOnFailure(t *testing.T) {
	tr := New(1, zerolog.Nop())
	_ = tr.Add(newTask("t1"))
	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)

	retried, err := tr.MarkFailed("t1", errors.New("boom"))
	if err != nil {
		t.Fatal(err)
	}
	if !retried {
		t.Fatal("first failure should be retried with budget 1")
	}

	state, _ := tr.State("t1")
	if state != models.TaskPending {
		t.Errorf("state after retry = %s, want pending", state)
	}
	if tr.Retries("t1") != 1 {
		t.Errorf("retries = %d, want 1", tr.Retries("t1"))
	}

	// Second failure exhausts the budget.
	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)
	retried, err = tr.MarkFailed("t1", errors.New("boom again"))
	if err != nil {
		t.Fatal(err)
	}
	if retried {
		t.Error("second failure should be terminal")
	}
	state, _ = tr.State("t1")
	if state != models.TaskFailed {
		t.Errorf("state = %s, want failed", state)
	}
}

func TestTracker_ZeroBudgetNoRetry(t *testing.T) {
	tr := New(0, zerolog.Nop())
	_ = tr.Add(newTask("t1"))
	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)

	retried, _ := tr.MarkTimedOut("t1", errors.New("deadline"))
	if retried {
		t.Error("zero budget should never retry")
	}
	state, _ := tr.State("t1")
	if state != models.TaskTimedOut {
		t.Errorf("state = %s, want timed_out", state)
	}
}

func TestTracker_FailPermanently(t *testing.T) {
	tr := New(3, zerolog.Nop())
	_ = tr.Add(newTask("t1"))

	if err := tr.FailPermanently("t1", errors.New("no agent registered")); err != nil {
		t.Fatal(err)
	}
	state, _ := tr.State("t1")
	if state != models.TaskFailed {
		t.Errorf("state = %s, want failed", state)
	}
	if tr.Retries("t1") != 0 {
		t.Error("permanent failure must not consume retries")
	}
}

func TestTracker_AbandonIgnoresBudget(t *testing.T) {
	tr := New(5, zerolog.Nop())
	_ = tr.Add(newTask("t1"))
	_ = tr.Add(newTask("t2"))
	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)

	tr.AbandonUnsettled(errors.New("round deadline"))

	for _, id := range []string{"t1", "t2"} {
		state, _ := tr.State(id)
		if state != models.TaskTimedOut {
			t.Errorf("task %s state = %s, want timed_out", id, state)
		}
		if tr.Retries(id) != 0 {
			t.Errorf("task %s consumed retries on abandon", id)
		}
	}
	if !tr.AllSettled() {
		t.Error("all tasks should be settled after abandon")
	}
}

func TestTracker_AbandonTerminalIsNoop(t *testing.T) {
	tr := New(1, zerolog.Nop())
	_ = tr.Add(newTask("t1"))
	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)
	_ = tr.Transition("t1", models.TaskCompleted)

	if err := tr.Abandon("t1", errors.New("deadline")); err != nil {
		t.Fatal(err)
	}
	state, _ := tr.State("t1")
	if state != models.TaskCompleted {
		t.Errorf("abandon must not overwrite completed, got %s", state)
	}
}

func TestTracker_Outcomes(t *testing.T) {
	tr := New(0, zerolog.Nop())
	_ = tr.Add(newTask("t1"))
	_ = tr.Add(newTask("t2"))

	_ = tr.Transition("t1", models.TaskDispatched)
	_ = tr.Transition("t1", models.TaskRunning)
	_ = tr.Transition("t1", models.TaskCompleted)
	_ = tr.Transition("t2", models.TaskDispatched)
	_ = tr.Transition("t2", models.TaskRunning)
	_, _ = tr.MarkFailed("t2", errors.New("boom"))

	outcomes := tr.Outcomes(map[string]int{"t1": 3})
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].TaskID != "t1" || outcomes[1].TaskID != "t2" {
		t.Error("outcomes should preserve creation order")
	}
	if outcomes[0].State != models.TaskCompleted || outcomes[0].EvidenceCount != 3 {
		t.Errorf("t1 outcome = %+v", outcomes[0])
	}
	if outcomes[1].State != models.TaskFailed || outcomes[1].Error == "" {
		t.Errorf("t2 outcome = %+v", outcomes[1])
	}
}
