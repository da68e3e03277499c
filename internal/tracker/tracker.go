// Package tracker owns the lifecycle of dispatched tasks within a round.
// It is the only component that mutates task state; transitions are
// validated against the legal transition table and retries are bounded.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelbio/forager/pkg/models"
)

// DefaultRetryBudget is the default number of retries per task.
const DefaultRetryBudget = 1

// legalTransitions maps each state to the states reachable from it.
// Retry is not listed here; it is a distinct operation that resets a
// Failed or TimedOut task to Pending while budget remains.
var legalTransitions = map[models.TaskState][]models.TaskState{
	models.TaskPending:    {models.TaskDispatched, models.TaskFailed, models.TaskTimedOut},
	models.TaskDispatched: {models.TaskRunning, models.TaskTimedOut},
	models.TaskRunning:    {models.TaskCompleted, models.TaskFailed, models.TaskTimedOut},
	models.TaskCompleted:  {},
	models.TaskFailed:     {},
	models.TaskTimedOut:   {},
}

// Tracker is the per-round task state machine. All state is scoped to
// one round and discarded with the tracker when the round's result is
// emitted.
type Tracker struct {
	tasks       map[string]*models.Task
	order       []string
	dispatched  map[string]time.Time
	settled     map[string]time.Time
	retryBudget int
	log         zerolog.Logger
	mu          sync.RWMutex
}

// New creates a tracker with the given retry budget.
// A negative budget is treated as zero.
func New(retryBudget int, log zerolog.Logger) *Tracker {
	if retryBudget < 0 {
		retryBudget = 0
	}
	return &Tracker{
		tasks:       make(map[string]*models.Task),
		dispatched:  make(map[string]time.Time),
		settled:     make(map[string]time.Time),
		retryBudget: retryBudget,
		log:         log,
	}
}

// Add registers a new task. The task must be in the pending state.
func (t *Tracker) Add(task *models.Task) error {
	if task.State != models.TaskPending {
		return fmt.Errorf("task %s: must be added in pending state, got %s", task.ID, task.State)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.tasks[task.ID]; exists {
		return fmt.Errorf("task %s: already tracked", task.ID)
	}
	t.tasks[task.ID] = task
	t.order = append(t.order, task.ID)
	return nil
}

// Transition moves a task to the given state, validating legality.
func (t *Tracker) Transition(id string, to models.TaskState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(id, to)
}

func (t *Tracker) transitionLocked(id string, to models.TaskState) error {
	task, ok := t.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: not tracked", id)
	}
	if !contains(legalTransitions[task.State], to) {
		return fmt.Errorf("task %s: illegal transition %s -> %s", id, task.State, to)
	}

	now := time.Now()
	switch to {
	case models.TaskDispatched:
		t.dispatched[id] = now
	case models.TaskCompleted, models.TaskFailed, models.TaskTimedOut:
		t.settled[id] = now
	}

	t.log.Debug().Str("task", id).Str("capability", string(task.Capability)).
		Str("from", string(task.State)).Str("to", string(to)).Msg("task transition")
	task.State = to
	return nil
}

// MarkFailed settles a running or pending task as Failed, retrying it if
// budget remains. Returns true when the task was reset to Pending for a
// retry; false when the failure is terminal.
func (t *Tracker) MarkFailed(id string, cause error) (bool, error) {
	return t.settle(id, models.TaskFailed, cause)
}

// MarkTimedOut settles a running task as TimedOut, retrying it if budget
// remains. Returns true when the task was reset to Pending for a retry.
func (t *Tracker) MarkTimedOut(id string, cause error) (bool, error) {
	return t.settle(id, models.TaskTimedOut, cause)
}

func (t *Tracker) settle(id string, terminal models.TaskState, cause error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return false, fmt.Errorf("task %s: not tracked", id)
	}
	if err := t.transitionLocked(id, terminal); err != nil {
		return false, err
	}
	if cause != nil {
		task.Error = cause.Error()
	}

	if task.RetryCount >= t.retryBudget {
		t.log.Info().Str("task", id).Str("capability", string(task.Capability)).
			Str("state", string(terminal)).Int("retries", task.RetryCount).
			Msg("retry budget exhausted, task terminal")
		return false, nil
	}

	// Explicit retry: back to pending with a fresh attempt.
	task.RetryCount++
	task.State = models.TaskPending
	delete(t.settled, id)
	t.log.Info().Str("task", id).Str("capability", string(task.Capability)).
		Int("attempt", task.RetryCount+1).Msg("retrying task")
	return true, nil
}

// FailPermanently settles a task as Failed without consuming or offering
// a retry. Used for tasks that can never succeed, such as a capability
// with no registered agent.
func (t *Tracker) FailPermanently(id string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: not tracked", id)
	}
	if err := t.transitionLocked(id, models.TaskFailed); err != nil {
		return err
	}
	if cause != nil {
		task.Error = cause.Error()
	}
	return nil
}

// Abandon force-settles a task as TimedOut regardless of its current
// state or remaining retry budget. Used when the round deadline fires:
// the deadline takes precedence over retries.
func (t *Tracker) Abandon(id string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: not tracked", id)
	}
	if task.State.Terminal() {
		return nil
	}
	if cause != nil {
		task.Error = cause.Error()
	}
	task.State = models.TaskTimedOut
	t.settled[id] = time.Now()
	t.log.Info().Str("task", id).Str("capability", string(task.Capability)).
		Msg("task abandoned at round deadline")
	return nil
}

// AbandonUnsettled abandons every task that has not reached a terminal state.
func (t *Tracker) AbandonUnsettled(cause error) {
	t.mu.RLock()
	var pending []string
	for id, task := range t.tasks {
		if !task.State.Terminal() {
			pending = append(pending, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range pending {
		_ = t.Abandon(id, cause)
	}
}

// State returns the current state of a task.
func (t *Tracker) State(id string) (models.TaskState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return "", false
	}
	return task.State, true
}

// Retries returns the retries consumed by a task.
func (t *Tracker) Retries(id string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if task, ok := t.tasks[id]; ok {
		return task.RetryCount
	}
	return 0
}

// AllSettled reports whether every tracked task is terminal.
func (t *Tracker) AllSettled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, task := range t.tasks {
		if !task.State.Terminal() {
			return false
		}
	}
	return true
}

// Outcomes returns the per-task outcome summaries in creation order.
// evidenceCounts maps task id to the number of findings it contributed.
func (t *Tracker) Outcomes(evidenceCounts map[string]int) []models.TaskOutcome {
	t.mu.RLock()
	defer t.mu.RUnlock()

	outcomes := make([]models.TaskOutcome, 0, len(t.order))
	for _, id := range t.order {
		task := t.tasks[id]
		var dur time.Duration
		if d, ok := t.dispatched[id]; ok {
			if s, ok := t.settled[id]; ok {
				dur = s.Sub(d)
			}
		}
		outcomes = append(outcomes, models.TaskOutcome{
			TaskID:        task.ID,
			Capability:    task.Capability,
			State:         task.State,
			EvidenceCount: evidenceCounts[id],
			Retries:       task.RetryCount,
			Duration:      dur,
			Error:         task.Error,
		})
	}
	return outcomes
}

// Snapshot returns a copy of every tracked task in creation order.
func (t *Tracker) Snapshot() []models.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Task, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.tasks[id])
	}
	return out
}

func contains(states []models.TaskState, s models.TaskState) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}
