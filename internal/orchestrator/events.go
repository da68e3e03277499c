package orchestrator

import "github.com/kestrelbio/forager/pkg/models"

// Event reports a task state change during a round. Events are
// best-effort: slow consumers miss updates rather than stall dispatch.
type Event struct {
	// TaskID identifies the task.
	TaskID string
	// Capability is the capability the task targets.
	Capability models.Capability
	// State is the state the task just entered.
	State models.TaskState
	// Attempt is the 1-based attempt number.
	Attempt int
	// Err is the error message for failed or timed out attempts.
	Err string
}

func (o *Orchestrator) emit(ev Event) {
	if o.events == nil {
		return
	}
	select {
	case o.events <- ev:
	default:
	}
}
