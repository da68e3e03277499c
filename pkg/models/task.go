package models

import "time"

// TaskState represents the current state of a dispatched task.
type TaskState string

const (
	// TaskPending indicates the task is waiting for a worker slot.
	TaskPending TaskState = "pending"
	// TaskDispatched indicates a worker slot has been claimed.
	TaskDispatched TaskState = "dispatched"
	// TaskRunning indicates the agent call is in flight.
	TaskRunning TaskState = "running"
	// TaskCompleted indicates the agent returned a ranked list.
	TaskCompleted TaskState = "completed"
	// TaskFailed indicates the agent returned an error.
	TaskFailed TaskState = "failed"
	// TaskTimedOut indicates the task deadline elapsed.
	TaskTimedOut TaskState = "timed_out"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskPending, TaskDispatched, TaskRunning, TaskCompleted, TaskFailed, TaskTimedOut:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transition is possible without a retry.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskTimedOut:
		return true
	default:
		return false
	}
}

// Task is one unit of delegated work within a round.
// Tasks are created by the orchestrator at decomposition time and
// mutated only through the tracker.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// SessionID is the owning research session.
	SessionID string `json:"session_id"`
	// Capability is the agent capability this task requires.
	Capability Capability `json:"capability"`
	// Fragment is the query text handed to the agent.
	Fragment string `json:"fragment"`
	// State is the current lifecycle state.
	State TaskState `json:"state"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// Deadline is the per-task execution deadline.
	Deadline time.Time `json:"deadline"`
	// RetryCount is the number of retries consumed.
	RetryCount int `json:"retry_count,omitempty"`
	// Error holds the terminal error message, if any.
	Error string `json:"error,omitempty"`
}
