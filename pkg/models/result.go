package models

import "time"

// FusedEntry is one deduplicated finding in the fused ranking.
type FusedEntry struct {
	// Key is the content key shared by all contributing evidence.
	Key string `json:"key"`
	// Title is taken from the best-ranked contributor.
	Title string `json:"title"`
	// Score is the reciprocal rank fusion score.
	Score float64 `json:"score"`
	// Sources lists the contributing source identifiers in
	// lexicographic order. Exposed verbatim as the evidence trace.
	Sources []string `json:"sources"`
	// Capabilities lists the contributing capability tags, deduplicated
	// and sorted. Agent names may differ from their capability tag, so
	// attribution by capability uses this and not Sources.
	Capabilities []string `json:"capabilities,omitempty"`
	// BestRank is the lowest rank the finding held in any single list.
	BestRank int `json:"best_rank"`
	// Confidences collects the per-source confidences that were supplied.
	Confidences []float64 `json:"confidences,omitempty"`
	// Payload is taken from the best-ranked contributor.
	Payload Payload `json:"payload"`
}

// RoundStatus summarizes how a round ended.
type RoundStatus string

const (
	// RoundOK means every dispatched task completed.
	RoundOK RoundStatus = "ok"
	// RoundPartial means some tasks failed or timed out but evidence was produced.
	RoundPartial RoundStatus = "partial"
	// RoundNoEvidence means zero tasks succeeded.
	RoundNoEvidence RoundStatus = "no_evidence"
)

// TaskOutcome records how one task settled.
type TaskOutcome struct {
	// TaskID identifies the task.
	TaskID string `json:"task_id"`
	// Capability is the capability the task targeted.
	Capability Capability `json:"capability"`
	// State is the terminal state the task reached.
	State TaskState `json:"state"`
	// EvidenceCount is the number of findings the task contributed.
	EvidenceCount int `json:"evidence_count"`
	// Retries is the number of retries consumed.
	Retries int `json:"retries,omitempty"`
	// Duration is the wall time from dispatch to settlement.
	Duration time.Duration `json:"duration"`
	// Error holds the terminal error message, if any.
	Error string `json:"error,omitempty"`
}

// AggregatedResult is the final output of one research round.
type AggregatedResult struct {
	// SessionID is the owning session.
	SessionID string `json:"session_id"`
	// Query is the question the round answered.
	Query Query `json:"query"`
	// Status summarizes the round.
	Status RoundStatus `json:"status"`
	// Fused is the deduplicated, totally-ordered evidence list.
	Fused []FusedEntry `json:"fused"`
	// Confidence is the overall confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Outcomes records how each task settled.
	Outcomes []TaskOutcome `json:"outcomes"`
	// Summary is an optional synthesized narrative of the top findings.
	Summary string `json:"summary,omitempty"`
	// StartedAt is when the round began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the round emitted this result.
	FinishedAt time.Time `json:"finished_at"`
}

// FailedFraction returns the fraction of tasks that ended Failed or TimedOut.
func (r *AggregatedResult) FailedFraction() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	failed := 0
	for _, o := range r.Outcomes {
		if o.State == TaskFailed || o.State == TaskTimedOut {
			failed++
		}
	}
	return float64(failed) / float64(len(r.Outcomes))
}

// FailedCapabilities returns the capabilities whose tasks did not complete.
func (r *AggregatedResult) FailedCapabilities() []Capability {
	var caps []Capability
	for _, o := range r.Outcomes {
		if o.State != TaskCompleted {
			caps = append(caps, o.Capability)
		}
	}
	return caps
}
