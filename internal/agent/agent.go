// Package agent defines the worker agent contract and the built-in
// research agents that implement it.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrelbio/forager/pkg/models"
)

// ErrorKind classifies agent failures for retry and reporting decisions.
type ErrorKind string

const (
	// KindTimeout means the agent exceeded its allotted time.
	KindTimeout ErrorKind = "timeout"
	// KindFailure means the agent returned or raised an error.
	KindFailure ErrorKind = "failure"
	// KindCapabilityUnavailable means no agent is registered for the capability.
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"
)

// Error is the error type returned by worker agents.
type Error struct {
	// Agent is the name of the agent that failed.
	Agent string
	// Kind classifies the failure.
	Kind ErrorKind
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent %s: %s", e.Agent, e.Kind)
	}
	return fmt.Sprintf("agent %s: %s: %v", e.Agent, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an agent error, classifying context expiry as a timeout.
func NewError(name string, err error) *Error {
	kind := KindFailure
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &Error{Agent: name, Kind: kind, Err: err}
}

// Kind extracts the error kind from err, defaulting to KindFailure.
func Kind(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindFailure
}

// Agent is a capability-tagged unit of research work. Execute must return
// evidence already rank-ordered by the agent's own relevance judgment
// (rank 1 = most relevant) and must honor ctx cancellation promptly.
// An empty list is a valid success meaning "no findings".
type Agent interface {
	// Name identifies the agent in evidence traces and logs.
	Name() string
	// Capability is the research domain this agent serves.
	Capability() models.Capability
	// Execute runs the query fragment and returns a ranked evidence list.
	Execute(ctx context.Context, query models.Query) ([]models.Evidence, error)
}
