package state

import (
	"context"
	"fmt"
	"io"

	"github.com/kestrelbio/forager/pkg/models"
)

// PersistenceError reports a failed store operation. The computed
// in-memory result is never lost: callers keep it and may retry the
// write.
type PersistenceError struct {
	// Op names the failed operation.
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SessionStore handles session-related persistence operations.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
}

// ResultStore handles aggregated result persistence operations.
type ResultStore interface {
	SaveResult(ctx context.Context, r *models.AggregatedResult) error
	GetResult(ctx context.Context, sessionID string) (*models.AggregatedResult, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the full persistence contract. The orchestrator depends
// only on ResultStore; the CLI uses the composed interface.
type Store interface {
	io.Closer
	Migrator
	SessionStore
	ResultStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ ResultStore  = (*DB)(nil)
)
