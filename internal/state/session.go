package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelbio/forager/pkg/models"
)

// Session is one research session record.
type Session struct {
	// ID is the session identifier.
	ID string
	// Title is a short display title derived from the query.
	Title string
	// Query is the original question text.
	Query string
	// TherapeuticArea is the optional domain filter.
	TherapeuticArea string
	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// TitleFromQuery derives a short session title from the query text.
func TitleFromQuery(query string) string {
	if len(query) > 50 {
		return query[:47] + "..."
	}
	return query
}

// CreateSession inserts a new session record.
func (db *DB) CreateSession(ctx context.Context, s *Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, title, query, therapeutic_area, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Query, s.TherapeuticArea, s.CreatedAt)
	if err != nil {
		return &PersistenceError{Op: "create session", Err: err}
	}
	return nil
}

// GetSession retrieves a session by id.
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var s Session
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, query, therapeutic_area, created_at
		FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&s.ID, &s.Title, &s.Query, &s.TherapeuticArea, &s.CreatedAt); err != nil {
		return nil, &PersistenceError{Op: "get session", Err: err}
	}
	return &s, nil
}

// ListSessions returns the most recent sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, query, therapeutic_area, created_at
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list sessions", Err: err}
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Query, &s.TherapeuticArea, &s.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "scan session", Err: err}
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// SaveResult stores the aggregated result of a round, keyed by session
// id. Fused entries and outcomes are stored as JSON documents; a second
// save for the same session replaces the first.
func (db *DB) SaveResult(ctx context.Context, r *models.AggregatedResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	fused, err := json.Marshal(r.Fused)
	if err != nil {
		return &PersistenceError{Op: "encode fused entries", Err: err}
	}
	outcomes, err := json.Marshal(r.Outcomes)
	if err != nil {
		return &PersistenceError{Op: "encode outcomes", Err: err}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO results (session_id, status, confidence, summary, fused, outcomes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			confidence = excluded.confidence,
			summary = excluded.summary,
			fused = excluded.fused,
			outcomes = excluded.outcomes,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		r.SessionID, string(r.Status), r.Confidence, r.Summary,
		string(fused), string(outcomes), r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return &PersistenceError{Op: "save result", Err: err}
	}
	return nil
}

// GetResult retrieves the aggregated result for a session.
func (db *DB) GetResult(ctx context.Context, sessionID string) (*models.AggregatedResult, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var (
		r        models.AggregatedResult
		status   string
		fused    string
		outcomes string
	)
	row := db.conn.QueryRowContext(ctx, `
		SELECT r.session_id, r.status, r.confidence, r.summary, r.fused, r.outcomes,
		       r.started_at, r.finished_at, s.query, s.therapeutic_area
		FROM results r JOIN sessions s ON s.id = r.session_id
		WHERE r.session_id = ?`, sessionID)
	err := row.Scan(&r.SessionID, &status, &r.Confidence, &r.Summary, &fused, &outcomes,
		&r.StartedAt, &r.FinishedAt, &r.Query.Text, &r.Query.TherapeuticArea)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &PersistenceError{Op: "get result", Err: fmt.Errorf("no result for session %s", sessionID)}
		}
		return nil, &PersistenceError{Op: "get result", Err: err}
	}

	r.Status = models.RoundStatus(status)
	if err := json.Unmarshal([]byte(fused), &r.Fused); err != nil {
		return nil, &PersistenceError{Op: "decode fused entries", Err: err}
	}
	if err := json.Unmarshal([]byte(outcomes), &r.Outcomes); err != nil {
		return nil, &PersistenceError{Op: "decode outcomes", Err: err}
	}
	return &r, nil
}
