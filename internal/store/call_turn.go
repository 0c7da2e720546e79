package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallTurn is one logged request/response cycle of a voice call.
type CallTurn struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CallSID       string    `db:"call_sid" json:"call_sid"`
	Route         string    `db:"route" json:"route"`
	Attempt       int       `db:"attempt" json:"attempt"`
	Outcome       string    `db:"outcome" json:"outcome"`
	Question      string    `db:"question" json:"question,omitempty"`
	Answer        string    `db:"answer" json:"answer,omitempty"`
	FailureReason string    `db:"failure_reason" json:"failure_reason,omitempty"`
	LatencyMS     int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

const sqlInsertCallTurn = `
INSERT INTO call_turns (call_sid, route, attempt, outcome, question, answer, failure_reason, latency_ms)
VALUES (:call_sid, :route, :attempt, :outcome, :question, :answer, :failure_reason, :latency_ms)
RETURNING id, call_sid, route, attempt, outcome, question, answer, failure_reason, latency_ms, created_at`

// InsertCallTurn persists a turn and returns it with its generated id and timestamp.
func (s *Store) InsertCallTurn(ctx context.Context, turn CallTurn) (CallTurn, error) {
	rows, err := s.db.NamedQueryContext(ctx, sqlInsertCallTurn, turn)
	if err != nil {
		s.logger.Error(ctx, "failed to insert call turn", err)
		return CallTurn{}, fmt.Errorf("failed to insert call turn: %w", err)
	}
	defer rows.Close()

	var created CallTurn
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return CallTurn{}, fmt.Errorf("failed to insert call turn: %w", err)
		}
		return CallTurn{}, fmt.Errorf("failed to insert call turn: no row returned")
	}
	if err := rows.StructScan(&created); err != nil {
		return CallTurn{}, fmt.Errorf("failed to scan call turn: %w", err)
	}
	return created, nil
}

const sqlGetCallTurnsByCallSID = `
SELECT id, call_sid, route, attempt, outcome, question, answer, failure_reason, latency_ms, created_at
FROM call_turns
WHERE call_sid = $1
ORDER BY created_at ASC`

// GetCallTurnsByCallSID returns the turns of one call in order. ErrNotFound
// is returned when the call has no logged turns.
func (s *Store) GetCallTurnsByCallSID(ctx context.Context, callSID string) ([]CallTurn, error) {
	var turns []CallTurn
	err := s.db.SelectContext(ctx, &turns, sqlGetCallTurnsByCallSID, callSID)
	if err != nil {
		s.logger.Error(ctx, "failed to get call turns", err)
		return nil, fmt.Errorf("failed to get call turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, ErrNotFound
	}
	return turns, nil
}
