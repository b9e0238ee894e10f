package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/leadflow/internal/sequence"
)

// Get returns the persisted state for an entity together with its full
// step history, oldest entry first.
func (s *Store) Get(ctx context.Context, entityID string) (*sequence.State, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_id, sequence_id, current_step_id, status, context, version, created_at, updated_at
		FROM sequence_states
		WHERE entity_id = ?
	`, entityID)

	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get state %s: %w", entityID, err)
	}

	history, err := s.loadHistory(ctx, entityID)
	if err != nil {
		return nil, false, fmt.Errorf("get state %s: %w", entityID, err)
	}
	state.History = history

	return state, true, nil
}

// All returns every persisted state keyed by entity id, histories included.
func (s *Store) All(ctx context.Context) (map[string]*sequence.State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, sequence_id, current_step_id, status, context, version, created_at, updated_at
		FROM sequence_states
		ORDER BY entity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*sequence.State)
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("list states: %w", err)
		}
		states[state.EntityID] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}

	for id, state := range states {
		history, err := s.loadHistory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list states: %w", err)
		}
		state.History = history
	}

	return states, nil
}

// ListEscalations returns escalation records, newest first. An empty
// status returns all records.
func (s *Store) ListEscalations(ctx context.Context, status sequence.EscalationStatus) ([]sequence.Escalation, error) {
	query := `
		SELECT id, entity_id, failed_action, category, context, status, priority, created_at
		FROM escalations
	`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var escalations []sequence.Escalation
	for rows.Next() {
		var (
			esc          sequence.Escalation
			failedAction string
			contextJSON  string
			escStatus    string
			priority     string
			createdAt    string
		)
		if err := rows.Scan(&esc.ID, &esc.EntityID, &failedAction, &esc.Category,
			&contextJSON, &escStatus, &priority, &createdAt); err != nil {
			return nil, fmt.Errorf("list escalations: scan: %w", err)
		}
		esc.FailedAction = sequence.ActionID(failedAction)
		esc.Status = sequence.EscalationStatus(escStatus)
		esc.Priority = sequence.EscalationPriority(priority)
		esc.Context, err = unmarshalResult(contextJSON)
		if err != nil {
			return nil, fmt.Errorf("list escalations: %w", err)
		}
		esc.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("list escalations: %w", err)
		}
		escalations = append(escalations, esc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	return escalations, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (*sequence.State, error) {
	var (
		state       sequence.State
		status      string
		contextJSON string
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&state.EntityID, &state.SequenceID, &state.CurrentStepID,
		&status, &contextJSON, &state.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	state.Status = sequence.Status(status)
	state.Context, err = unmarshalContext(contextJSON)
	if err != nil {
		return nil, err
	}
	state.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	state.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *Store) loadHistory(ctx context.Context, entityID string) ([]sequence.StepExecution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, step_id, action, executed_at, result, time_saved_minutes, revenue_impact, confidence
		FROM step_executions
		WHERE entity_id = ?
		ORDER BY seq ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []sequence.StepExecution
	for rows.Next() {
		var (
			exec       sequence.StepExecution
			action     string
			executedAt string
			resultJSON string
			timeSaved  sql.NullFloat64
			revenue    sql.NullFloat64
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&exec.Seq, &exec.StepID, &action, &executedAt,
			&resultJSON, &timeSaved, &revenue, &confidence); err != nil {
			return nil, fmt.Errorf("load history: scan: %w", err)
		}
		exec.Action = sequence.ActionID(action)
		exec.Timestamp, err = parseTimestamp(executedAt)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		exec.Result, err = unmarshalResult(resultJSON)
		if err != nil {
			return nil, fmt.Errorf("load history seq %d: %w", exec.Seq, err)
		}
		if timeSaved.Valid || revenue.Valid || confidence.Valid {
			exec.Metrics = &sequence.Metrics{
				TimeSavedMinutes: timeSaved.Float64,
				RevenueImpact:    revenue.Float64,
				Confidence:       confidence.Float64,
			}
		}
		history = append(history, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return history, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
