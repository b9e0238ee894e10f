package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/leadflow/internal/sequence"
)

// Save persists the authoritative state row and appends any new history
// entries in a single transaction.
//
// Concurrency: the row carries an optimistic version counter. A state
// with Version 0 is created (a concurrent create of the same entity
// surfaces as ErrVersionConflict via the primary key); otherwise the
// persisted version must equal state.Version. On success the caller's
// state.Version is advanced to the stored value.
//
// History entries are written with INSERT OR IGNORE keyed (entity_id,
// seq): previously persisted entries are never rewritten, so the history
// stays an append-only log even if a save is replayed.
func (s *Store) Save(ctx context.Context, state *sequence.State) error {
	contextJSON, err := marshalContext(state.Context)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := time.Now().UTC()
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var newVersion int64
	if state.Version == 0 {
		createdAt := state.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		newVersion = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sequence_states
			(entity_id, sequence_id, current_step_id, status, context, version, engine_version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			state.EntityID,
			state.SequenceID,
			state.CurrentStepID,
			string(state.Status),
			contextJSON,
			newVersion,
			sequence.EngineVersion,
			createdAt.Format(time.RFC3339Nano),
			updatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("save state %s: %w", state.EntityID, ErrVersionConflict)
			}
			return fmt.Errorf("save state %s: insert: %w", state.EntityID, err)
		}
		state.CreatedAt = createdAt
	} else {
		newVersion = state.Version + 1
		result, err := tx.ExecContext(ctx, `
			UPDATE sequence_states
			SET sequence_id = ?, current_step_id = ?, status = ?, context = ?,
			    version = ?, engine_version = ?, updated_at = ?
			WHERE entity_id = ? AND version = ?
		`,
			state.SequenceID,
			state.CurrentStepID,
			string(state.Status),
			contextJSON,
			newVersion,
			sequence.EngineVersion,
			updatedAt.Format(time.RFC3339Nano),
			state.EntityID,
			state.Version,
		)
		if err != nil {
			return fmt.Errorf("save state %s: update: %w", state.EntityID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("save state %s: rows affected: %w", state.EntityID, err)
		}
		if affected == 0 {
			return fmt.Errorf("save state %s: %w", state.EntityID, ErrVersionConflict)
		}
	}

	for _, exec := range state.History {
		if err := insertExecution(ctx, tx, state.EntityID, exec); err != nil {
			return fmt.Errorf("save state %s: %w", state.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save state %s: commit: %w", state.EntityID, err)
	}

	state.Version = newVersion
	state.UpdatedAt = updatedAt
	return nil
}

// insertExecution appends one history row, silently skipping entries
// that already exist (append-only idempotency).
func insertExecution(ctx context.Context, tx *sql.Tx, entityID string, exec sequence.StepExecution) error {
	resultJSON, err := marshalResult(exec.Result)
	if err != nil {
		return fmt.Errorf("execution seq %d: %w", exec.Seq, err)
	}

	var timeSaved, revenue, confidence sql.NullFloat64
	if exec.Metrics != nil {
		timeSaved = sql.NullFloat64{Float64: exec.Metrics.TimeSavedMinutes, Valid: true}
		revenue = sql.NullFloat64{Float64: exec.Metrics.RevenueImpact, Valid: true}
		if exec.Metrics.Confidence != 0 {
			confidence = sql.NullFloat64{Float64: exec.Metrics.Confidence, Valid: true}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO step_executions
		(entity_id, seq, step_id, action, executed_at, result, time_saved_minutes, revenue_impact, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, seq) DO NOTHING
	`,
		entityID,
		exec.Seq,
		exec.StepID,
		string(exec.Action),
		exec.Timestamp.UTC().Format(time.RFC3339Nano),
		resultJSON,
		timeSaved,
		revenue,
		confidence,
	)
	if err != nil {
		return fmt.Errorf("execution seq %d: insert: %w", exec.Seq, err)
	}
	return nil
}

// Delete removes the entity's state; history rows cascade.
func (s *Store) Delete(ctx context.Context, entityID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sequence_states WHERE entity_id = ?`, entityID)
	if err != nil {
		return fmt.Errorf("delete state %s: %w", entityID, err)
	}
	return nil
}

// CreateEscalation appends a human-escalation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateEscalation(ctx context.Context, esc sequence.Escalation) error {
	contextJSON, err := marshalResult(esc.Context)
	if err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO escalations
		(id, entity_id, failed_action, category, context, status, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		esc.ID,
		esc.EntityID,
		string(esc.FailedAction),
		esc.Category,
		contextJSON,
		string(esc.Status),
		string(esc.Priority),
		esc.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create escalation %s: %w", esc.ID, err)
	}
	return nil
}

// isUniqueViolation reports whether the error is a primary-key or unique
// constraint failure. Matched on text so the store does not depend on
// driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
