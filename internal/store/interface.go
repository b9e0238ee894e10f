package store

import (
	"context"
	"errors"

	"github.com/roach88/leadflow/internal/sequence"
)

// ErrVersionConflict is returned by Save when the persisted record moved
// past the caller's snapshot. The caller should re-read and retry or, for
// initialize, treat the conflict as "someone else created it first".
var ErrVersionConflict = errors.New("sequence state version conflict")

// StateStore is the persistence boundary for sequence state.
//
// Implementations must serialize writes per entity id (version check or
// mutual exclusion) but need not serialize across entities. Save bumps
// state.Version on success so the caller's copy stays current.
type StateStore interface {
	// Get returns the persisted state for an entity, with found=false
	// (and no error) when the entity has no record.
	Get(ctx context.Context, entityID string) (state *sequence.State, found bool, err error)

	// Save persists the state. A state with Version 0 is created;
	// otherwise the persisted version must match state.Version or
	// ErrVersionConflict is returned. History entries are append-only:
	// previously persisted entries are never rewritten.
	Save(ctx context.Context, state *sequence.State) error

	// Delete removes the entity's state and history.
	Delete(ctx context.Context, entityID string) error

	// All returns every persisted state keyed by entity id.
	All(ctx context.Context) (map[string]*sequence.State, error)

	// CreateEscalation appends a human-escalation record.
	CreateEscalation(ctx context.Context, esc sequence.Escalation) error

	// ListEscalations returns escalations, newest first, optionally
	// filtered by status ("" means all).
	ListEscalations(ctx context.Context, status sequence.EscalationStatus) ([]sequence.Escalation, error)

	// Close releases the backing resources.
	Close() error
}
