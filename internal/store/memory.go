package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/leadflow/internal/sequence"
)

// MemoryStore is an in-memory StateStore used by the scenario harness and
// tests. It mirrors the SQLite store's version and append-only semantics
// exactly so tests exercise the same contract the engine sees in
// production.
//
// Grounded on the standard library: the backing map lives for the life of
// one process and needs no query surface, so a database dependency would
// add nothing here.
type MemoryStore struct {
	mu          sync.Mutex
	states      map[string]*sequence.State
	escalations []sequence.Escalation
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*sequence.State),
	}
}

// Get returns a deep copy of the stored state so callers cannot alias the
// store's record.
func (m *MemoryStore) Get(_ context.Context, entityID string) (*sequence.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[entityID]
	if !ok {
		return nil, false, nil
	}
	return state.Clone(), true, nil
}

// Save applies the same optimistic-version contract as the SQLite store:
// Version 0 creates, otherwise the stored version must match. History is
// merged append-only by seq; previously stored entries are never replaced.
func (m *MemoryStore) Save(_ context.Context, state *sequence.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.states[state.EntityID]
	if state.Version == 0 {
		if ok {
			return fmt.Errorf("save state %s: %w", state.EntityID, ErrVersionConflict)
		}
	} else {
		if !ok || existing.Version != state.Version {
			return fmt.Errorf("save state %s: %w", state.EntityID, ErrVersionConflict)
		}
	}

	now := time.Now().UTC()
	stored := state.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	stored.Version = state.Version + 1

	if ok {
		stored.History = mergeHistory(existing.History, stored.History)
	}

	m.states[state.EntityID] = stored
	state.Version = stored.Version
	state.CreatedAt = stored.CreatedAt
	state.UpdatedAt = stored.UpdatedAt
	return nil
}

// mergeHistory keeps every previously stored entry and appends only the
// incoming entries with unseen seq numbers.
func mergeHistory(stored, incoming []sequence.StepExecution) []sequence.StepExecution {
	seen := make(map[int64]bool, len(stored))
	merged := make([]sequence.StepExecution, len(stored))
	copy(merged, stored)
	for _, exec := range stored {
		seen[exec.Seq] = true
	}
	for _, exec := range incoming {
		if !seen[exec.Seq] {
			merged = append(merged, exec)
			seen[exec.Seq] = true
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Seq < merged[j].Seq })
	return merged
}

// Delete removes the entity's state and history.
func (m *MemoryStore) Delete(_ context.Context, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, entityID)
	return nil
}

// All returns deep copies of every stored state keyed by entity id.
func (m *MemoryStore) All(_ context.Context) (map[string]*sequence.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*sequence.State, len(m.states))
	for id, state := range m.states {
		out[id] = state.Clone()
	}
	return out, nil
}

// CreateEscalation appends an escalation record, ignoring duplicate ids.
func (m *MemoryStore) CreateEscalation(_ context.Context, esc sequence.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.escalations {
		if existing.ID == esc.ID {
			return nil
		}
	}
	m.escalations = append(m.escalations, esc)
	return nil
}

// ListEscalations returns escalations newest first, optionally filtered
// by status.
func (m *MemoryStore) ListEscalations(_ context.Context, status sequence.EscalationStatus) ([]sequence.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []sequence.Escalation
	for _, esc := range m.escalations {
		if status != "" && esc.Status != status {
			continue
		}
		out = append(out, esc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
