package sequence

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a sequence execution.
type Status string

const (
	// StatusActive means the sequence has a current step to process.
	StatusActive Status = "active"

	// StatusCompleted means the sequence ran off the end of its step graph.
	StatusCompleted Status = "completed"

	// StatusFailed means a step exhausted the whole fallback ladder.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further steps may be processed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operator identifies a condition comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
)

// ValidOperators defines the allowed condition operators.
var ValidOperators = map[Operator]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpGreaterThan: true,
	OpLessThan:    true,
	OpContains:    true,
}

// Condition is a single predicate evaluated against the execution context.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
}

// Step is one node in a sequence graph.
//
// INVARIANT: if Conditions is non-empty, Next has at least 2 entries
// (Next[0] is the condition-met branch, Next[1] the fallback branch).
// If Conditions is empty, Next has 0 or 1 entries (terminal or linear).
// The compiler enforces this invariant at load time.
type Step struct {
	ID         string      `json:"id"`
	Action     ActionID    `json:"action"`
	Conditions []Condition `json:"conditions,omitempty"`
	Next       []string    `json:"next,omitempty"`
}

// Definition is an immutable, statically defined sequence of steps.
// Definitions are compiled once at process start and never mutated.
type Definition struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Steps       []Step `json:"steps"`
}

// StepByID returns the step with the given ID.
func (d *Definition) StepByID(id string) (*Step, bool) {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i], true
		}
	}
	return nil, false
}

// FirstStep returns the entry step of the definition.
func (d *Definition) FirstStep() (*Step, bool) {
	if len(d.Steps) == 0 {
		return nil, false
	}
	return &d.Steps[0], true
}

// Clone returns a deep copy of the definition.
// Used to hand callers a snapshot they cannot mutate.
func (d *Definition) Clone() Definition {
	out := Definition{
		ID:          d.ID,
		Description: d.Description,
		Domain:      d.Domain,
	}
	if d.Steps != nil {
		out.Steps = make([]Step, len(d.Steps))
		for i, step := range d.Steps {
			cloned := Step{ID: step.ID, Action: step.Action}
			if step.Conditions != nil {
				cloned.Conditions = make([]Condition, len(step.Conditions))
				copy(cloned.Conditions, step.Conditions)
			}
			if step.Next != nil {
				cloned.Next = make([]string, len(step.Next))
				copy(cloned.Next, step.Next)
			}
			out.Steps[i] = cloned
		}
	}
	return out
}

// Metrics captures the business impact recorded by a step execution.
type Metrics struct {
	TimeSavedMinutes float64 `json:"time_saved_minutes"`
	RevenueImpact    float64 `json:"revenue_impact"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// StepExecution is one append-only history entry. Created once per step
// attempt (including fallback attempts) and never mutated after append.
type StepExecution struct {
	Seq       int64          `json:"seq"`
	StepID    string         `json:"step_id"`
	Action    ActionID       `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Result    map[string]any `json:"result,omitempty"`
	Metrics   *Metrics       `json:"metrics,omitempty"`
}

// Simplified reports whether this execution degraded to the locally
// computed fallback result instead of a real capability call.
func (e *StepExecution) Simplified() bool {
	v, ok := e.Result[KeySimplifiedFallback]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// KeySimplifiedFallback marks a result produced by the simplified-action
// fallback tier rather than a real capability call.
const KeySimplifiedFallback = "simplified_fallback"

// State is the mutable, persisted execution record for one entity.
//
// Ownership: the engine exclusively owns mutation; the store exclusively
// owns durability. At most one active State exists per entity.
type State struct {
	EntityID      string          `json:"entity_id"`
	SequenceID    string          `json:"sequence_id"`
	CurrentStepID string          `json:"current_step_id"`
	Status        Status          `json:"status"`
	Context       Context         `json:"context"`
	History       []StepExecution `json:"history"`

	// Version is the optimistic-concurrency counter maintained by the
	// store. Zero means the state has never been persisted.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the state accepts no further processing.
func (s *State) Terminal() bool {
	return s.Status.Terminal()
}

// NextSeq returns the sequence number for the next history entry.
// History seq numbers are strictly increasing per entity, starting at 1.
func (s *State) NextSeq() int64 {
	if len(s.History) == 0 {
		return 1
	}
	return s.History[len(s.History)-1].Seq + 1
}

// Clone returns a deep copy of the state so callers cannot alias the
// engine's working copy.
func (s *State) Clone() *State {
	out := &State{
		EntityID:      s.EntityID,
		SequenceID:    s.SequenceID,
		CurrentStepID: s.CurrentStepID,
		Status:        s.Status,
		Context:       s.Context.Clone(),
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.History != nil {
		out.History = make([]StepExecution, len(s.History))
		for i, exec := range s.History {
			cloned := exec
			if exec.Result != nil {
				cloned.Result = make(map[string]any, len(exec.Result))
				for k, v := range exec.Result {
					cloned.Result[k] = v
				}
			}
			if exec.Metrics != nil {
				m := *exec.Metrics
				cloned.Metrics = &m
			}
			out.History[i] = cloned
		}
	}
	return out
}

// EscalationPriority ranks how urgently a human should intervene.
type EscalationPriority string

const (
	PriorityHigh   EscalationPriority = "high"
	PriorityMedium EscalationPriority = "medium"
	PriorityLow    EscalationPriority = "low"
)

// EscalationStatus tracks the lifecycle of an escalation record.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationResolved EscalationStatus = "resolved"
)

// Escalation is a durable record requesting human intervention for a
// failed action, with a priority derived from the action's criticality.
type Escalation struct {
	ID           string             `json:"id"`
	EntityID     string             `json:"entity_id"`
	FailedAction ActionID           `json:"failed_action"`
	Category     string             `json:"category"`
	Context      map[string]any     `json:"context,omitempty"`
	Status       EscalationStatus   `json:"status"`
	Priority     EscalationPriority `json:"priority"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Entity is the minimal inbound view of a tracked lead. Everything beyond
// the identity is free-form data seeded into the execution context.
type Entity struct {
	ID     string         `json:"id"`
	Domain string         `json:"domain,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Validate checks the entity carries the fields the engine requires.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id is required")
	}
	return nil
}
