package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Equals(t *testing.T) {
	ctx := Context{"lead_status": "cold", "score": 80}

	assert.True(t, Evaluate(Condition{Attribute: "lead_status", Operator: OpEquals, Value: "cold"}, ctx))
	assert.False(t, Evaluate(Condition{Attribute: "lead_status", Operator: OpEquals, Value: "warm"}, ctx))

	// Numeric equality ignores representation: 80 == 80.0.
	assert.True(t, Evaluate(Condition{Attribute: "score", Operator: OpEquals, Value: 80.0}, ctx))

	// Missing attribute is never equal.
	assert.False(t, Evaluate(Condition{Attribute: "missing", Operator: OpEquals, Value: "x"}, ctx))
}

func TestEvaluate_NotEquals(t *testing.T) {
	ctx := Context{"lead_status": "cold"}

	assert.True(t, Evaluate(Condition{Attribute: "lead_status", Operator: OpNotEquals, Value: "warm"}, ctx))
	assert.False(t, Evaluate(Condition{Attribute: "lead_status", Operator: OpNotEquals, Value: "cold"}, ctx))

	// A missing attribute is not equal to anything.
	assert.True(t, Evaluate(Condition{Attribute: "missing", Operator: OpNotEquals, Value: "x"}, ctx))
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	ctx := Context{"score": 50.0, "count": int64(3), "name": "alice"}

	assert.True(t, Evaluate(Condition{Attribute: "score", Operator: OpGreaterThan, Value: 40}, ctx))
	assert.False(t, Evaluate(Condition{Attribute: "score", Operator: OpGreaterThan, Value: 80}, ctx))
	assert.True(t, Evaluate(Condition{Attribute: "count", Operator: OpLessThan, Value: 5}, ctx))

	// Non-numeric context value compares as false, never errors.
	assert.False(t, Evaluate(Condition{Attribute: "name", Operator: OpGreaterThan, Value: 1}, ctx))

	// Non-numeric condition value also compares as false.
	assert.False(t, Evaluate(Condition{Attribute: "score", Operator: OpLessThan, Value: "high"}, ctx))
}

func TestEvaluate_Contains(t *testing.T) {
	ctx := Context{
		"notes": "requested pricing for enterprise tier",
		"tags":  []any{"inbound", "webinar"},
		"score": 425,
	}

	assert.True(t, Evaluate(Condition{Attribute: "notes", Operator: OpContains, Value: "pricing"}, ctx))
	assert.False(t, Evaluate(Condition{Attribute: "notes", Operator: OpContains, Value: "refund"}, ctx))

	// Membership test for collections.
	assert.True(t, Evaluate(Condition{Attribute: "tags", Operator: OpContains, Value: "webinar"}, ctx))
	assert.False(t, Evaluate(Condition{Attribute: "tags", Operator: OpContains, Value: "outbound"}, ctx))

	// Numbers coerce to their textual representation.
	assert.True(t, Evaluate(Condition{Attribute: "score", Operator: OpContains, Value: "42"}, ctx))
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	ctx := Context{"score": 100}
	assert.False(t, Evaluate(Condition{Attribute: "score", Operator: "matches_regex", Value: ".*"}, ctx))
}

// TestEvaluateAll_FirstTrueWins pins the short-circuit branch semantics:
// the first condition that holds decides, later conditions cannot
// override it.
func TestEvaluateAll_FirstTrueWins(t *testing.T) {
	ctx := Context{"score": 90, "lead_status": "cold"}

	conds := []Condition{
		{Attribute: "score", Operator: OpGreaterThan, Value: 80},     // true
		{Attribute: "lead_status", Operator: OpEquals, Value: "hot"}, // false
	}
	assert.True(t, EvaluateAll(conds, ctx))

	assert.False(t, EvaluateAll([]Condition{
		{Attribute: "score", Operator: OpLessThan, Value: 10},
		{Attribute: "lead_status", Operator: OpEquals, Value: "hot"},
	}, ctx))

	assert.False(t, EvaluateAll(nil, ctx))
}

func TestNextStepID_Terminal(t *testing.T) {
	step := &Step{ID: "close", Action: "close_sequence"}
	next, ok := NextStepID(step, Context{})
	assert.False(t, ok)
	assert.Empty(t, next)
}

func TestNextStepID_Linear(t *testing.T) {
	step := &Step{ID: "a", Action: "log_action", Next: []string{"b"}}
	next, ok := NextStepID(step, Context{})
	assert.True(t, ok)
	assert.Equal(t, "b", next)
}

// TestNextStepID_ConditionalBranch: score 50 against a greater_than-80
// gate takes the fallback branch.
func TestNextStepID_ConditionalBranch(t *testing.T) {
	step := &Step{
		ID:     "assess",
		Action: "evaluate_intent",
		Conditions: []Condition{
			{Attribute: "score", Operator: OpGreaterThan, Value: 80},
		},
		Next: []string{"high", "low"},
	}

	next, ok := NextStepID(step, Context{"score": 50})
	assert.True(t, ok)
	assert.Equal(t, "low", next)

	next, ok = NextStepID(step, Context{"score": 95})
	assert.True(t, ok)
	assert.Equal(t, "high", next)
}

func TestNextStepID_MultipleNextWithoutConditions(t *testing.T) {
	step := &Step{ID: "a", Action: "log_action", Next: []string{"primary", "secondary"}}
	next, ok := NextStepID(step, Context{})
	assert.True(t, ok)
	assert.Equal(t, "primary", next)
}
