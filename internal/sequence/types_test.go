package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ActionID
		wantErr bool
	}{
		{name: "plain", raw: "send_qualification_email", want: "send_qualification_email"},
		{name: "trims and lowercases", raw: "  Send_Qualification_Email ", want: "send_qualification_email"},
		{name: "dotted", raw: "crm.update_record", want: "crm.update_record"},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "invalid characters", raw: "send email!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseActionID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinition_StepLookup(t *testing.T) {
	def := Definition{
		ID: "lead_qualification",
		Steps: []Step{
			{ID: "qualify", Action: "send_qualification_email", Next: []string{"assess"}},
			{ID: "assess", Action: "evaluate_intent"},
		},
	}

	first, ok := def.FirstStep()
	require.True(t, ok)
	assert.Equal(t, "qualify", first.ID)

	step, ok := def.StepByID("assess")
	require.True(t, ok)
	assert.Equal(t, ActionID("evaluate_intent"), step.Action)

	_, ok = def.StepByID("missing")
	assert.False(t, ok)

	empty := Definition{ID: "empty"}
	_, ok = empty.FirstStep()
	assert.False(t, ok)
}

func TestDefinition_CloneIsDeep(t *testing.T) {
	def := Definition{
		ID: "s",
		Steps: []Step{
			{
				ID:         "a",
				Action:     "log_action",
				Conditions: []Condition{{Attribute: "score", Operator: OpGreaterThan, Value: 1}},
				Next:       []string{"b", "c"},
			},
		},
	}

	clone := def.Clone()
	clone.Steps[0].Next[0] = "mutated"
	clone.Steps[0].Conditions[0].Attribute = "mutated"

	assert.Equal(t, "b", def.Steps[0].Next[0])
	assert.Equal(t, "score", def.Steps[0].Conditions[0].Attribute)
}

func TestState_NextSeq(t *testing.T) {
	state := &State{EntityID: "E1"}
	assert.Equal(t, int64(1), state.NextSeq())

	state.History = append(state.History, StepExecution{Seq: 1}, StepExecution{Seq: 2})
	assert.Equal(t, int64(3), state.NextSeq())
}

func TestState_CloneIsDeep(t *testing.T) {
	now := time.Now().UTC()
	state := &State{
		EntityID:      "E1",
		SequenceID:    "s",
		CurrentStepID: "a",
		Status:        StatusActive,
		Context:       Context{"score": 10},
		History: []StepExecution{
			{
				Seq:       1,
				StepID:    "a",
				Action:    "log_action",
				Timestamp: now,
				Result:    map[string]any{"ok": true},
				Metrics:   &Metrics{TimeSavedMinutes: 5},
			},
		},
	}

	clone := state.Clone()
	clone.Context["score"] = 99
	clone.History[0].Result["ok"] = false
	clone.History[0].Metrics.TimeSavedMinutes = 100

	assert.Equal(t, 10, state.Context["score"])
	assert.Equal(t, true, state.History[0].Result["ok"])
	assert.Equal(t, 5.0, state.History[0].Metrics.TimeSavedMinutes)
}

func TestStepExecution_Simplified(t *testing.T) {
	exec := StepExecution{Result: map[string]any{KeySimplifiedFallback: true}}
	assert.True(t, exec.Simplified())

	assert.False(t, (&StepExecution{Result: map[string]any{"ok": true}}).Simplified())
	assert.False(t, (&StepExecution{}).Simplified())
	assert.False(t, (&StepExecution{Result: map[string]any{KeySimplifiedFallback: "yes"}}).Simplified())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusActive.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestEntity_Validate(t *testing.T) {
	assert.NoError(t, Entity{ID: "E42"}.Validate())
	assert.Error(t, Entity{}.Validate())
	assert.Error(t, Entity{ID: "   "}.Validate())
}
