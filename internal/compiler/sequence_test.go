package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leadflow/internal/sequence"
)

// compileFromString is a test helper that compiles a single sequence
// declared under sequence.<name> in the given CUE source.
func compileFromString(t *testing.T, src, name string) (*sequence.Definition, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileSequence(v.LookupPath(cue.ParsePath("sequence." + name)))
}

const leadQualificationCUE = `
sequence: lead_qualification: {
	description: "Qualify inbound leads and book discovery calls"
	domain:      "default"
	steps: [
		{id: "qualify", action: "send_qualification_email", next: ["assess"]},
		{
			id:     "assess"
			action: "evaluate_intent"
			conditions: [{attribute: "intent_score", operator: "greater_than", value: 0.7}]
			next: ["schedule", "nurture"]
		},
		{id: "schedule", action: "schedule_discovery_call"},
		{id: "nurture", action: "send_followup_email"},
	]
}
`

func TestCompileSequence(t *testing.T) {
	def, err := compileFromString(t, leadQualificationCUE, "lead_qualification")
	require.NoError(t, err)

	assert.Equal(t, "lead_qualification", def.ID)
	assert.Equal(t, "Qualify inbound leads and book discovery calls", def.Description)
	assert.Equal(t, "default", def.Domain)
	require.Len(t, def.Steps, 4)

	assert.Equal(t, "qualify", def.Steps[0].ID)
	assert.Equal(t, sequence.ActionID("send_qualification_email"), def.Steps[0].Action)
	assert.Equal(t, []string{"assess"}, def.Steps[0].Next)

	assess := def.Steps[1]
	require.Len(t, assess.Conditions, 1)
	assert.Equal(t, "intent_score", assess.Conditions[0].Attribute)
	assert.Equal(t, sequence.OpGreaterThan, assess.Conditions[0].Operator)
	assert.Equal(t, 0.7, assess.Conditions[0].Value)
	assert.Equal(t, []string{"schedule", "nurture"}, assess.Next)

	// Terminal steps carry no next ids.
	assert.Empty(t, def.Steps[2].Next)
}

func TestCompileSequence_ConditionValueKinds(t *testing.T) {
	src := `
sequence: s: {
	steps: [
		{
			id:     "a"
			action: "log_action"
			conditions: [
				{attribute: "lead_status", operator: "equals", value: "cold"},
				{attribute: "touch_count", operator: "less_than", value: 3},
				{attribute: "opted_in", operator: "equals", value: true},
			]
			next: ["b", "c"]
		},
		{id: "b", action: "log_action"},
		{id: "c", action: "log_action"},
	]
}
`
	def, err := compileFromString(t, src, "s")
	require.NoError(t, err)

	conds := def.Steps[0].Conditions
	require.Len(t, conds, 3)
	assert.Equal(t, "cold", conds[0].Value)
	assert.Equal(t, int64(3), conds[1].Value)
	assert.Equal(t, true, conds[2].Value)
}

func TestCompileSequence_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "missing steps",
			src:     `sequence: s: {description: "x"}`,
			wantMsg: "steps is required",
		},
		{
			name:    "empty steps",
			src:     `sequence: s: {steps: []}`,
			wantMsg: "at least one step is required",
		},
		{
			name:    "step without id",
			src:     `sequence: s: {steps: [{action: "log_action"}]}`,
			wantMsg: "step id is required",
		},
		{
			name:    "step without action",
			src:     `sequence: s: {steps: [{id: "a"}]}`,
			wantMsg: "action is required",
		},
		{
			name:    "invalid action name",
			src:     `sequence: s: {steps: [{id: "a", action: "send email!"}]}`,
			wantMsg: "invalid character",
		},
		{
			name:    "condition missing operator",
			src:     `sequence: s: {steps: [{id: "a", action: "log_action", conditions: [{attribute: "x", value: 1}], next: ["a", "a"]}]}`,
			wantMsg: "operator is required",
		},
		{
			name:    "non-scalar condition value",
			src:     `sequence: s: {steps: [{id: "a", action: "log_action", conditions: [{attribute: "x", operator: "equals", value: [1, 2]}], next: ["a", "a"]}]}`,
			wantMsg: "must be a scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileFromString(t, tt.src, "s")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// Action names are normalized at compile time so runtime dispatch never
// sees case or whitespace variants.
func TestCompileSequence_NormalizesActionNames(t *testing.T) {
	src := `sequence: s: {steps: [{id: "a", action: "  Send_Qualification_Email "}]}`
	def, err := compileFromString(t, src, "s")
	require.NoError(t, err)
	assert.Equal(t, sequence.ActionID("send_qualification_email"), def.Steps[0].Action)
}
