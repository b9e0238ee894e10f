package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leadflow/internal/sequence"
)

func qualificationDef() sequence.Definition {
	return sequence.Definition{
		ID:     "lead_qualification",
		Domain: "default",
		Steps: []sequence.Step{
			{ID: "qualify", Action: ActionQualificationEmail, Next: []string{"assess"}},
			{
				ID:     "assess",
				Action: ActionEvaluateIntent,
				Conditions: []sequence.Condition{
					{Attribute: sequence.KeyIntentScore, Operator: sequence.OpGreaterThan, Value: 0.7},
				},
				Next: []string{"schedule", "nurture"},
			},
			{ID: "schedule", Action: ActionScheduleCall},
			{ID: "nurture", Action: ActionFollowupEmail},
		},
	}
}

func TestRegistryDefinitionLookup(t *testing.T) {
	realtor := sequence.Definition{
		ID:     "realtor_outreach",
		Domain: "real_estate",
		Steps:  []sequence.Step{{ID: "intro", Action: ActionQualificationEmail}},
	}
	r := NewRegistry(qualificationDef(), realtor)

	def, ok := r.Definition("lead_qualification")
	require.True(t, ok)
	assert.Equal(t, "lead_qualification", def.ID)

	_, ok = r.Definition("missing")
	assert.False(t, ok)

	// First registered definition is the default.
	def, ok = r.DefaultDefinition()
	require.True(t, ok)
	assert.Equal(t, "lead_qualification", def.ID)

	def, ok = r.DefinitionForDomain("real_estate")
	require.True(t, ok)
	assert.Equal(t, "realtor_outreach", def.ID)

	// Unknown domain falls back to the default.
	def, ok = r.DefinitionForDomain("saas")
	require.True(t, ok)
	assert.Equal(t, "lead_qualification", def.ID)
}

func TestRegistryCopiesDefinitions(t *testing.T) {
	def := qualificationDef()
	r := NewRegistry(def)

	def.Steps[0].Next[0] = "mutated"

	got, ok := r.Definition("lead_qualification")
	require.True(t, ok)
	assert.Equal(t, []string{"assess"}, got.Steps[0].Next)
}

func TestRegistryHandlerResolution(t *testing.T) {
	r := NewRegistry(qualificationDef())

	registered := func(context.Context, *sequence.State) (ActionResult, error) {
		return ActionResult{Result: map[string]any{"tier": "registered"}}, nil
	}
	domain := func(context.Context, *sequence.State) (ActionResult, error) {
		return ActionResult{Result: map[string]any{"tier": "domain"}}, nil
	}
	r.RegisterAction("lead_qualification", ActionQualificationEmail, registered)
	r.RegisterDomainHandler(ActionQualificationEmail, "real_estate", domain)

	h, ok := r.Action("lead_qualification", ActionQualificationEmail)
	require.True(t, ok)
	res, err := h(context.Background(), &sequence.State{})
	require.NoError(t, err)
	assert.Equal(t, "registered", res.Result["tier"])

	h, ok = r.DomainHandler(ActionQualificationEmail, "real_estate")
	require.True(t, ok)
	res, err = h(context.Background(), &sequence.State{})
	require.NoError(t, err)
	assert.Equal(t, "domain", res.Result["tier"])

	_, ok = r.Action("lead_qualification", ActionScheduleCall)
	assert.False(t, ok, "a registry miss is not an error; the executor falls through to builtins")
}

func TestSetDefaultSequence(t *testing.T) {
	other := sequence.Definition{ID: "other", Steps: []sequence.Step{{ID: "a", Action: ActionLogActivity}}}
	r := NewRegistry(qualificationDef(), other)
	r.SetDefaultSequence("other")

	def, ok := r.DefaultDefinition()
	require.True(t, ok)
	assert.Equal(t, "other", def.ID)
}
