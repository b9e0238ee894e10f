package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock(t *testing.T) {
	c := NewDeterministicClock()
	first := c.Now()
	second := c.Now()
	assert.True(t, second.After(first))

	c.Reset()
	assert.Equal(t, first, c.Now(), "reset replays the same timestamps")
}

func TestLinearDefinitionBuilder(t *testing.T) {
	def := LinearDefinition("demo", "send_qualification_email", "evaluate_intent", "update_crm_record")
	assert.Len(t, def.Steps, 3)
	assert.Equal(t, []string{"step2"}, def.Steps[0].Next)
	assert.Equal(t, []string{"step3"}, def.Steps[1].Next)
	assert.Empty(t, def.Steps[2].Next)
}
