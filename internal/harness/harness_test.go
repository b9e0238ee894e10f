package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leadflow/internal/sequence"
)

func runScenario(t *testing.T, file string) *Result {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", file))
	require.NoError(t, err)
	res, err := Run(sc)
	require.NoError(t, err)
	return res
}

func TestScenarioHealthyRunCompletes(t *testing.T) {
	res := runScenario(t, "crm_sync.yaml")

	assert.True(t, res.Pass, "expectation failures: %v", res.Errors)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "sync", res.Trace[0].Step)
	assert.Equal(t, int64(1), res.Trace[0].Seq)
	assert.Equal(t, sequence.StatusCompleted, res.FinalState.Status)
	assert.Empty(t, res.Escalations)
}

func TestScenarioSimplifiedFallback(t *testing.T) {
	res := runScenario(t, "qualification_fallback.yaml")

	assert.True(t, res.Pass, "expectation failures: %v", res.Errors)
	require.Len(t, res.Trace, 1)
	assert.True(t, res.Trace[0].Simplified)
	assert.Equal(t, sequence.StatusActive, res.FinalState.Status)
	assert.Equal(t, "assess", res.FinalState.CurrentStepID)
}

func TestScenarioEscalation(t *testing.T) {
	res := runScenario(t, "qualification_escalation.yaml")

	assert.True(t, res.Pass, "expectation failures: %v", res.Errors)
	require.Len(t, res.Escalations, 1)
	esc := res.Escalations[0]
	assert.Equal(t, "esc-001", esc.ID)
	assert.Equal(t, "lead-2", esc.EntityID)
	assert.Equal(t, "network", esc.Category)
	assert.Equal(t, sequence.PriorityMedium, esc.Priority)
	assert.Equal(t, sequence.EscalationPending, esc.Status)
}

func TestScenarioBranching(t *testing.T) {
	high := runScenario(t, "high_intent_books_call.yaml")
	assert.True(t, high.Pass, "expectation failures: %v", high.Errors)

	low := runScenario(t, "low_intent_nurtures.yaml")
	assert.True(t, low.Pass, "expectation failures: %v", low.Errors)
}

func TestScenarioReportsExpectationMismatch(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "crm_sync.yaml"))
	require.NoError(t, err)
	sc.Expect.Status = string(sequence.StatusFailed)

	res, err := Run(sc)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "status")
}

func TestScenarioRunsAreDeterministic(t *testing.T) {
	first := runScenario(t, "crm_sync.yaml")
	second := runScenario(t, "crm_sync.yaml")
	assert.Equal(t, first.Trace, second.Trace)
}
