package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leadflow/internal/sequence"
)

func writeCUE(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequences.cue")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCUE(t, `
sequence: {
	onboarding: {
		description: "Welcome new signups"
		steps: [
			{id: "welcome", action: "send_qualification_email", next: ["log"]},
			{id: "log", action: "log_activity"},
		]
	}
	winback: {
		steps: [{id: "nudge", action: "send_followup_email"}]
	}
}
`)

	defs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "onboarding", defs[0].ID)
	assert.Equal(t, "Welcome new signups", defs[0].Description)
	assert.Len(t, defs[0].Steps, 2)
	assert.Equal(t, "winback", defs[1].ID)
}

func TestLoadFileMissingSequenceStruct(t *testing.T) {
	path := writeCUE(t, `other: {a: 1}`)

	_, err := LoadFile(path)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "sequence", compileErr.Field)
	assert.Contains(t, compileErr.Message, "no sequences declared")
}

func TestLoadFileEmptySequenceStruct(t *testing.T) {
	path := writeCUE(t, `sequence: {}`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence struct is empty")
}

func TestLoadFileSyntaxError(t *testing.T) {
	path := writeCUE(t, `sequence: lead: { steps: [ {id:`)

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read sequence file")
}

func TestValidateAll(t *testing.T) {
	good := sequence.Definition{
		ID:    "good",
		Steps: []sequence.Step{{ID: "only", Action: "log_activity"}},
	}
	bad := sequence.Definition{
		ID: "bad",
		Steps: []sequence.Step{
			{ID: "a", Action: "log_activity", Next: []string{"ghost"}},
		},
	}

	assert.NoError(t, ValidateAll([]sequence.Definition{good}))

	err := ValidateAll([]sequence.Definition{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sequence "bad" is invalid`)
	assert.Contains(t, err.Error(), `next step "ghost" does not exist`)
}
