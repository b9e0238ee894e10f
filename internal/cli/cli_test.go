package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func specsDir() string {
	return filepath.Join("testdata", "sequences")
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", specsDir())
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 sequence(s) valid")
}

func TestValidateCommandMissingDir(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join("testdata", "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommandReportsStructuralErrors(t *testing.T) {
	dir := t.TempDir()
	def := `sequence: bad: {
	steps: [
		{id: "a", action: "log_activity", next: ["ghost"]},
	]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(def), 0o644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, `next step "ghost" does not exist`)
}

func TestSequenceLifecycleCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leadflow.db")

	out, err := execute(t, "init", "lead-1",
		"--db", db, "--specs", specsDir(),
		"--data", `{"email":"ana@example.com","email_opened":true,"replied":true}`)
	require.NoError(t, err)
	assert.Contains(t, out, "sequence lead_qualification initialized for lead-1")
	assert.Contains(t, out, "next step: qualify")

	out, err = execute(t, "step", "lead-1", "--db", db, "--specs", specsDir())
	require.NoError(t, err)
	assert.Contains(t, out, "processed step qualify")

	out, err = execute(t, "run", "lead-1", "--db", db, "--specs", specsDir())
	require.NoError(t, err)
	assert.Contains(t, out, "sequence lead_qualification completed for lead-1 after 3 step(s)")

	out, err = execute(t, "status", "lead-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "status:    completed")

	out, err = execute(t, "--format", "json", "trace", "lead-1", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   []TraceEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, []string{"qualify", "assess", "book"},
		[]string{resp.Data[0].Step, resp.Data[1].Step, resp.Data[2].Step})

	out, err = execute(t, "roi", "lead-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "min saved")

	out, err = execute(t, "escalations", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No escalations.")
}

func TestStepWithoutInit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leadflow.db")
	_, err := execute(t, "step", "ghost", "--db", db, "--specs", specsDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInitUnknownSequence(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leadflow.db")
	_, err := execute(t, "init", "lead-2", "--db", db, "--specs", specsDir(),
		"--sequence", "does_not_exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInitRejectsBadData(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leadflow.db")
	_, err := execute(t, "init", "lead-3", "--db", db, "--specs", specsDir(),
		"--data", "not-json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTriggerCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "leadflow.db")
	mapFile := filepath.Join(dir, "triggers.yaml")
	triggerMap := `triggers:
  qualify:
    sequence: lead_qualification
    step: true
  reply_received:
    context:
      replied: true
`
	require.NoError(t, os.WriteFile(mapFile, []byte(triggerMap), 0o644))

	out, err := execute(t, "trigger", "qualify", "lead-9",
		"--map", mapFile, "--db", db, "--specs", specsDir(),
		"--data", `{"email":"leo@example.com"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "trigger qualify handled for lead-9")
	assert.Contains(t, out, "next step: assess")

	out, err = execute(t, "status", "lead-9", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "steps:     1 executed")
}

func TestTriggerUnknownAction(t *testing.T) {
	dir := t.TempDir()
	mapFile := filepath.Join(dir, "triggers.yaml")
	require.NoError(t, os.WriteFile(mapFile, []byte("triggers:\n  qualify:\n    step: true\n"), 0o644))

	_, err := execute(t, "trigger", "nope", "lead-9",
		"--map", mapFile, "--db", filepath.Join(dir, "db"), "--specs", specsDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(t, "test", scenarios, "--filter", "crm_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ crm_sync")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join("testdata", "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
