package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "qualification_fallback.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "qualification_fallback", sc.Name)
	assert.Equal(t, "lead-1", sc.Entity.ID)
	assert.Equal(t, 1, sc.Steps)
	require.NotNil(t, sc.MaxRetries)
	assert.Equal(t, 1, *sc.MaxRetries)
	require.Len(t, sc.Failures, 1)
	assert.Equal(t, "email", sc.Failures[0].Channel)
	assert.Equal(t, -1, sc.Failures[0].Times)
	assert.Equal(t, []string{"qualify"}, sc.Expect.Path)
	assert.Equal(t, []string{"qualify"}, sc.Expect.Simplified)
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: bad
sequences: [seq.cue]
entity:
  id: lead-1
surprise: true
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surprise")
}

func TestLoadScenarioValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing entity id",
			body: "name: x\nsequences: [seq.cue]\nentity:\n  domain: saas\n",
			want: "entity.id is required",
		},
		{
			name: "no sequences",
			body: "name: x\nentity:\n  id: lead-1\n",
			want: "at least one sequence file",
		},
		{
			name: "unknown failure channel",
			body: "name: x\nsequences: [seq.cue]\nentity:\n  id: lead-1\nfailures:\n  - channel: fax\n    times: 1\n    error: busy\n",
			want: `unknown channel "fax"`,
		},
		{
			name: "unknown expect status",
			body: "name: x\nsequences: [seq.cue]\nentity:\n  id: lead-1\nexpect:\n  status: paused\n",
			want: `unknown status "paused"`,
		},
		{
			name: "negative steps",
			body: "name: x\nsequences: [seq.cue]\nentity:\n  id: lead-1\nsteps: -1\n",
			want: "steps must be >= 0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSequencePathsResolveRelative(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "crm_sync.yaml"))
	require.NoError(t, err)

	paths := sc.SequencePaths()
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "sequences", "crm_sync.cue"), paths[0])
}
