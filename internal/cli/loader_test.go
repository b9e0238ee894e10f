package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSequences(t *testing.T) {
	result, err := LoadSequences(filepath.Join("testdata", "sequences"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Definitions, 1)
	assert.Equal(t, "lead_qualification", result.Definitions[0].ID)
	assert.Len(t, result.Definitions[0].Steps, 4)
}

func TestLoadSequencesMissingDir(t *testing.T) {
	_, err := LoadSequences(filepath.Join("testdata", "nope"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadSequencesEmptyDir(t *testing.T) {
	_, err := LoadSequences(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadSequencesDuplicateID(t *testing.T) {
	dir := t.TempDir()
	def := `sequence: dup: {
	steps: [{id: "only", action: "log_activity"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(def), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte(def), 0o644))

	_, err := LoadSequences(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sequence "dup" declared in both`)
}

func TestLoadSequencesCompileError(t *testing.T) {
	dir := t.TempDir()
	def := `sequence: broken: {
	steps: [{id: "only"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte(def), 0o644))

	_, err := LoadSequences(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeLoadFailed, loadErr.Code)
	assert.Contains(t, loadErr.Message, "action is required")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("y: 2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
