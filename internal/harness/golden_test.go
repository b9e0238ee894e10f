package harness

import (
	"path/filepath"
	"testing"
)

func TestGoldenTrace(t *testing.T) {
	RunWithGolden(t, filepath.Join("testdata", "scenarios", "crm_sync.yaml"))
}
