package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/leadflow/internal/sequence"
)

// RunWithGolden runs a scenario and compares its canonical trace against
// the golden file testdata/golden/<name>.golden. Expectation mismatches
// fail the test alongside any trace drift.
func RunWithGolden(t *testing.T, scenarioPath string) *Result {
	t.Helper()

	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	res, err := Run(sc)
	if err != nil {
		t.Fatalf("run scenario %s: %v", sc.Name, err)
	}
	for _, msg := range res.Errors {
		t.Errorf("scenario %s: %s", sc.Name, msg)
	}

	snapshot := map[string]any{
		"scenario":     sc.Name,
		"final_status": string(res.FinalState.Status),
		"trace":        res.Trace,
	}
	data, err := sequence.MarshalCanonical(snapshot)
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return res
}
