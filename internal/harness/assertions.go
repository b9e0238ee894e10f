package harness

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
)

// evaluate checks every set expectation against the run outcome,
// recording each mismatch on the result. All expectations are checked
// even after the first failure so a scenario reports everything wrong at
// once.
func evaluate(sc *Scenario, res *Result) {
	expect := sc.Expect
	state := res.FinalState
	if state == nil {
		res.AddError("no final state to evaluate")
		return
	}

	if expect.Status != "" && string(state.Status) != expect.Status {
		res.AddError("status: want %q, got %q", expect.Status, state.Status)
	}
	if expect.CurrentStep != nil && state.CurrentStepID != *expect.CurrentStep {
		res.AddError("current_step: want %q, got %q", *expect.CurrentStep, state.CurrentStepID)
	}

	if expect.Path != nil {
		got := make([]string, len(res.Trace))
		for i, event := range res.Trace {
			got[i] = event.Step
		}
		if !reflect.DeepEqual(expect.Path, got) {
			res.AddError("path: want %v, got %v", expect.Path, got)
		}
	}

	if expect.Simplified != nil {
		var got []string
		for _, event := range res.Trace {
			if event.Simplified {
				got = append(got, event.Step)
			}
		}
		sort.Strings(got)
		want := append([]string(nil), expect.Simplified...)
		sort.Strings(want)
		if !reflect.DeepEqual(want, got) {
			res.AddError("simplified: want %v, got %v", want, got)
		}
	}

	for key, want := range expect.Context {
		got, ok := state.Context[key]
		if !ok {
			res.AddError("context[%s]: missing (want %v)", key, want)
			continue
		}
		if !looseEqual(want, got) {
			res.AddError("context[%s]: want %v, got %v", key, want, got)
		}
	}

	if expect.Escalations != nil && len(res.Escalations) != *expect.Escalations {
		res.AddError("escalations: want %d, got %d", *expect.Escalations, len(res.Escalations))
	}
}

// looseEqual compares a YAML expectation against a context value. Numbers
// compare as floats within an epsilon so 0.9 matches the accumulated
// float a handler computed, and ints match floats of the same magnitude.
func looseEqual(want, got any) bool {
	wf, wok := numeric(want)
	gf, gok := numeric(got)
	if wok && gok {
		return math.Abs(wf-gf) < 1e-9
	}
	return reflect.DeepEqual(want, got)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
