package harness

import (
	"fmt"

	"github.com/roach88/leadflow/internal/sequence"
)

// TraceEvent is one processed step in a scenario's trace. Timestamps are
// deliberately excluded so traces compare byte-identical across runs.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Step       string         `json:"step"`
	Action     string         `json:"action"`
	Simplified bool           `json:"simplified,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Errors lists expectation mismatches. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace contains one event per processed step, in order.
	Trace []TraceEvent `json:"trace"`

	// FinalState is the state after the last processed step.
	FinalState *sequence.State `json:"final_state"`

	// Escalations holds every escalation record the run created.
	Escalations []sequence.Escalation `json:"escalations,omitempty"`
}

// AddError records an expectation mismatch and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
