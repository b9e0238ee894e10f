package engine

import (
	"context"
	"fmt"

	"github.com/roach88/leadflow/internal/sequence"
)

// DefaultMaxSteps is the default per-run step quota.
//
// Sequence graphs may contain intentional loops (nurture cycles with a
// conditional exit), so the compiler only warns about them; the quota is
// the runtime guarantee that a run terminates.
const DefaultMaxSteps = 100

// Runner drives a state to a terminal status by calling
// ProcessCurrentStep repeatedly, bounded by a max-steps quota.
type Runner struct {
	engine   *Engine
	maxSteps int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxSteps sets the per-run step quota.
func WithMaxSteps(maxSteps int) RunnerOption {
	return func(r *Runner) { r.maxSteps = maxSteps }
}

// NewRunner creates a Runner over an engine.
func NewRunner(e *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{engine: e, maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes steps until the state reaches a terminal status.
//
// Returns a QUOTA_EXCEEDED error when the quota runs out first; the
// state remains active and persisted at its last processed step, so a
// later run can pick it up.
func (r *Runner) Run(ctx context.Context, state *sequence.State) (*sequence.State, error) {
	for steps := 0; !state.Terminal(); steps++ {
		if steps >= r.maxSteps {
			return state, &RuntimeError{
				Code:     ErrCodeQuotaExceeded,
				Message:  fmt.Sprintf("run exceeded max steps (%d)", r.maxSteps),
				EntityID: state.EntityID,
			}
		}
		next, err := r.engine.ProcessCurrentStep(ctx, state)
		if err != nil {
			return next, err
		}
		state = next
	}
	return state, nil
}
