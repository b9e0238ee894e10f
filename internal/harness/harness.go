package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/leadflow/internal/capability"
	"github.com/roach88/leadflow/internal/compiler"
	"github.com/roach88/leadflow/internal/engine"
	"github.com/roach88/leadflow/internal/sequence"
	"github.com/roach88/leadflow/internal/store"
	"github.com/roach88/leadflow/internal/testutil"
)

// runnerMaxSteps bounds run-to-terminal scenarios so a looping sequence
// fails the scenario instead of hanging the suite.
const runnerMaxSteps = 50

// fastRetry keeps scripted-failure scenarios quick while preserving the
// production retry shape.
func fastRetry(maxRetries int) engine.RetryConfig {
	return engine.RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      5 * time.Millisecond,
	}
}

// counterTokens issues sequential escalation ids so traces and golden
// files stay byte-stable across runs.
type counterTokens struct {
	mu sync.Mutex
	n  int
}

func (g *counterTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("esc-%03d", g.n)
}

// Run executes a scenario against a fresh in-memory engine and evaluates
// its expectations.
//
// Setup problems (unreadable CUE, initialize failures) return an error.
// Runtime failures the scenario may intend to provoke, and expectation
// mismatches, are recorded on the Result instead.
func Run(sc *Scenario) (*Result, error) {
	var defs []sequence.Definition
	for _, path := range sc.SequencePaths() {
		loaded, err := compiler.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		defs = append(defs, loaded...)
	}
	if err := compiler.ValidateAll(defs); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	caps := capability.NewScripted()
	for _, f := range sc.Failures {
		caps.FailNext(f.Channel, f.Times, errors.New(f.Error))
	}

	retry := fastRetry(engine.DefaultRetryConfig().MaxRetries)
	if sc.MaxRetries != nil {
		retry.MaxRetries = *sc.MaxRetries
	}
	simplified := true
	if sc.SimplifiedFallback != nil {
		simplified = *sc.SimplifiedFallback
	}

	st := store.NewMemoryStore()
	defer st.Close()

	eng := engine.New(engine.NewRegistry(defs...), st, caps,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithTokenGenerator(&counterTokens{}),
		engine.WithRetryConfig(retry),
		engine.WithSimplifiedFallback(simplified),
	)

	ctx := context.Background()
	entity := sequence.Entity{
		ID:     sc.Entity.ID,
		Domain: sc.Entity.Domain,
		Data:   sc.Entity.Data,
	}
	state, err := eng.Initialize(ctx, entity, sc.Sequence)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: initialize: %w", sc.Name, err)
	}

	res := &Result{Pass: true}
	state, procErr := process(ctx, eng, sc, state)
	if procErr != nil {
		res.AddError("processing: %v", procErr)
	}
	if state == nil {
		// ProcessCurrentStep returns no state on configuration errors;
		// fall back to the persisted record for evaluation.
		if persisted, found, getErr := st.Get(ctx, sc.Entity.ID); getErr == nil && found {
			state = persisted
		}
	}
	res.FinalState = state
	res.Trace = buildTrace(state)

	escalations, err := st.ListEscalations(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: list escalations: %w", sc.Name, err)
	}
	res.Escalations = escalations

	evaluate(sc, res)
	return res, nil
}

func process(ctx context.Context, eng *engine.Engine, sc *Scenario, state *sequence.State) (*sequence.State, error) {
	if sc.Steps > 0 {
		for i := 0; i < sc.Steps && !state.Terminal(); i++ {
			next, err := eng.ProcessCurrentStep(ctx, state)
			if err != nil {
				return next, err
			}
			state = next
		}
		return state, nil
	}
	return engine.NewRunner(eng, engine.WithMaxSteps(runnerMaxSteps)).Run(ctx, state)
}

func buildTrace(state *sequence.State) []TraceEvent {
	if state == nil {
		return nil
	}
	trace := make([]TraceEvent, 0, len(state.History))
	for i := range state.History {
		exec := &state.History[i]
		event := TraceEvent{
			Seq:        exec.Seq,
			Step:       exec.StepID,
			Action:     string(exec.Action),
			Simplified: exec.Simplified(),
		}
		if len(exec.Result) > 0 {
			event.Result = make(map[string]any, len(exec.Result))
			for k, v := range exec.Result {
				event.Result[k] = v
			}
		}
		trace = append(trace, event)
	}
	return trace
}
