package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/leadflow/internal/engine"
	"github.com/roach88/leadflow/internal/sequence"
)

// StateView is the JSON shape of a sequence state in CLI output.
type StateView struct {
	EntityID    string         `json:"entity_id"`
	SequenceID  string         `json:"sequence_id"`
	CurrentStep string         `json:"current_step,omitempty"`
	Status      string         `json:"status"`
	Steps       int            `json:"steps_executed"`
	Version     int64          `json:"version"`
	Context     map[string]any `json:"context,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newStateView(state *sequence.State) StateView {
	return StateView{
		EntityID:    state.EntityID,
		SequenceID:  state.SequenceID,
		CurrentStep: state.CurrentStepID,
		Status:      string(state.Status),
		Steps:       len(state.History),
		Version:     state.Version,
		Context:     state.Context,
		UpdatedAt:   state.UpdatedAt,
	}
}

func printStateText(w io.Writer, state *sequence.State) {
	fmt.Fprintf(w, "entity:    %s\n", state.EntityID)
	fmt.Fprintf(w, "sequence:  %s\n", state.SequenceID)
	fmt.Fprintf(w, "status:    %s\n", state.Status)
	if state.CurrentStepID != "" {
		fmt.Fprintf(w, "next step: %s\n", state.CurrentStepID)
	}
	fmt.Fprintf(w, "steps:     %d executed\n", len(state.History))
	fmt.Fprintf(w, "updated:   %s\n", state.UpdatedAt.Format(time.RFC3339))
}

// exitErrorForEngine maps engine runtime errors to exit codes.
// Configuration mistakes (unknown sequence or step) are command errors;
// domain outcomes (terminal state, failed escalation, quota) are
// failures.
func exitErrorForEngine(err error) *ExitError {
	switch {
	case engine.IsSequenceNotFound(err), engine.IsUnknownStep(err):
		return WrapExitError(ExitCommandError, "engine", err)
	default:
		return WrapExitError(ExitFailure, "engine", err)
	}
}
