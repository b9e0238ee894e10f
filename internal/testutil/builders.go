package testutil

import (
	"fmt"

	"github.com/roach88/leadflow/internal/sequence"
)

// LinearDefinition builds a sequence of steps chained in order, one step
// per action, ending in a terminal step. Step ids are step1..stepN.
func LinearDefinition(id string, actions ...sequence.ActionID) sequence.Definition {
	def := sequence.Definition{ID: id}
	for i, action := range actions {
		step := sequence.Step{
			ID:     stepID(i),
			Action: action,
		}
		if i < len(actions)-1 {
			step.Next = []string{stepID(i + 1)}
		}
		def.Steps = append(def.Steps, step)
	}
	return def
}

// BranchStep builds a conditional step with a primary and fallback
// branch.
func BranchStep(id string, action sequence.ActionID, cond sequence.Condition, primary, fallback string) sequence.Step {
	return sequence.Step{
		ID:         id,
		Action:     action,
		Conditions: []sequence.Condition{cond},
		Next:       []string{primary, fallback},
	}
}

func stepID(i int) string {
	return fmt.Sprintf("step%d", i+1)
}
