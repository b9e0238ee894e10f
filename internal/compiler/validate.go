package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/leadflow/internal/sequence"
)

// Validation error codes (E200-E299)
const (
	ErrSequenceIDEmpty   = "E200" // sequence id is required
	ErrSequenceNoSteps   = "E201" // at least one step required
	ErrDuplicateStepID   = "E202" // duplicate step id
	ErrUnknownNextStep   = "E203" // next references a step that does not exist
	ErrBranchShape       = "E204" // conditional step needs >= 2 next ids; plain step <= 1
	ErrInvalidOperator   = "E205" // unknown condition operator
	ErrEmptyAttribute    = "E206" // condition attribute is required
	ErrUnreachableStep   = "E207" // step cannot be reached from the entry step
	ErrSelfReferenceNext = "E208" // step advances unconditionally to itself
)

// ValidationError represents a structural rule violation in a compiled
// sequence definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled definition against the structural rules the
// engine relies on at runtime. Returns all errors found (does not
// fail-fast) so authors can fix a spec file in one pass.
func Validate(def *sequence.Definition) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(def.ID) == "" {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "sequence id is required and must be non-empty",
			Code:    ErrSequenceIDEmpty,
		})
	}

	if len(def.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "sequence must define at least one step",
			Code:    ErrSequenceNoSteps,
		})
		return errs
	}

	ids := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if ids[step.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps.%s", step.ID),
				Message: "duplicate step id",
				Code:    ErrDuplicateStepID,
			})
		}
		ids[step.ID] = true
	}

	for i := range def.Steps {
		errs = append(errs, validateStep(&def.Steps[i], ids)...)
	}

	errs = append(errs, validateReachability(def)...)

	return errs
}

// validateStep enforces the branch-shape invariant:
// conditions present  -> at least 2 next ids (branch + fallback)
// conditions absent   -> 0 or 1 next ids (terminal or linear)
func validateStep(step *sequence.Step, ids map[string]bool) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("steps.%s", step.ID)

	if len(step.Conditions) > 0 && len(step.Next) < 2 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("conditional step must name a branch and a fallback next step, got %d", len(step.Next)),
			Code:    ErrBranchShape,
		})
	}
	if len(step.Conditions) == 0 && len(step.Next) > 1 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("step without conditions may name at most one next step, got %d", len(step.Next)),
			Code:    ErrBranchShape,
		})
	}

	for _, target := range step.Next {
		if !ids[target] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("next step %q does not exist", target),
				Code:    ErrUnknownNextStep,
			})
		}
		if target == step.ID && len(step.Conditions) == 0 {
			// An unconditional self-loop can never terminate.
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "step advances unconditionally to itself",
				Code:    ErrSelfReferenceNext,
			})
		}
	}

	for i, cond := range step.Conditions {
		condField := fmt.Sprintf("%s.conditions[%d]", field, i)
		if strings.TrimSpace(cond.Attribute) == "" {
			errs = append(errs, ValidationError{
				Field:   condField,
				Message: "condition attribute is required",
				Code:    ErrEmptyAttribute,
			})
		}
		if !sequence.ValidOperators[cond.Operator] {
			errs = append(errs, ValidationError{
				Field:   condField,
				Message: fmt.Sprintf("unknown operator %q", cond.Operator),
				Code:    ErrInvalidOperator,
			})
		}
	}

	return errs
}

// validateReachability flags steps the entry step can never reach.
// Unreachable steps are authoring mistakes: the engine starts every
// entity at the first step.
func validateReachability(def *sequence.Definition) []ValidationError {
	reached := make(map[string]bool, len(def.Steps))
	var visit func(id string)
	visit = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		if step, ok := def.StepByID(id); ok {
			for _, next := range step.Next {
				visit(next)
			}
		}
	}
	visit(def.Steps[0].ID)

	var errs []ValidationError
	for _, step := range def.Steps {
		if !reached[step.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps.%s", step.ID),
				Message: "step is unreachable from the entry step",
				Code:    ErrUnreachableStep,
			})
		}
	}
	return errs
}
