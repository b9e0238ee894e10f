package engine

import (
	"context"
	"fmt"

	"github.com/roach88/leadflow/internal/sequence"
)

// simplifiedResult constructs the reduced, locally computable result for
// a failed action. This tier must never call an external system: it only
// builds a result the sequence can continue on, stamped so history and
// ROI reporting can tell it apart from a real execution.
func simplifiedResult(action sequence.ActionID) ActionResult {
	switch canonicalAction(action) {
	case ActionQualificationEmail, ActionFollowupEmail, ActionFollowupSMS:
		return ActionResult{
			Result: map[string]any{
				sequence.KeySimplifiedFallback: true,
				"notification_created":         true,
				"message":                      "Automated outreach failed; a notification was queued for manual follow-up.",
			},
		}

	case ActionEvaluateIntent:
		// Without a real evaluation, default to a medium-confidence score
		// so downstream branching still has a number to compare.
		return ActionResult{
			Result: map[string]any{
				sequence.KeySimplifiedFallback: true,
				sequence.KeyIntentScore:        0.5,
				"intent":                       "medium",
			},
			ContextUpdates: map[string]any{
				sequence.KeyIntentScore: 0.5,
			},
			Metrics: &sequence.Metrics{Confidence: 0.5},
		}

	case ActionScheduleCall:
		return ActionResult{
			Result: map[string]any{
				sequence.KeySimplifiedFallback: true,
				"notification_created":         true,
				"message":                      "Calendar booking failed; a scheduling task was created for manual handling.",
			},
		}

	default:
		return ActionResult{
			Result: map[string]any{
				sequence.KeySimplifiedFallback: true,
				"skipped":                      true,
				"message":                      fmt.Sprintf("action %s could not run; recorded for manual review", action),
			},
		}
	}
}

// escalationPriorities is the static action criticality table. Scheduling
// and closing are time-critical; qualification and evaluation matter but
// can wait a business day.
var escalationPriorities = map[sequence.ActionID]sequence.EscalationPriority{
	ActionScheduleCall:       sequence.PriorityHigh,
	ActionCloseDeal:          sequence.PriorityHigh,
	ActionQualificationEmail: sequence.PriorityMedium,
	ActionEvaluateIntent:     sequence.PriorityMedium,
}

func escalationPriority(action sequence.ActionID) sequence.EscalationPriority {
	if p, ok := escalationPriorities[canonicalAction(action)]; ok {
		return p
	}
	return sequence.PriorityLow
}

// escalate records a durable human-escalation for a failed action and
// returns the result the step continues on.
//
// Escalation is the last fallback tier: its failure is the only path
// that fails the entire sequence, so the caller flips status=failed when
// this returns an error.
func (e *Engine) escalate(ctx context.Context, state *sequence.State, action sequence.ActionID, category Category, cause error) (ActionResult, error) {
	esc := sequence.Escalation{
		ID:           e.tokens.Generate(),
		EntityID:     state.EntityID,
		FailedAction: action,
		Category:     string(category),
		Context: map[string]any{
			"sequence_id": state.SequenceID,
			"step_id":     state.CurrentStepID,
			"error":       cause.Error(),
		},
		Status:    sequence.EscalationPending,
		Priority:  escalationPriority(action),
		CreatedAt: e.clock.Now(),
	}

	if err := e.store.CreateEscalation(ctx, esc); err != nil {
		return ActionResult{}, &RuntimeError{
			Code:     ErrCodeEscalationFailed,
			Message:  fmt.Sprintf("could not record escalation for action %s", action),
			EntityID: state.EntityID,
			Err:      err,
		}
	}

	e.logger.Warn("action escalated to human",
		"entity", state.EntityID,
		"action", string(action),
		"category", string(category),
		"priority", string(esc.Priority),
		"escalation", esc.ID)

	return ActionResult{
		Result: map[string]any{
			"escalated":     true,
			"escalation_id": esc.ID,
			"priority":      string(esc.Priority),
			"category":      string(category),
		},
	}, nil
}
