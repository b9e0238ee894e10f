package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/leadflow/internal/capability"
	"github.com/roach88/leadflow/internal/sequence"
)

// Canonical action ids handled by the built-in switch. Sequence authors
// may also use the legacy names in actionAliases; both forms resolve to
// the same handler.
const (
	ActionQualificationEmail sequence.ActionID = "send_qualification_email"
	ActionFollowupEmail      sequence.ActionID = "send_followup_email"
	ActionFollowupSMS        sequence.ActionID = "send_followup_sms"
	ActionEvaluateIntent     sequence.ActionID = "evaluate_intent"
	ActionScheduleCall       sequence.ActionID = "schedule_discovery_call"
	ActionUpdateCRM          sequence.ActionID = "update_crm_record"
	ActionCloseDeal          sequence.ActionID = "close_deal"
	ActionLogActivity        sequence.ActionID = "log_activity"
)

// actionAliases translates legacy action names to canonical ids. Applied
// only at the third resolution tier, after domain and registered
// handlers have had their chance.
var actionAliases = map[sequence.ActionID]sequence.ActionID{
	"qualification_email":  ActionQualificationEmail,
	"qualify_lead":         ActionQualificationEmail,
	"followup":             ActionFollowupEmail,
	"follow_up_email":      ActionFollowupEmail,
	"send_sms":             ActionFollowupSMS,
	"intent_evaluation":    ActionEvaluateIntent,
	"evaluate_lead_intent": ActionEvaluateIntent,
	"meeting_scheduling":   ActionScheduleCall,
	"schedule_meeting":     ActionScheduleCall,
	"book_call":            ActionScheduleCall,
	"crm_update":           ActionUpdateCRM,
	"log_action":           ActionLogActivity,
}

// canonicalAction resolves a legacy alias to its canonical id.
func canonicalAction(action sequence.ActionID) sequence.ActionID {
	if canonical, ok := actionAliases[action]; ok {
		return canonical
	}
	return action
}

// resolveHandler finds the executable handler for a step's action.
//
// Resolution order, first match wins:
//  1. a domain-specific handler keyed (action, domain), when the state
//     carries a domain
//  2. a registry handler keyed (sequence, action)
//  3. the alias table, then the built-in switch of canonical handlers
func (e *Engine) resolveHandler(sequenceID string, action sequence.ActionID, state *sequence.State) (ActionHandler, bool) {
	if domain, ok := state.Context.String(sequence.KeyDomain); ok && domain != "" {
		if h, ok := e.registry.DomainHandler(action, domain); ok {
			return h, true
		}
	}
	if h, ok := e.registry.Action(sequenceID, action); ok {
		return h, true
	}
	return e.builtinHandler(canonicalAction(action))
}

// builtinHandler returns the built-in implementation of a canonical
// action, backed by the capability client.
func (e *Engine) builtinHandler(action sequence.ActionID) (ActionHandler, bool) {
	switch action {
	case ActionQualificationEmail:
		return e.emailHandler("qualification", "Following up on your inquiry", 15), true
	case ActionFollowupEmail:
		return e.emailHandler("followup", "Checking in", 10), true
	case ActionFollowupSMS:
		return e.smsHandler, true
	case ActionEvaluateIntent:
		return e.evaluateIntent, true
	case ActionScheduleCall:
		return e.scheduleCall, true
	case ActionUpdateCRM:
		return e.updateCRM, true
	case ActionCloseDeal:
		return e.closeDeal, true
	case ActionLogActivity:
		return e.logActivity, true
	default:
		return nil, false
	}
}

func (e *Engine) emailHandler(template, subject string, timeSavedMinutes float64) ActionHandler {
	return func(ctx context.Context, state *sequence.State) (ActionResult, error) {
		to, _ := state.Context.String("email")
		res, err := e.caps.SendEmail(ctx, capability.EmailRequest{
			EntityID: state.EntityID,
			To:       to,
			Subject:  subject,
			Template: template,
		})
		if err != nil {
			return ActionResult{}, err
		}
		return ActionResult{
			Result: mergeDetail(map[string]any{
				"email_sent": res.Success,
				"template":   template,
			}, res),
			ContextUpdates: map[string]any{
				sequence.KeyLeadStatus: "contacted",
			},
			Metrics: &sequence.Metrics{TimeSavedMinutes: timeSavedMinutes},
		}, nil
	}
}

func (e *Engine) smsHandler(ctx context.Context, state *sequence.State) (ActionResult, error) {
	to, _ := state.Context.String("phone")
	res, err := e.caps.SendSMS(ctx, capability.SMSRequest{
		EntityID: state.EntityID,
		To:       to,
		Message:  "Quick check-in: still interested? Reply YES to book a call.",
	})
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Result: mergeDetail(map[string]any{"sms_sent": res.Success}, res),
		ContextUpdates: map[string]any{
			sequence.KeyLeadStatus: "contacted",
		},
		Metrics: &sequence.Metrics{TimeSavedMinutes: 5},
	}, nil
}

// evaluateIntent scores the lead's buying intent from engagement signals
// already present in the context. Purely local: no capability call.
func (e *Engine) evaluateIntent(_ context.Context, state *sequence.State) (ActionResult, error) {
	score, ok := state.Context.Float(sequence.KeyIntentScore)
	if !ok {
		score = 0.5
	}
	if opened, _ := state.Context.Bool("email_opened"); opened {
		score += 0.15
	}
	if replied, _ := state.Context.Bool("replied"); replied {
		score += 0.25
	}
	if score > 1.0 {
		score = 1.0
	}

	return ActionResult{
		Result: map[string]any{
			sequence.KeyIntentScore: score,
			"intent":                intentLabel(score),
		},
		ContextUpdates: map[string]any{
			sequence.KeyIntentScore: score,
		},
		Metrics: &sequence.Metrics{TimeSavedMinutes: 20, Confidence: score},
	}, nil
}

func intentLabel(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func (e *Engine) scheduleCall(ctx context.Context, state *sequence.State) (ActionResult, error) {
	res, err := e.caps.BookCalendarEvent(ctx, capability.CalendarRequest{
		EntityID:        state.EntityID,
		Title:           "Discovery call",
		Start:           e.clock.Now().Add(24 * time.Hour),
		DurationMinutes: 30,
	})
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Result: mergeDetail(map[string]any{"meeting_booked": res.Success}, res),
		ContextUpdates: map[string]any{
			sequence.KeyLeadStatus: "scheduled",
		},
		Metrics: &sequence.Metrics{TimeSavedMinutes: 30},
	}, nil
}

func (e *Engine) updateCRM(ctx context.Context, state *sequence.State) (ActionResult, error) {
	fields := map[string]any{}
	if status, ok := state.Context.String(sequence.KeyLeadStatus); ok {
		fields["lead_status"] = status
	}
	if score, ok := state.Context.Float(sequence.KeyIntentScore); ok {
		fields["intent_score"] = score
	}
	res, err := e.caps.UpdateCRMRecord(ctx, capability.CRMUpdate{
		EntityID: state.EntityID,
		Fields:   fields,
	})
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Result:  mergeDetail(map[string]any{"crm_updated": res.Success}, res),
		Metrics: &sequence.Metrics{TimeSavedMinutes: 5},
	}, nil
}

func (e *Engine) closeDeal(ctx context.Context, state *sequence.State) (ActionResult, error) {
	dealValue, _ := state.Context.Float("deal_value")
	previous, _ := state.Context.String(sequence.KeyLeadStatus)

	res, err := e.caps.UpdateCRMRecord(ctx, capability.CRMUpdate{
		EntityID: state.EntityID,
		Fields: map[string]any{
			"stage":      "closed_won",
			"deal_value": dealValue,
		},
	})
	if err != nil {
		return ActionResult{}, err
	}

	result := mergeDetail(map[string]any{"deal_closed": res.Success}, res)
	// A cold lead closing is a deal rescue; ROI aggregation counts these.
	result["previous_status"] = previous
	result["new_status"] = "customer"

	return ActionResult{
		Result: result,
		ContextUpdates: map[string]any{
			sequence.KeyLeadStatus: "customer",
		},
		Metrics: &sequence.Metrics{TimeSavedMinutes: 60, RevenueImpact: dealValue},
	}, nil
}

func (e *Engine) logActivity(ctx context.Context, state *sequence.State) (ActionResult, error) {
	err := e.caps.LogAction(ctx, capability.AuditEntry{
		EntityID: state.EntityID,
		Action:   string(ActionLogActivity),
		Detail:   fmt.Sprintf("sequence %s at step %s", state.SequenceID, state.CurrentStepID),
	})
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{
		Result: map[string]any{"logged": true},
	}, nil
}

// mergeDetail folds capability detail fields (message ids, booking
// links) into a handler result.
func mergeDetail(base map[string]any, res capability.Result) map[string]any {
	for k, v := range res.Detail {
		if _, exists := base[k]; !exists {
			base[k] = v
		}
	}
	return base
}
