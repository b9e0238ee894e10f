// Package compiler turns CUE sequence declarations into validated
// sequence definitions.
//
// Sequences are authored as CUE structs under a top-level "sequence"
// field, one entry per sequence id:
//
//	sequence: lead_qualification: {
//		description: "Qualify inbound leads and book discovery calls"
//		domain:      "default"
//		steps: [
//			{id: "qualify", action: "send_qualification_email", next: ["assess"]},
//			{
//				id:     "assess"
//				action: "evaluate_intent"
//				conditions: [{attribute: "intent_score", operator: "greater_than", value: 0.7}]
//				next: ["schedule", "nurture"]
//			},
//			{id: "schedule", action: "schedule_discovery_call"},
//			{id: "nurture", action: "send_followup_email"},
//		]
//	}
//
// Compilation happens in three passes: CompileSequence parses the CUE
// value into a Definition, Validate enforces the structural rules the
// engine relies on (collecting every violation, not just the first), and
// AnalyzeCycles surfaces loops in the step graph as warnings.
package compiler
