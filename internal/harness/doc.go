// Package harness provides scenario-based conformance testing for the
// sequence engine.
//
// Scenarios are YAML files that describe an entity, the CUE sequence
// definitions to load, scripted capability failures, how many steps to
// process, and the expected outcome:
//
//	name: qualification_fallback
//	description: "Email outage degrades to the simplified fallback"
//	sequences:
//	  - sequences/lead_qualification.cue
//	entity:
//	  id: lead-1
//	  data:
//	    email: ana@example.com
//	failures:
//	  - channel: email
//	    times: -1
//	    error: "connection refused"
//	max_retries: 2
//	steps: 1
//	expect:
//	  status: active
//	  current_step: assess
//	  path: [qualify]
//	  simplified: [qualify]
//
// Every scenario executes against the in-memory store, the scripted
// capability client, a deterministic clock, and counter-based escalation
// tokens, so repeated runs produce identical traces. RunWithGolden
// compares the canonical-JSON trace against a golden file under
// testdata/golden (regenerate with `go test ./internal/harness -update`).
package harness
