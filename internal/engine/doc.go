// Package engine is the sequence orchestrator. It initializes per-entity
// sequence state, processes one step per invocation, and advances or
// terminates the state machine, persisting every transition through the
// state store.
//
// The engine performs no background scheduling: each ProcessCurrentStep
// call executes exactly one step and returns, and the caller (CLI,
// scheduler, API trigger) decides when to call again. A single call may
// block on the action's capability call, the retry backoff, and the
// authoritative persistence write, but never spawns concurrent
// sub-operations for one entity. Operations for different entities are
// independent and may run concurrently; per-entity write serialization
// is the store's responsibility.
package engine
