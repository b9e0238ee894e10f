// Package sequence defines the core domain model for the leadflow engine:
// sequence definitions (static step graphs), per-entity execution state,
// step history, conditions, and escalation records.
//
// Everything in this package is pure data and pure functions. Side effects
// (persistence, capability calls, retries) live in internal/store and
// internal/engine.
package sequence
