// Package store provides durable persistence for sequence execution
// state: one authoritative record per entity, an append-only step history,
// and escalation records.
//
// Two implementations share the StateStore interface: the SQLite-backed
// Store (the durable backend) and MemoryStore (a non-durable fallback for
// environments without a database, and for the scenario harness).
package store
