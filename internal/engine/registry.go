package engine

import (
	"context"

	"github.com/roach88/leadflow/internal/sequence"
)

// ActionHandler executes one step's action against the current state.
// Handlers never retry internally; the engine wraps every call in the
// retry/fallback ladder and a per-action deadline.
type ActionHandler func(ctx context.Context, state *sequence.State) (ActionResult, error)

// ActionResult is the uniform handler outcome. The engine records Result
// and Metrics on the step's history entry and merges ContextUpdates into
// the execution context.
type ActionResult struct {
	Result         map[string]any
	ContextUpdates map[string]any
	Metrics        *sequence.Metrics
}

type actionKey struct {
	sequenceID string
	action     sequence.ActionID
}

type domainKey struct {
	action sequence.ActionID
	domain string
}

// Registry maps sequence ids to definitions and (sequence, action) pairs
// to executable handlers.
//
// Population happens once at process start; the registry is read-only
// thereafter, so lookups need no synchronization. A lookup miss is not
// an error at this layer: the action executor falls through to the
// built-in handler table before giving up.
type Registry struct {
	definitions       map[string]sequence.Definition
	order             []string
	actions           map[actionKey]ActionHandler
	domainHandlers    map[domainKey]ActionHandler
	defaultSequenceID string
}

// NewRegistry builds a registry over the given definitions. The first
// definition becomes the default sequence unless SetDefaultSequence
// overrides it. Definitions are deep-copied so later mutation by the
// caller cannot change compiled sequences under the engine.
func NewRegistry(defs ...sequence.Definition) *Registry {
	r := &Registry{
		definitions:    make(map[string]sequence.Definition, len(defs)),
		actions:        make(map[actionKey]ActionHandler),
		domainHandlers: make(map[domainKey]ActionHandler),
	}
	for _, def := range defs {
		if _, exists := r.definitions[def.ID]; !exists {
			r.order = append(r.order, def.ID)
		}
		r.definitions[def.ID] = def.Clone()
	}
	if len(r.order) > 0 {
		r.defaultSequenceID = r.order[0]
	}
	return r
}

// SetDefaultSequence names the definition used when neither an explicit
// id nor a domain match resolves one.
func (r *Registry) SetDefaultSequence(id string) {
	r.defaultSequenceID = id
}

// RegisterAction binds a handler to a (sequence, action) pair.
func (r *Registry) RegisterAction(sequenceID string, action sequence.ActionID, handler ActionHandler) {
	r.actions[actionKey{sequenceID, action}] = handler
}

// RegisterDomainHandler binds a vertical-specific handler to an
// (action, domain) pair. Domain handlers win over registered handlers.
func (r *Registry) RegisterDomainHandler(action sequence.ActionID, domain string, handler ActionHandler) {
	r.domainHandlers[domainKey{action, domain}] = handler
}

// Definition returns the definition with the given id.
func (r *Registry) Definition(id string) (sequence.Definition, bool) {
	def, ok := r.definitions[id]
	return def, ok
}

// Definitions returns every registered definition in registration order.
func (r *Registry) Definitions() []sequence.Definition {
	out := make([]sequence.Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.definitions[id])
	}
	return out
}

// DefinitionForDomain returns the first definition declared for the
// given domain, falling back to the default sequence.
func (r *Registry) DefinitionForDomain(domain string) (sequence.Definition, bool) {
	if domain != "" {
		for _, id := range r.order {
			if r.definitions[id].Domain == domain {
				return r.definitions[id], true
			}
		}
	}
	return r.DefaultDefinition()
}

// DefaultDefinition returns the default sequence definition.
func (r *Registry) DefaultDefinition() (sequence.Definition, bool) {
	def, ok := r.definitions[r.defaultSequenceID]
	return def, ok
}

// Action returns the handler registered for a (sequence, action) pair.
func (r *Registry) Action(sequenceID string, action sequence.ActionID) (ActionHandler, bool) {
	h, ok := r.actions[actionKey{sequenceID, action}]
	return h, ok
}

// DomainHandler returns the handler registered for an (action, domain)
// pair.
func (r *Registry) DomainHandler(action sequence.ActionID, domain string) (ActionHandler, bool) {
	h, ok := r.domainHandlers[domainKey{action, domain}]
	return h, ok
}
