package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/leadflow/internal/capability"
	"github.com/roach88/leadflow/internal/sequence"
	"github.com/roach88/leadflow/internal/store"
)

// DefaultActionTimeout bounds each capability call. The retry subsystem
// bounds attempt count and backoff, but a hung capability call would
// otherwise hold the caller indefinitely.
const DefaultActionTimeout = 30 * time.Second

// Engine is the sequence orchestrator.
//
// All mutation of a SequenceState happens inside Initialize and
// ProcessCurrentStep; the store owns durability. The engine holds no
// per-entity state of its own, so one Engine value serves concurrent
// callers as long as they operate on different entities.
type Engine struct {
	registry *Registry
	store    store.StateStore
	caps     capability.Client
	logger   *slog.Logger
	clock    Clock
	tokens   TokenGenerator

	retry              RetryConfig
	actionTimeout      time.Duration
	simplifiedFallback bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock injects a deterministic clock for tests and the harness.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithTokenGenerator injects the escalation-id generator.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(e *Engine) { e.tokens = gen }
}

// WithRetryConfig tunes the retry subsystem.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// WithActionTimeout sets the per-capability-call deadline.
func WithActionTimeout(d time.Duration) Option {
	return func(e *Engine) { e.actionTimeout = d }
}

// WithSimplifiedFallback enables or disables the simplified-action
// fallback tier. When disabled, a failed action escalates directly.
func WithSimplifiedFallback(enabled bool) Option {
	return func(e *Engine) { e.simplifiedFallback = enabled }
}

// New creates an Engine over a registry, a state store, and a capability
// client.
func New(registry *Registry, st store.StateStore, caps capability.Client, opts ...Option) *Engine {
	e := &Engine{
		registry:           registry,
		store:              st,
		caps:               caps,
		logger:             slog.Default(),
		clock:              SystemClock{},
		tokens:             UUIDv7Generator{},
		retry:              DefaultRetryConfig(),
		actionTimeout:      DefaultActionTimeout,
		simplifiedFallback: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize creates or resumes the sequence state for an entity.
//
// Idempotent resume: an existing active state is returned unchanged. A
// terminal prior state is replaced by a fresh run. The sequence
// definition resolves from the explicit id when given, else from the
// entity's domain, else the registry default.
func (e *Engine) Initialize(ctx context.Context, entity sequence.Entity, sequenceID string) (*sequence.State, error) {
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	existing, found, err := e.store.Get(ctx, entity.ID)
	if err != nil {
		return nil, fmt.Errorf("initialize %s: %w", entity.ID, err)
	}
	if found && !existing.Terminal() {
		e.logger.Debug("resuming active sequence",
			"entity", entity.ID,
			"sequence", existing.SequenceID,
			"step", existing.CurrentStepID)
		return existing, nil
	}

	def, ok := e.resolveDefinition(entity, sequenceID)
	if !ok || len(def.Steps) == 0 {
		return nil, NewSequenceNotFoundError(entity.ID, sequenceID)
	}
	first, _ := def.FirstStep()

	if found {
		// Prior run is terminal: clear it so the new run starts with a
		// clean history.
		if err := e.store.Delete(ctx, entity.ID); err != nil {
			return nil, fmt.Errorf("initialize %s: clear terminal state: %w", entity.ID, err)
		}
	}

	now := e.clock.Now()
	state := &sequence.State{
		EntityID:      entity.ID,
		SequenceID:    def.ID,
		CurrentStepID: first.ID,
		Status:        sequence.StatusActive,
		Context:       seedContext(entity),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.store.Save(ctx, state); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// A concurrent initialize created the state first; adopt it.
			winner, ok, getErr := e.store.Get(ctx, entity.ID)
			if getErr == nil && ok {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("initialize %s: %w", entity.ID, err)
	}

	e.logger.Info("sequence initialized",
		"entity", entity.ID,
		"sequence", def.ID,
		"step", first.ID)
	return state, nil
}

func (e *Engine) resolveDefinition(entity sequence.Entity, sequenceID string) (sequence.Definition, bool) {
	if sequenceID != "" {
		return e.registry.Definition(sequenceID)
	}
	return e.registry.DefinitionForDomain(entity.Domain)
}

// seedContext builds the initial execution context from entity data plus
// engine-computed defaults. The initial intent score derives from a raw
// confidence signal when present: min(confidence * 1.2, 1.0), 0.5
// otherwise.
func seedContext(entity sequence.Entity) sequence.Context {
	c := sequence.Context{}
	c.Merge(entity.Data)
	if entity.Domain != "" {
		c.Set(sequence.KeyDomain, entity.Domain)
	}
	if _, ok := c[sequence.KeyIntentScore]; !ok {
		score := 0.5
		if confidence, ok := c.Float(sequence.KeyConfidence); ok {
			score = confidence * 1.2
			if score > 1.0 {
				score = 1.0
			}
		}
		c.Set(sequence.KeyIntentScore, score)
	}
	if _, ok := c.String(sequence.KeyLeadStatus); !ok {
		c.Set(sequence.KeyLeadStatus, "new")
	}
	return c
}

// ProcessCurrentStep executes exactly one step: run the action through
// the retry/fallback ladder, append the history entry, merge context
// updates, select the next step, and persist.
//
// A terminal state is rejected with a SEQUENCE_TERMINAL error. Unknown
// sequence or step ids abort immediately; they are configuration errors,
// never retried. Action failures are absorbed by the fallback ladder;
// only a failed escalation surfaces, flipping the status to failed.
func (e *Engine) ProcessCurrentStep(ctx context.Context, state *sequence.State) (*sequence.State, error) {
	if state.Terminal() {
		return nil, NewTerminalError(state.EntityID, string(state.Status))
	}

	def, ok := e.registry.Definition(state.SequenceID)
	if !ok {
		return nil, NewSequenceNotFoundError(state.EntityID, state.SequenceID)
	}
	step, ok := def.StepByID(state.CurrentStepID)
	if !ok {
		return nil, NewUnknownStepError(state.EntityID, state.SequenceID, state.CurrentStepID)
	}

	exec := sequence.StepExecution{
		Seq:       state.NextSeq(),
		StepID:    step.ID,
		Action:    step.Action,
		Timestamp: e.clock.Now(),
	}

	res, err := e.executeAction(ctx, step, state)
	if err != nil {
		// Both fallback tiers exhausted: the escalation record could not
		// be written. Mark the whole sequence failed and surface.
		exec.Result = map[string]any{
			"failed": true,
			"error":  err.Error(),
		}
		state.History = append(state.History, exec)
		state.Status = sequence.StatusFailed
		state.UpdatedAt = e.clock.Now()
		if saveErr := e.store.Save(ctx, state); saveErr != nil {
			e.logger.Error("failed-state save failed",
				"entity", state.EntityID,
				"error", saveErr)
		}
		return state, err
	}

	exec.Result = res.Result
	exec.Metrics = res.Metrics
	state.History = append(state.History, exec)

	state.Context.Merge(res.ContextUpdates)
	state.Context.SetTime(sequence.KeyLastProcessedAt, e.clock.Now())

	if next, ok := sequence.NextStepID(step, state.Context); ok {
		state.CurrentStepID = next
	} else {
		state.CurrentStepID = ""
		state.Status = sequence.StatusCompleted
	}
	state.UpdatedAt = e.clock.Now()

	// The authoritative write: losing it corrupts the state machine, so
	// failures propagate to the caller.
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("process step %s for %s: %w", step.ID, state.EntityID, err)
	}

	// Audit logging is best-effort; it must never break the sequence.
	if auditErr := e.caps.LogAction(ctx, capability.AuditEntry{
		EntityID: state.EntityID,
		Action:   string(step.Action),
		Detail:   fmt.Sprintf("step %s processed (status=%s)", step.ID, state.Status),
	}); auditErr != nil {
		e.logger.Debug("audit log write failed", "entity", state.EntityID, "error", auditErr)
	}

	e.logger.Info("step processed",
		"entity", state.EntityID,
		"sequence", state.SequenceID,
		"step", step.ID,
		"next", state.CurrentStepID,
		"status", string(state.Status))
	return state, nil
}

// executeAction runs the step's action through the retry loop and, on
// failure, down the fallback ladder: simplified result first, human
// escalation when simplified fallback is disabled.
func (e *Engine) executeAction(ctx context.Context, step *sequence.Step, state *sequence.State) (ActionResult, error) {
	label := fmt.Sprintf("%s/%s", state.SequenceID, step.Action)

	var (
		res   ActionResult
		cat   Category
		cause error
	)

	handler, ok := e.resolveHandler(state.SequenceID, step.Action, state)
	if !ok {
		// No handler at any tier. Retrying cannot help; degrade directly.
		cat = CategoryUnknown
		cause = fmt.Errorf("no handler resolved for action %q", step.Action)
	} else {
		res, cat, cause = withRetry(ctx, e.retry, label, e.logger, func(ctx context.Context) (ActionResult, error) {
			actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
			defer cancel()
			return handler(actionCtx, state)
		})
	}
	if cause == nil {
		return res, nil
	}

	if e.simplifiedFallback {
		e.logger.Info("applying simplified fallback",
			"entity", state.EntityID,
			"action", string(step.Action),
			"category", string(cat),
			"error", cause)
		return simplifiedResult(step.Action), nil
	}

	return e.escalate(ctx, state, step.Action, cat, cause)
}
