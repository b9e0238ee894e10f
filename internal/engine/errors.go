package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during engine execution.
//
// Runtime errors include:
//   - Sequence not found: no definition resolves for an initialize call
//   - Unknown step: persisted state names a step the definition lacks
//   - Terminal state: processing requested on a completed/failed state
//   - Escalation failed: the last fallback tier could not be recorded
//   - Quota exceeded: a run exceeded the max-steps limit
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EntityID identifies the affected entity.
	EntityID string

	// SequenceID identifies the sequence definition (when known).
	SequenceID string

	// StepID identifies the step (for unknown-step errors).
	StepID string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeSequenceNotFound indicates no sequence definition resolved,
	// or the resolved definition has zero steps. Configuration error,
	// never retried.
	ErrCodeSequenceNotFound RuntimeErrorCode = "SEQUENCE_NOT_FOUND"

	// ErrCodeUnknownStep indicates persisted state references a step id
	// the definition does not contain. Configuration error, never retried.
	ErrCodeUnknownStep RuntimeErrorCode = "UNKNOWN_STEP"

	// ErrCodeSequenceTerminal indicates processing was requested for a
	// state already in a completed or failed status.
	ErrCodeSequenceTerminal RuntimeErrorCode = "SEQUENCE_TERMINAL"

	// ErrCodeEscalationFailed indicates the human-escalation record could
	// not be persisted. This is the only path that fails a sequence.
	ErrCodeEscalationFailed RuntimeErrorCode = "ESCALATION_FAILED"

	// ErrCodeQuotaExceeded indicates a run exceeded the max-steps limit.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.EntityID != "" && e.StepID != "":
		return fmt.Sprintf("%s: %s (entity=%s, step=%s)", e.Code, e.Message, e.EntityID, e.StepID)
	case e.EntityID != "":
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.EntityID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsSequenceNotFound returns true for sequence-resolution failures.
// Uses errors.As to handle wrapped errors.
func IsSequenceNotFound(err error) bool {
	return hasCode(err, ErrCodeSequenceNotFound)
}

// IsUnknownStep returns true for unknown-step errors.
func IsUnknownStep(err error) bool {
	return hasCode(err, ErrCodeUnknownStep)
}

// IsTerminal returns true when processing was rejected because the state
// is already terminal.
func IsTerminal(err error) bool {
	return hasCode(err, ErrCodeSequenceTerminal)
}

// IsEscalationFailed returns true when the escalation tier itself failed.
func IsEscalationFailed(err error) bool {
	return hasCode(err, ErrCodeEscalationFailed)
}

// IsQuotaExceeded returns true for max-steps quota errors.
func IsQuotaExceeded(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewSequenceNotFoundError creates a RuntimeError for a failed sequence
// resolution.
func NewSequenceNotFoundError(entityID, sequenceID string) *RuntimeError {
	msg := "no sequence definition resolved"
	if sequenceID != "" {
		msg = fmt.Sprintf("sequence %q not found or has no steps", sequenceID)
	}
	return &RuntimeError{
		Code:       ErrCodeSequenceNotFound,
		Message:    msg,
		EntityID:   entityID,
		SequenceID: sequenceID,
	}
}

// NewUnknownStepError creates a RuntimeError for a dangling step
// reference in persisted state.
func NewUnknownStepError(entityID, sequenceID, stepID string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeUnknownStep,
		Message:    fmt.Sprintf("step %q not found in sequence %q", stepID, sequenceID),
		EntityID:   entityID,
		SequenceID: sequenceID,
		StepID:     stepID,
	}
}

// NewTerminalError creates a RuntimeError for processing a terminal state.
func NewTerminalError(entityID, status string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeSequenceTerminal,
		Message:  fmt.Sprintf("sequence is %s; re-initialize to start a new run", status),
		EntityID: entityID,
	}
}
