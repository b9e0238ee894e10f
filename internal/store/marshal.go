package store

import (
	"fmt"

	"github.com/roach88/leadflow/internal/sequence"
)

// marshalContext converts the execution context to canonical JSON TEXT.
// Canonical serialization keeps persisted bytes stable across save/load
// cycles so version checks and golden traces behave deterministically.
func marshalContext(ctx sequence.Context) (string, error) {
	if ctx == nil {
		return "{}", nil
	}
	data, err := sequence.MarshalCanonical(ctx)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a step result document to canonical JSON TEXT.
func marshalResult(result map[string]any) (string, error) {
	if result == nil {
		return "{}", nil
	}
	data, err := sequence.MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalContext parses persisted JSON TEXT into a Context.
// Large integers survive via json.Number.
func unmarshalContext(data string) (sequence.Context, error) {
	doc, err := sequence.UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return sequence.Context(doc), nil
}

// unmarshalResult parses persisted JSON TEXT into a result document.
func unmarshalResult(data string) (map[string]any, error) {
	doc, err := sequence.UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return doc, nil
}
