package compiler

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/leadflow/internal/sequence"
)

// LoadFile compiles every sequence declared in a single CUE file.
// Structural validation is a separate pass; see ValidateAll.
func LoadFile(path string) ([]sequence.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return ExtractSequences(v)
}

// ExtractSequences compiles every entry under the top-level "sequence"
// struct of a CUE value.
func ExtractSequences(v cue.Value) ([]sequence.Definition, error) {
	seqVal := v.LookupPath(cue.ParsePath("sequence"))
	if !seqVal.Exists() {
		return nil, &CompileError{
			Field:   "sequence",
			Message: "no sequences declared (expected a top-level sequence struct)",
			Pos:     v.Pos(),
		}
	}

	iter, err := seqVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []sequence.Definition
	for iter.Next() {
		def, err := CompileSequence(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}

	if len(defs) == 0 {
		return nil, &CompileError{
			Field:   "sequence",
			Message: "sequence struct is empty",
			Pos:     seqVal.Pos(),
		}
	}
	return defs, nil
}

// ValidateAll runs structural validation over a set of compiled
// definitions, folding every violation into a single error so callers
// see them all at once.
func ValidateAll(defs []sequence.Definition) error {
	var errs []error
	for i := range defs {
		verrs := Validate(&defs[i])
		if len(verrs) == 0 {
			continue
		}
		errs = append(errs, fmt.Errorf("sequence %q is invalid", defs[i].ID))
		for _, verr := range verrs {
			errs = append(errs, verr)
		}
	}
	return errors.Join(errs...)
}
