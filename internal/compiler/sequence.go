package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/leadflow/internal/sequence"
)

// CompileSequence parses a CUE value into a sequence Definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the sequence struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`sequence: lead_qualification: { ... }`)
//	def, err := CompileSequence(v.LookupPath(cue.ParsePath("sequence.lead_qualification")))
func CompileSequence(v cue.Value) (*sequence.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &sequence.Definition{}

	// Sequence id comes from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.ID = labels[len(labels)-1].String()
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Description = desc
	}

	domainVal := v.LookupPath(cue.ParsePath("domain"))
	if domainVal.Exists() {
		domain, err := domainVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Domain = domain
	}

	steps, err := parseSteps(v)
	if err != nil {
		return nil, err
	}
	def.Steps = steps

	return def, nil
}

func parseSteps(v cue.Value) ([]sequence.Step, error) {
	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, &CompileError{
			Field:   "steps",
			Message: "steps is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := stepsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var steps []sequence.Step
	for i := 0; iter.Next(); i++ {
		step, err := parseStep(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		return nil, &CompileError{
			Field:   "steps",
			Message: "at least one step is required",
			Pos:     stepsVal.Pos(),
		}
	}

	return steps, nil
}

func parseStep(v cue.Value, index int) (sequence.Step, error) {
	var step sequence.Step
	field := fmt.Sprintf("steps[%d]", index)

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return step, &CompileError{
			Field:   field,
			Message: "step id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return step, formatCUEError(err)
	}
	step.ID = id
	field = fmt.Sprintf("steps.%s", id)

	actionVal := v.LookupPath(cue.ParsePath("action"))
	if !actionVal.Exists() {
		return step, &CompileError{
			Field:   field,
			Message: "action is required",
			Pos:     v.Pos(),
		}
	}
	rawAction, err := actionVal.String()
	if err != nil {
		return step, formatCUEError(err)
	}
	action, err := sequence.ParseActionID(rawAction)
	if err != nil {
		return step, &CompileError{
			Field:   field + ".action",
			Message: err.Error(),
			Pos:     actionVal.Pos(),
		}
	}
	step.Action = action

	conditions, err := parseConditions(v, field)
	if err != nil {
		return step, err
	}
	step.Conditions = conditions

	nextVal := v.LookupPath(cue.ParsePath("next"))
	if nextVal.Exists() {
		nextIter, err := nextVal.List()
		if err != nil {
			return step, formatCUEError(err)
		}
		for nextIter.Next() {
			target, err := nextIter.Value().String()
			if err != nil {
				return step, formatCUEError(err)
			}
			step.Next = append(step.Next, target)
		}
	}

	return step, nil
}

func parseConditions(v cue.Value, field string) ([]sequence.Condition, error) {
	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if !condsVal.Exists() {
		return nil, nil
	}

	iter, err := condsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var conditions []sequence.Condition
	for i := 0; iter.Next(); i++ {
		cond, err := parseCondition(iter.Value(), fmt.Sprintf("%s.conditions[%d]", field, i))
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	return conditions, nil
}

func parseCondition(v cue.Value, field string) (sequence.Condition, error) {
	var cond sequence.Condition

	attrVal := v.LookupPath(cue.ParsePath("attribute"))
	if !attrVal.Exists() {
		return cond, &CompileError{
			Field:   field,
			Message: "attribute is required",
			Pos:     v.Pos(),
		}
	}
	attr, err := attrVal.String()
	if err != nil {
		return cond, formatCUEError(err)
	}
	cond.Attribute = attr

	opVal := v.LookupPath(cue.ParsePath("operator"))
	if !opVal.Exists() {
		return cond, &CompileError{
			Field:   field,
			Message: "operator is required",
			Pos:     v.Pos(),
		}
	}
	op, err := opVal.String()
	if err != nil {
		return cond, formatCUEError(err)
	}
	cond.Operator = sequence.Operator(op)

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return cond, &CompileError{
			Field:   field,
			Message: "value is required",
			Pos:     v.Pos(),
		}
	}
	value, err := scalarValue(valueVal, field)
	if err != nil {
		return cond, err
	}
	cond.Value = value

	return cond, nil
}

// scalarValue converts a CUE value to its Go scalar. Condition values are
// restricted to scalars; the evaluator compares them against context
// attributes at runtime.
func scalarValue(v cue.Value, field string) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	default:
		return nil, &CompileError{
			Field:   field + ".value",
			Message: fmt.Sprintf("condition value must be a scalar, got %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
