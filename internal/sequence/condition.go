package sequence

import "strings"

// Evaluate checks a single condition against the context.
//
// Pure, and deliberately permissive: comparisons never error. An unknown
// operator evaluates to false. Numeric comparisons require a numeric
// context value; non-numeric values compare as false so one bad context
// field cannot crash the engine.
func Evaluate(cond Condition, ctx Context) bool {
	actual, present := ctx[cond.Attribute]

	switch cond.Operator {
	case OpEquals:
		if !present {
			return false
		}
		return valuesEqual(actual, cond.Value)

	case OpNotEquals:
		if !present {
			// A missing attribute is not equal to anything.
			return true
		}
		return !valuesEqual(actual, cond.Value)

	case OpGreaterThan:
		left, lok := asFloat(actual)
		right, rok := asFloat(cond.Value)
		return present && lok && rok && left > right

	case OpLessThan:
		left, lok := asFloat(actual)
		right, rok := asFloat(cond.Value)
		return present && lok && rok && left < right

	case OpContains:
		if !present {
			return false
		}
		return contains(actual, cond.Value)

	default:
		return false
	}
}

// EvaluateAll reports whether any condition in the list holds.
//
// Branch semantics: the FIRST condition that evaluates true wins and
// evaluation short-circuits. (The list is an ordered disjunction feeding
// a two-way branch, so later conditions must not override an earlier
// match.)
func EvaluateAll(conds []Condition, ctx Context) bool {
	for _, cond := range conds {
		if Evaluate(cond, ctx) {
			return true
		}
	}
	return false
}

// NextStepID selects the follow-on step for a processed step.
//
// Returns ("", false) when the step is terminal. For a conditional step,
// Next[0] is taken when a condition holds and Next[1] (the designated
// fallback branch) otherwise; a conditional step with a single branch id
// always advances to it.
func NextStepID(step *Step, ctx Context) (string, bool) {
	switch {
	case len(step.Next) == 0:
		return "", false

	case len(step.Next) == 1:
		return step.Next[0], true

	default:
		if len(step.Conditions) == 0 {
			// No conditions to discriminate: take the primary branch.
			return step.Next[0], true
		}
		if EvaluateAll(step.Conditions, ctx) {
			return step.Next[0], true
		}
		return step.Next[1], true
	}
}

// valuesEqual compares two free-form values. Numerics compare
// numerically (80 == 80.0); everything else compares on its textual
// rendering.
func valuesEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return formatValue(a) == formatValue(b)
}

// contains performs a substring test for strings and a membership test
// for slices, after coercing values to their natural textual form.
func contains(haystack, needle any) bool {
	want := formatValue(needle)
	switch h := haystack.(type) {
	case []any:
		for _, elem := range h {
			if formatValue(elem) == want {
				return true
			}
		}
		return false
	case []string:
		for _, elem := range h {
			if elem == want {
				return true
			}
		}
		return false
	default:
		return strings.Contains(formatValue(haystack), want)
	}
}
