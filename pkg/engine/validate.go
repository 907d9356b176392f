package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateGoals checks goals against the registry and the initial state.
// A goal is rejected when it names no variable or object, names a variable
// that neither the registry nor the state knows about, or names an object
// that appears nowhere in the state. An absent goal value is allowed.
func ValidateGoals(registry *Registry, state *State, goals []Goal) error {
	known := make(map[string]bool)
	for _, variable := range state.Variables() {
		for _, o := range state.Objects(variable) {
			known[o] = true
			if s, ok := state.Lookup(variable, o).Str(); ok {
				known[s] = true
			}
		}
	}

	for i, g := range goals {
		switch {
		case g.Variable == "":
			return NewValidationError(fmt.Sprintf("goal %d has no variable", i), nil).
				WithDetail("index", i)
		case g.Object == "":
			return NewValidationError(fmt.Sprintf("goal %d has no object", i), nil).
				WithDetail("index", i)
		}

		if !registry.Knows(g.Variable) && !state.HasVariable(g.Variable) {
			return NewValidationError(fmt.Sprintf("unknown variable %q", g.Variable), nil).
				WithCode(ErrCodeUnknownVariable).
				WithGoal(g, 0).
				WithDetail("index", i)
		}
		if !known[g.Object] {
			return NewValidationError(fmt.Sprintf("unknown object %q", g.Object), nil).
				WithCode(ErrCodeUnknownObject).
				WithGoal(g, 0).
				WithDetail("index", i)
		}
	}
	return nil
}

// Unsatisfied returns the goals that do not hold in s, in order.
func Unsatisfied(s *State, goals []Goal) []Goal {
	var out []Goal
	for _, g := range goals {
		if !g.SatisfiedIn(s) {
			out = append(out, g)
		}
	}
	return out
}

// Satisfies reports whether every goal holds in s.
func Satisfies(s *State, goals []Goal) bool {
	return len(Unsatisfied(s, goals)) == 0
}

// Replay applies plan to a clone of state, looking operators up by name, and
// returns the resulting state. state is not modified.
func Replay(registry *Registry, state *State, plan Plan) (*State, error) {
	cur := state.Clone()
	for i, a := range plan {
		op, ok := registry.Operator(a.Operator)
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("step %d: unknown operator %q", i, a.Operator), nil).
				WithCode(ErrCodeUnknownOperator).
				WithDetail("step", i)
		}

		next, err := op.Apply(cur.Clone(), a.Object, a.Value)
		if errors.Is(err, ErrInapplicable) || (err == nil && next == nil) {
			return nil, NewValidationError(fmt.Sprintf("step %d: %s is not applicable", i, a), nil).
				WithCode(ErrCodeUnsoundPlan).
				WithCapability(a.Operator).
				WithDetail("step", i)
		}
		if err != nil {
			return nil, NewDomainError(fmt.Sprintf("step %d: %s failed", i, a), err).
				WithCapability(a.Operator).
				WithDetail("step", i)
		}
		cur = next
	}
	return cur, nil
}

// VerifyPlan replays plan from state and checks that every goal holds in the
// final state.
func VerifyPlan(registry *Registry, state *State, goals []Goal, plan Plan) error {
	final, err := Replay(registry, state, plan)
	if err != nil {
		return err
	}

	unmet := Unsatisfied(final, goals)
	if len(unmet) == 0 {
		return nil
	}

	parts := make([]string, len(unmet))
	for i, g := range unmet {
		parts[i] = g.String()
	}
	return NewValidationError("plan leaves goals unmet: "+strings.Join(parts, ", "), nil).
		WithCode(ErrCodeUnsoundPlan).
		WithDetail("unmet", len(unmet))
}
