package engine

// OperatorFunc applies a primitive action to s, which is always a private
// clone owned by the caller. It may mutate and return s (or return another
// state). It returns ErrInapplicable when its preconditions do not hold; any
// other error is treated as a domain fault and aborts the search.
type OperatorFunc func(s *State, object string, value Value) (*State, error)

// MethodFunc decomposes a goal into an ordered list of subgoals. It must not
// mutate s. It returns ErrInapplicable when it does not apply. A nil error
// with no subgoals means "applicable, nothing further needed"; how the
// planner treats that case is governed by SearchConfig.AcceptEmptyDecomposition.
type MethodFunc func(s *State, object string, value Value) ([]Goal, error)

// Operator is a named primitive capability.
type Operator struct {
	// Name is recorded in every Action the operator produces.
	Name string

	// Apply is the operator body.
	Apply OperatorFunc
}

// Method is a named decomposition capability.
type Method struct {
	// Name identifies the method in traces and registry listings.
	Name string

	// Decompose is the method body.
	Decompose MethodFunc
}

// NewOperator creates an operator.
func NewOperator(name string, fn OperatorFunc) Operator {
	return Operator{Name: name, Apply: fn}
}

// NewMethod creates a method.
func NewMethod(name string, fn MethodFunc) Method {
	return Method{Name: name, Decompose: fn}
}

// Inapplicable is a convenience for operator bodies: return Inapplicable().
func Inapplicable() (*State, error) {
	return nil, ErrInapplicable
}

// NotApplicable is a convenience for method bodies: return NotApplicable().
func NotApplicable() ([]Goal, error) {
	return nil, ErrInapplicable
}

// Subgoals is a convenience for method bodies returning a decomposition.
func Subgoals(goals ...Goal) ([]Goal, error) {
	return goals, nil
}
