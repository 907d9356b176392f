package engine

import (
	"fmt"
	"strings"
	"time"
)

// Goal states that the value of Object under Variable should equal Value.
type Goal struct {
	// Variable is the state variable the goal constrains (e.g., "at").
	Variable string `json:"variable"`

	// Object is the object whose value is constrained (e.g., "package1").
	Object string `json:"object"`

	// Value is the desired value.
	Value Value `json:"value"`
}

// NewGoal builds a goal from a variable, an object and a plain Go value.
// It panics if value is not a supported scalar.
func NewGoal(variable, object string, value interface{}) Goal {
	return Goal{Variable: variable, Object: object, Value: MustValueOf(value)}
}

// SatisfiedIn reports whether the goal already holds in s.
// A missing entry never satisfies a goal.
func (g Goal) SatisfiedIn(s *State) bool {
	v, ok := s.Get(g.Variable, g.Object)
	return ok && v.Equal(g.Value)
}

// String renders the goal as a tuple.
func (g Goal) String() string {
	return fmt.Sprintf("(%s, %s, %s)", g.Variable, g.Object, g.Value)
}

// Action is one applied primitive step: the operator name and the arguments
// it was invoked with (the goal's object and desired value).
type Action struct {
	// Operator is the name of the applied operator.
	Operator string `json:"operator"`

	// Object is the first argument passed to the operator.
	Object string `json:"object"`

	// Value is the second argument passed to the operator.
	Value Value `json:"value"`
}

// NewAction builds an action from plain Go arguments.
func NewAction(operator, object string, value interface{}) Action {
	return Action{Operator: operator, Object: object, Value: MustValueOf(value)}
}

// Args returns the argument values in invocation order.
func (a Action) Args() []Value {
	return []Value{String(a.Object), a.Value}
}

// String renders the action as a tuple.
func (a Action) String() string {
	return fmt.Sprintf("(%s, %s, %s)", a.Operator, a.Object, a.Value)
}

// Plan is an ordered sequence of actions.
type Plan []Action

// String renders the plan as a bracketed list of tuples.
func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports whether both plans hold the same actions in the same order.
func (p Plan) Equal(other Plan) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Operator != other[i].Operator || p[i].Object != other[i].Object || !p[i].Value.Equal(other[i].Value) {
			return false
		}
	}
	return true
}

// extend returns a new plan with a appended, never sharing the backing array
// with p so sibling branches cannot overwrite each other's actions.
func (p Plan) extend(a Action) Plan {
	out := make(Plan, len(p), len(p)+1)
	copy(out, p)
	return append(out, a)
}

// Result is the outcome of a planning call.
type Result struct {
	// ID is the unique identifier of this planning call.
	ID string `json:"id"`

	// Status is succeeded when a plan was found and failed otherwise.
	Status SearchStatus `json:"status"`

	// Plan is the found plan. It is nil when Status is failed and may be
	// empty when every goal already held.
	Plan Plan `json:"plan"`

	// Goals are the goals that were planned for.
	Goals []Goal `json:"goals"`

	// Stats describes the work the search performed.
	Stats SearchStats `json:"stats"`

	// StartedAt is when the search started.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the search took.
	Duration time.Duration `json:"duration"`
}

// Found reports whether the search produced a plan.
func (r *Result) Found() bool {
	return r != nil && r.Status == SearchStatusSucceeded
}

// SearchStats counts the work done by one planning call.
type SearchStats struct {
	// Frames is the number of search frames entered.
	Frames int `json:"frames"`

	// MaxDepth is the deepest frame reached.
	MaxDepth int `json:"max_depth"`

	// SatisfiedSkips counts goals passed over because they already held.
	SatisfiedSkips int `json:"satisfied_skips"`

	// OperatorAttempts counts operator invocations.
	OperatorAttempts int `json:"operator_attempts"`

	// OperatorsApplied counts operator invocations that succeeded.
	OperatorsApplied int `json:"operators_applied"`

	// MethodAttempts counts method invocations.
	MethodAttempts int `json:"method_attempts"`

	// MethodsExpanded counts method invocations that produced subgoals.
	MethodsExpanded int `json:"methods_expanded"`

	// Backtracks counts frames that returned failure.
	Backtracks int `json:"backtracks"`
}

// Problem is a complete planning input: an initial state, the ordered goals
// and the name of the domain whose capabilities should be used.
type Problem struct {
	// Name identifies the problem in listings and logs.
	Name string `json:"name"`

	// Domain names the capability set the problem is written for.
	Domain string `json:"domain"`

	// Description is an optional human-readable summary.
	Description string `json:"description,omitempty"`

	// State is the initial state.
	State *State `json:"-"`

	// Goals are the ordered goals to achieve.
	Goals []Goal `json:"goals"`
}
