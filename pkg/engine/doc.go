// Package engine provides the goal-network planning engine used by goalnet.
//
// # Overview
//
// The engine searches for a totally ordered sequence of primitive actions that
// transforms an initial State so that every Goal in an ordered list holds.
// Each goal is handled in one of three ways, tried in this order:
//
//  1. Satisfied - the goal already holds, so the search moves on
//  2. Operators - a registered primitive operator establishes the goal
//  3. Methods - a registered method rewrites the goal into subgoals
//
// The search is depth first with chronological backtracking. It returns the
// first plan found; no attempt is made to find a shorter one.
//
// # Core Types
//
//   - Value: a scalar (string, bool, number) or Absent
//   - State: variable -> object -> Value, cloned for every operator call
//   - Goal: a (variable, object, value) triple
//   - Action: an operator name plus the goal's object and value
//   - Plan: the ordered actions of a successful search
//   - Result: the outcome of one planning call with search statistics
//
// # Capabilities
//
// Operators and methods are registered per state variable in a Registry.
// Registration order fixes exploration order, and registering a variable a
// second time replaces its list:
//
//	reg := engine.NewRegistry()
//	reg.RegisterOperators("at", driveTruck, loadTruck, unloadTruck)
//	reg.RegisterMethods("at", moveWithinCity, moveBetweenCity)
//
// An operator receives a private clone of the state and returns the updated
// state, or ErrInapplicable when its preconditions do not hold. A method must
// not modify the state; it returns subgoals or ErrInapplicable.
//
// # Planning
//
//	planner := engine.NewPlanner(reg, engine.WithMaxDepth(500))
//	result, err := planner.Plan(ctx, state, goals)
//	if err != nil {
//	    // depth or frame bound exceeded, cancelled, or a capability faulted
//	}
//	if !result.Found() {
//	    // search exhausted without a plan
//	}
//
// # Errors
//
// Errors are classified with EngineError:
//
//   - resource: MaxDepth or MaxFrames exceeded; aborts the whole search
//   - cancelled: the context was cancelled
//   - domain: a capability returned an error other than ErrInapplicable
//   - validation: malformed goals or an unsound plan
//
// A search that simply finds no plan is not an error; Result.Status is
// SearchStatusFailed.
//
// # Tracing
//
// An Observer receives TraceEvents filtered by SearchConfig.TraceLevel:
// level 1 reports the start and end of each call, level 2 every search
// frame, and level 3 every satisfied goal, applied operator, expanded method
// and returned plan.
package engine
