package engine_test

import (
	"context"
	"fmt"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Example_planner demonstrates registering capabilities for a state variable
// and planning a two-step goal.
func Example_planner() {
	state := engine.NewState("robot")
	state.Set("loc", "robot", engine.String("dock"))
	state.Declare("doors", engine.Key("dock", "hall"), engine.Key("hall", "lab"))

	move := engine.NewOperator("move", func(s *engine.State, who string, to engine.Value) (*engine.State, error) {
		dest, _ := to.Str()
		if !s.Has("doors", engine.Key(s.Str("loc", who), dest)) {
			return engine.Inapplicable()
		}
		s.Set("loc", who, to)
		return s, nil
	})
	viaHall := engine.NewMethod("via_hall", func(s *engine.State, who string, to engine.Value) ([]engine.Goal, error) {
		if s.Str("loc", who) == "hall" {
			return engine.NotApplicable()
		}
		return engine.Subgoals(
			engine.NewGoal("loc", who, "hall"),
			engine.Goal{Variable: "loc", Object: who, Value: to},
		)
	})

	reg := engine.NewRegistry()
	reg.RegisterOperators("loc", move)
	reg.RegisterMethods("loc", viaHall)

	planner := engine.NewPlanner(reg)
	result, err := planner.Plan(context.Background(), state, []engine.Goal{
		engine.NewGoal("loc", "robot", "lab"),
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(result.Status)
	fmt.Println(result.Plan)
	// Output:
	// succeeded
	// [(move, robot, hall), (move, robot, lab)]
}

// Example_failure demonstrates that an unreachable goal is reported through
// the result status rather than an error.
func Example_failure() {
	reg := engine.NewRegistry()
	state := engine.NewState("empty")

	result, err := engine.NewPlanner(reg).Plan(context.Background(), state, []engine.Goal{
		engine.NewGoal("loc", "robot", "moon"),
	})
	fmt.Println(result.Status, err)
	// Output:
	// failed <nil>
}

// ExampleVerifyPlan demonstrates replaying a plan to check its soundness.
func ExampleVerifyPlan() {
	reg := engine.NewRegistry()
	reg.RegisterOperators("lit", engine.NewOperator("switch_on", func(s *engine.State, lamp string, v engine.Value) (*engine.State, error) {
		s.Set("lit", lamp, engine.Bool(true))
		return s, nil
	}))

	state := engine.NewState("room")
	goals := []engine.Goal{engine.NewGoal("lit", "lamp", true)}

	fmt.Println(engine.VerifyPlan(reg, state, goals, engine.Plan{engine.NewAction("switch_on", "lamp", true)}))
	fmt.Println(engine.CodeOf(engine.VerifyPlan(reg, state, goals, engine.Plan{})))
	// Output:
	// <nil>
	// UNSOUND_PLAN
}
