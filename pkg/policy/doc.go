// Package policy provides Open Policy Agent (OPA) admission checks for
// plans found by the goalnet planner.
//
// Every enabled policy is a Rego module defining a deny set. The engine
// evaluates them in name order against an Input holding the plan, the goals
// and the search statistics. Violations with severity error or critical
// reject the plan; info and warning findings are reported as warnings.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger, policy.WithLimits(policy.Limits{
//	    MaxPlanLength:      20,
//	    ForbiddenOperators: []string{"fly_airplane"},
//	}))
//	if err != nil {
//	    return err
//	}
//
//	decision, err := eng.EvaluatePlan(ctx, policy.NewInput(problem, result))
//	if err != nil {
//	    return err
//	}
//	if err := decision.Err(); err != nil {
//	    return err
//	}
//
// # Built-in Policies
//
//  1. max-plan-length - rejects plans longer than data.goalnet.limits.max_plan_length
//  2. forbidden-operators - rejects plans using data.goalnet.limits.forbidden_operators
//  3. repeated-action - warns when an action repeats the previous step
//  4. empty-plan - notes that every goal already held
//
// # Custom Policies
//
// User policies are loaded from .rego files or directories. Leading
// comments become the description and a severity comment sets the default
// severity:
//
//	# Airport2 is closed.
//	# severity: error
//	package custom.airports
//
//	import rego.v1
//
//	deny contains violation if {
//	    some i, action in input.plan
//	    action.operator == "fly_airplane"
//	    action.value == "airport2"
//	    violation := {"message": "airport2 is closed", "step": i}
//	}
//
// Modules without `import rego.v1` are parsed with the v0 Rego syntax.
// Engine.Watch reloads user policies when their files change.
package policy
