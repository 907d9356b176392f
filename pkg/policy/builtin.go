package policy

// Built-in policy names.
const (
	PolicyMaxPlanLength      = "max-plan-length"
	PolicyForbiddenOperators = "forbidden-operators"
	PolicyRepeatedAction     = "repeated-action"
	PolicyEmptyPlan          = "empty-plan"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		maxPlanLengthPolicy(),
		forbiddenOperatorsPolicy(),
		repeatedActionPolicy(),
		emptyPlanPolicy(),
	}
}

// maxPlanLengthPolicy rejects plans longer than data.goalnet.limits.max_plan_length.
func maxPlanLengthPolicy() Policy {
	return Policy{
		Name:        PolicyMaxPlanLength,
		Description: "Rejects plans with more actions than the configured limit",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"limits"},
		Rego: `package goalnet.policies.length

import rego.v1

deny contains violation if {
	limit := data.goalnet.limits.max_plan_length
	limit > 0
	count(input.plan) > limit
	violation := {
		"message": sprintf("plan has %d actions, the limit is %d", [count(input.plan), limit]),
		"severity": "error",
	}
}`,
	}
}

// forbiddenOperatorsPolicy rejects plans that use an operator listed in
// data.goalnet.limits.forbidden_operators.
func forbiddenOperatorsPolicy() Policy {
	return Policy{
		Name:        PolicyForbiddenOperators,
		Description: "Rejects plans that apply a forbidden operator",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"limits", "operators"},
		Rego: `package goalnet.policies.operators

import rego.v1

deny contains violation if {
	some i, action in input.plan
	action.operator in data.goalnet.limits.forbidden_operators
	violation := {
		"message": sprintf("operator %s is forbidden", [action.operator]),
		"severity": "error",
		"step": i,
		"operator": action.operator,
	}
}`,
	}
}

// repeatedActionPolicy flags the same action applied twice in a row, which
// usually means an operator did not establish its goal.
func repeatedActionPolicy() Policy {
	return Policy{
		Name:        PolicyRepeatedAction,
		Description: "Warns when the same action is applied twice in a row",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"quality"},
		Rego: `package goalnet.policies.repeat

import rego.v1

deny contains violation if {
	some i, action in input.plan
	i > 0
	prev := input.plan[i - 1]
	prev.operator == action.operator
	prev.object == action.object
	prev.value == action.value
	violation := {
		"message": sprintf("action (%s, %s, %v) repeats the previous step", [action.operator, action.object, action.value]),
		"severity": "warning",
		"step": i,
		"operator": action.operator,
	}
}`,
	}
}

// emptyPlanPolicy notes that every goal already held.
func emptyPlanPolicy() Policy {
	return Policy{
		Name:        PolicyEmptyPlan,
		Description: "Notes plans that are empty because every goal already held",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"quality"},
		Rego: `package goalnet.policies.noop

import rego.v1

deny contains violation if {
	count(input.plan) == 0
	count(input.goals) > 0
	violation := {
		"message": "every goal already holds, the plan is empty",
		"severity": "info",
	}
}`,
	}
}
