package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// ErrPlanRejected is wrapped by Decision.Err.
var ErrPlanRejected = errors.New("plan rejected by policy")

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError rejects the plan.
	SeverityError Severity = "error"

	// SeverityCritical rejects the plan.
	SeverityCritical Severity = "critical"
)

// Blocks reports whether a violation of this severity rejects a plan.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// ParseSeverity parses a severity name.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return sev, nil
	default:
		return "", fmt.Errorf("invalid severity %q (want info, warning, error or critical)", s)
	}
}

// Policy is a plan admission rule written in Rego. The module must define
// a deny set; each member is a message string or an object with message,
// severity, step and operator fields.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Builtin marks the policies shipped with goalnet.
	Builtin bool `json:"builtin"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from, if any.
	Source string `json:"source,omitempty"`
}

// Limits is the data document consulted by the built-in policies.
type Limits struct {
	// MaxPlanLength rejects plans with more actions. Zero means no limit.
	MaxPlanLength int `json:"max_plan_length"`

	// ForbiddenOperators rejects plans using any of these operators.
	ForbiddenOperators []string `json:"forbidden_operators"`
}

// Violation is a single policy finding against a plan.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Step is the index of the offending plan step, or -1.
	Step int `json:"step"`

	// Operator is the offending operator, if any.
	Operator string `json:"operator,omitempty"`
}

// String renders the violation for CLI output.
func (v Violation) String() string {
	if v.Step >= 0 {
		return fmt.Sprintf("%s [%s] step %d: %s", v.Policy, v.Severity, v.Step, v.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", v.Policy, v.Severity, v.Message)
}

// Decision is the outcome of evaluating every enabled policy against a plan.
type Decision struct {
	// Allowed is false when any violation blocks.
	Allowed bool `json:"allowed"`

	// Violations lists the blocking findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists findings that do not block.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Err returns nil for an allowed plan and an error listing the blocking
// violations otherwise.
func (d *Decision) Err() error {
	if d.Allowed {
		return nil
	}
	parts := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		parts[i] = v.String()
	}
	return fmt.Errorf("%w: %s", ErrPlanRejected, strings.Join(parts, "; "))
}

// Input is the document policies see as input.
type Input struct {
	// Problem is the problem name.
	Problem string `json:"problem"`

	// Domain is the domain name.
	Domain string `json:"domain"`

	// Plan is the found plan.
	Plan engine.Plan `json:"plan"`

	// Goals are the goals the plan achieves.
	Goals []engine.Goal `json:"goals"`

	// Stats describes the search that produced the plan.
	Stats engine.SearchStats `json:"stats"`

	// Context provides additional evaluation context.
	Context *Context `json:"context"`
}

// Context provides context information for policy evaluation.
type Context struct {
	// Environment is the telemetry environment (e.g., "production").
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains additional context metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewInput builds the policy input for a found plan.
func NewInput(problem *engine.Problem, result *engine.Result) *Input {
	in := &Input{
		Plan:  result.Plan,
		Goals: result.Goals,
		Stats: result.Stats,
		Context: &Context{
			Timestamp: time.Now(),
		},
	}
	if in.Plan == nil {
		in.Plan = engine.Plan{}
	}
	if problem != nil {
		in.Problem = problem.Name
		in.Domain = problem.Domain
	}
	return in
}
