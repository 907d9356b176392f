package engine

import (
	"errors"
	"fmt"
)

// ErrInapplicable is the failure sentinel returned by operators and methods
// whose preconditions do not hold in the given state. The planner handles it
// locally by moving on to the next candidate.
var ErrInapplicable = errors.New("capability not applicable")

// ErrorClass represents the classification of a planning error.
type ErrorClass string

const (
	// ErrorClassResource indicates a configured search bound was exceeded.
	// Examples: maximum recursion depth, maximum number of search frames.
	ErrorClassResource ErrorClass = "resource"

	// ErrorClassCancelled indicates the caller's context was cancelled.
	ErrorClassCancelled ErrorClass = "cancelled"

	// ErrorClassDomain indicates a domain capability failed for a reason
	// other than inapplicability (a script error, a bad return value).
	ErrorClassDomain ErrorClass = "domain"

	// ErrorClassValidation indicates a malformed problem or goal.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassExhausted indicates the search finished without a plan.
	// The planner itself reports this through Result.Status; the class exists
	// for callers that need to turn a failed search into an error.
	ErrorClassExhausted ErrorClass = "exhausted"
)

// EngineError represents a classified error with search context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Goal is the goal being processed when the error occurred, if any.
	Goal *Goal `json:"goal,omitempty"`

	// Depth is the search depth at which the error occurred.
	Depth int `json:"depth,omitempty"`

	// Capability is the operator or method name involved, if any.
	Capability string `json:"capability,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Goal != nil {
		msg += fmt.Sprintf(" (goal=%s, depth=%d)", e.Goal, e.Depth)
	}
	if e.Capability != "" {
		msg += fmt.Sprintf(" (capability=%s)", e.Capability)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewResourceError creates a new resource-exceeded error.
func NewResourceError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassResource,
		Message: message,
		Err:     err,
	}
}

// NewCancelledError creates a new cancellation error.
func NewCancelledError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassCancelled,
		Code:    ErrCodeCancelled,
		Message: message,
		Err:     err,
	}
}

// NewDomainError creates a new domain fault error.
func NewDomainError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassDomain,
		Code:    ErrCodeCapabilityFault,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassValidation,
		Code:    ErrCodeValidation,
		Message: message,
		Err:     err,
	}
}

// NewExhaustedError creates an error describing a search without a plan.
func NewExhaustedError(message string) *EngineError {
	return &EngineError{
		Class:   ErrorClassExhausted,
		Code:    ErrCodeNoPlan,
		Message: message,
	}
}

// WithGoal adds goal and depth context to an error.
func (e *EngineError) WithGoal(g Goal, depth int) *EngineError {
	e.Goal = &g
	e.Depth = depth
	return e
}

// WithCapability adds the operator or method name to an error.
func (e *EngineError) WithCapability(name string) *EngineError {
	e.Capability = name
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func hasClass(err error, class ErrorClass) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

func hasCode(err error, code string) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsResourceExceeded returns true if the error is a depth or budget error.
func IsResourceExceeded(err error) bool {
	return hasClass(err, ErrorClassResource)
}

// IsDepthExceeded returns true if the search exceeded its maximum depth.
func IsDepthExceeded(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// IsBudgetExceeded returns true if the search exceeded its frame budget.
func IsBudgetExceeded(err error) bool {
	return hasCode(err, ErrCodeBudgetExceeded)
}

// IsCancelled returns true if the search was cancelled through its context.
func IsCancelled(err error) bool {
	return hasClass(err, ErrorClassCancelled)
}

// IsDomainFault returns true if a capability failed unexpectedly.
func IsDomainFault(err error) bool {
	return hasClass(err, ErrorClassDomain)
}

// IsValidation returns true if the error is classified as validation.
func IsValidation(err error) bool {
	return hasClass(err, ErrorClassValidation)
}

// IsExhausted returns true if the error reports a search without a plan.
func IsExhausted(err error) bool {
	return hasClass(err, ErrorClassExhausted)
}

// ClassOf returns the class of a classified error, or an empty class.
func ClassOf(err error) ErrorClass {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of a classified error, or an empty string.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Common error codes.
const (
	ErrCodeDepthExceeded   = "DEPTH_EXCEEDED"
	ErrCodeBudgetExceeded  = "BUDGET_EXCEEDED"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeCapabilityFault = "CAPABILITY_FAULT"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnknownVariable = "UNKNOWN_VARIABLE"
	ErrCodeUnknownObject   = "UNKNOWN_OBJECT"
	ErrCodeUnknownOperator = "UNKNOWN_OPERATOR"
	ErrCodeNoPlan          = "NO_PLAN"
	ErrCodeUnsoundPlan     = "UNSOUND_PLAN"
)
