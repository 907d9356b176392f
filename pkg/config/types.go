package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// ProblemSpec is the format-independent form of a problem file, as decoded
// from YAML, CUE or a Starlark `problem` global.
type ProblemSpec struct {
	// Name identifies the problem. Defaults to the file name.
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Domain names a built-in domain.
	Domain string `mapstructure:"domain" yaml:"domain" json:"domain" validate:"required_without=Script"`

	// Script is the path of a Starlark domain script, relative to the
	// problem file. It is used when Domain is not a built-in domain.
	Script string `mapstructure:"script" yaml:"script,omitempty" json:"script,omitempty"`

	// Description is an optional human-readable summary.
	Description string `mapstructure:"description" yaml:"description,omitempty" json:"description,omitempty"`

	// State maps each variable to its object/value table.
	State map[string]map[string]interface{} `mapstructure:"state" yaml:"state" json:"state" validate:"required"`

	// Types declares type sets, e.g. trucks: [truck1, truck6]. Each member is
	// stored in the state as <type>[member] = true.
	Types map[string][]string `mapstructure:"types" yaml:"types,omitempty" json:"types,omitempty"`

	// Goals are ordered goals, each either a [variable, object, value] list
	// or a {variable, object, value} mapping.
	Goals []interface{} `mapstructure:"goals" yaml:"goals" json:"goals"`
}

// goalSpec is the mapping form of a goal.
type goalSpec struct {
	Variable string      `mapstructure:"variable"`
	Object   string      `mapstructure:"object"`
	Value    interface{} `mapstructure:"value"`
}

// ProblemFile is a loaded problem together with where it came from.
type ProblemFile struct {
	// Path is the file the problem was loaded from.
	Path string

	// Format is yaml, cue or starlark.
	Format string

	// Script is the resolved path of the domain script, if any.
	Script string

	// Problem is the decoded planning input.
	Problem *engine.Problem
}

// ValidationError represents a problem file error with location.
type ValidationError struct {
	// File is the file where the error occurred.
	File string `json:"file,omitempty"`

	// Line is the line number where the error occurred.
	Line int `json:"line,omitempty"`

	// Column is the column number where the error occurred.
	Column int `json:"column,omitempty"`

	// Path is the field path of the offending value (e.g. "goals[2]").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors collects every error found in one problem file.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// ToProblem converts the decoded file into an engine problem.
func (ps *ProblemSpec) ToProblem() (*engine.Problem, error) {
	var errs ValidationErrors

	state := engine.NewState(ps.Name)

	for _, typ := range sortedKeys(ps.Types) {
		state.Declare(typ, ps.Types[typ]...)
	}

	for _, variable := range sortedKeys(ps.State) {
		objects := ps.State[variable]
		if len(objects) == 0 {
			// An empty table still declares the variable.
			state.Declare(variable)
			continue
		}
		for _, object := range sortedKeys(objects) {
			v, err := engine.ValueOf(objects[object])
			if err != nil {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("state.%s.%s", variable, object),
					Message: err.Error(),
				})
				continue
			}
			state.Set(variable, object, v)
		}
	}

	goals := make([]engine.Goal, 0, len(ps.Goals))
	for i, raw := range ps.Goals {
		g, err := decodeGoal(raw)
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("goals[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		goals = append(goals, g)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &engine.Problem{
		Name:        ps.Name,
		Domain:      ps.Domain,
		Description: ps.Description,
		State:       state,
		Goals:       goals,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
