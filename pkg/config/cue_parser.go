package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUEParser parses and validates CUE problem and settings files.
type CUEParser struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	ctx := cuecontext.New()
	return &CUEParser{
		ctx:            ctx,
		schemaRegistry: NewSchemaRegistry(ctx),
	}
}

// DecodeProblem compiles a CUE problem file, checks it against the problem
// schema and returns it as plain data. Definitions and hidden fields in the
// file are not part of the result, so files may declare helpers freely.
func (cp *CUEParser) DecodeProblem(path string, content []byte) (map[string]interface{}, error) {
	return cp.decode("problem", path, content)
}

// DecodeSettings compiles a CUE settings file and returns it as plain data.
func (cp *CUEParser) DecodeSettings(path string, content []byte) (map[string]interface{}, error) {
	return cp.decode("settings", path, content)
}

func (cp *CUEParser) decode(schema, path string, content []byte) (map[string]interface{}, error) {
	val := cp.ctx.CompileBytes(content, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, cp.convertCUEErrors(err)
	}

	unified, err := cp.schemaRegistry.Unify(schema, val)
	if err != nil {
		return nil, cp.convertCUEErrors(err)
	}

	var raw map[string]interface{}
	if err := unified.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode CUE value: %w", err)
	}
	return raw, nil
}

// ValidateProblemData checks decoded problem data from any format against
// the problem schema.
func (cp *CUEParser) ValidateProblemData(raw map[string]interface{}) error {
	if err := cp.schemaRegistry.ValidateAgainstSchema("problem", raw); err != nil {
		return cp.convertCUEErrors(err)
	}
	return nil
}

// convertCUEErrors converts CUE errors to ValidationErrors with positions.
func (cp *CUEParser) convertCUEErrors(err error) ValidationErrors {
	var validationErrors ValidationErrors

	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			Message: errors.Details(e, nil),
		}
		if pos := errors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		if p := e.Path(); len(p) > 0 {
			ve.Path = strings.Join(p, ".")
		}
		validationErrors = append(validationErrors, ve)
	}

	if len(validationErrors) == 0 {
		validationErrors = ValidationErrors{{Message: err.Error()}}
	}
	return validationErrors
}

// GetSchemaRegistry returns the schema registry.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}
