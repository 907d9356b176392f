package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a schema registry with the built-in schemas.
// Values validated against it must be built with the same context.
func NewSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema("problem", "#Problem", builtinProblemSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema("settings", "#Settings", builtinSettingsSchema); err != nil {
		panic(err)
	}

	return sr
}

// RegisterSchema compiles source and registers the definition named def
// under name.
func (sr *SchemaRegistry) RegisterSchema(name, def, source string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	schema := val.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, def)
	}

	sr.schemas[name] = schema
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Unify validates a CUE value against a named schema and returns the
// unified, concrete value.
func (sr *SchemaRegistry) Unify(schemaName string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, err
	}
	return unified, nil
}

// ValidateAgainstSchema validates plain Go data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	_, err := sr.Unify(schemaName, dataVal)
	return err
}

// ListSchemas returns all registered schema names in sorted order.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Built-in schema definitions

const builtinProblemSchema = `
// A state or goal value. null is the absent value.
#Value: string | bool | number | null

// A goal in list form [variable, object, value] or mapping form.
#Goal: [string, string, #Value] | {
	variable: string
	object:   string
	value:    #Value
}

// Problem file schema.
#Problem: {
	name?:        string
	domain?:      string
	script?:      string
	description?: string

	// Type sets: each member becomes <type>[member] = true.
	types?: [string]: [...string]

	// Variable -> object -> value.
	state: [string]: [string]: #Value

	goals: [...#Goal]
}
`

const builtinSettingsSchema = `
#Settings: {
	search?: {
		max_depth?:                  int & >=0
		max_frames?:                 int & >=0
		trace_level?:                int & >=0 & <=3
		accept_empty_decomposition?: bool
		accept_empty_method_plan?:   bool
		validate_goals?:             bool
		verify_plans?:               bool
		script_max_steps?:           int & >=0
	}
	policy?: {
		enabled?:          bool
		paths?:            [...string]
		max_plan_length?:  int & >=0
		forbidden_operators?: [...string]
		watch?:            bool
	}
	telemetry?: {...}
}
`
