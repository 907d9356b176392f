package config

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// DefaultScriptMaxSteps bounds the Starlark execution steps of one script
// evaluation or one capability call.
const DefaultScriptMaxSteps = 1_000_000

// StarlarkResult is the outcome of evaluating a Starlark script.
type StarlarkResult struct {
	// Output holds the script's public globals converted to Go values.
	Output map[string]interface{}

	// ExecutionTime is how long the evaluation took.
	ExecutionTime time.Duration
}

// StarlarkEvaluator executes Starlark scripts with a step budget.
type StarlarkEvaluator struct {
	maxSteps uint64
}

// NewStarlarkEvaluator creates a new Starlark evaluator. Zero maxSteps
// means DefaultScriptMaxSteps.
func NewStarlarkEvaluator(maxSteps uint64) *StarlarkEvaluator {
	if maxSteps == 0 {
		maxSteps = DefaultScriptMaxSteps
	}
	return &StarlarkEvaluator{
		maxSteps: maxSteps,
	}
}

// newThread returns a thread with the step budget applied and print
// suppressed.
func (se *StarlarkEvaluator) newThread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name:  name,
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(se.maxSteps)
	return thread
}

// predeclared returns the names available to every script.
func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"key":    starlark.NewBuiltin("key", builtinKey),
	}
}

// Evaluate executes a script with the given input bound as globals and
// returns its public globals. Cancelling ctx stops the script.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, filename, script string, input map[string]interface{}) (*StarlarkResult, error) {
	startTime := time.Now()

	env := predeclared()
	for key, val := range input {
		sv, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		env[key] = sv
	}

	thread := se.newThread(filename)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	globals, err := starlark.ExecFile(thread, filename, script, env)
	if err != nil {
		return nil, scriptError(err)
	}

	output := make(map[string]interface{})
	for name, val := range globals {
		// Names starting with _ are private to the script.
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		if _, ok := val.(starlark.Callable); ok {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output %s: %w", name, err)
		}
		output[name] = goVal
	}

	return &StarlarkResult{
		Output:        output,
		ExecutionTime: time.Since(startTime),
	}, nil
}

// EvaluateProblem runs a Starlark problem file and returns its `problem`
// global.
func (se *StarlarkEvaluator) EvaluateProblem(path string, content []byte) (map[string]interface{}, error) {
	result, err := se.Evaluate(context.Background(), path, string(content), nil)
	if err != nil {
		return nil, err
	}

	raw, ok := result.Output["problem"]
	if !ok {
		return nil, ValidationErrors{{Message: "script does not define a global named problem"}}
	}
	problem, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ValidationErrors{{Message: fmt.Sprintf("problem must be a dict, got %T", raw)}}
	}
	return problem, nil
}

// scriptError keeps the Starlark backtrace in the message.
func scriptError(err error) error {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return fmt.Errorf("starlark: %s", evalErr.Backtrace())
	}
	return fmt.Errorf("starlark: %w", err)
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case engine.Value:
		return fromEngineValue(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			starlarkVal, err := toStarlarkValue(val[k])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = goItem
		}
		return list, nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}

// fromEngineValue converts a state value for use in a script. Integral
// numbers become ints so scripts can index and compare them naturally.
func fromEngineValue(v engine.Value) starlark.Value {
	switch v.Kind() {
	case engine.KindString:
		s, _ := v.Str()
		return starlark.String(s)
	case engine.KindBool:
		b, _ := v.AsBool()
		return starlark.Bool(b)
	case engine.KindNumber:
		n, _ := v.AsNumber()
		if n == float64(int64(n)) {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	default:
		return starlark.None
	}
}

// toEngineValue converts a script scalar into a state value.
func toEngineValue(v starlark.Value) (engine.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return engine.Absent(), nil
	case starlark.String:
		return engine.String(string(val)), nil
	case starlark.Bool:
		return engine.Bool(bool(val)), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return engine.Absent(), fmt.Errorf("integer too large")
		}
		return engine.Number(float64(i)), nil
	case starlark.Float:
		return engine.Number(float64(val)), nil
	default:
		return engine.Absent(), fmt.Errorf("state values must be str, bool, int or float, got %s", v.Type())
	}
}

// builtinKey implements key(*parts), the composite object key helper.
func builtinKey(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		s, ok := starlark.AsString(arg)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want string", b.Name(), i+1, arg.Type())
		}
		parts[i] = s
	}
	return starlark.String(engine.Key(parts...)), nil
}
