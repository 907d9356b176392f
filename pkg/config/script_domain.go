package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// ScriptDomain is a planning domain whose operators and methods are
// Starlark functions. A script declares them with
//
//	declare_operators("loc", move, ...)
//	declare_methods("loc", travel, ...)
//
// Every capability is called as f(state, object, value). Variables of state
// behave like dicts (state.loc["robot"], assignment, `in`, sorted
// iteration, get/keys/values/items). Operators return the state, or False
// or None when not applicable. Methods return a list of
// (variable, object, value) tuples, or False or None.
type ScriptDomain struct {
	// Name is the script's domain_name global, or the file name.
	Name string

	// Path is the script file.
	Path string

	operators []declaredOperators
	methods   []declaredMethods
	eval      *StarlarkEvaluator
}

type declaredOperators struct {
	variable string
	ops      []engine.Operator
}

type declaredMethods struct {
	variable string
	methods  []engine.Method
}

// LoadScriptDomain reads and executes a domain script.
func LoadScriptDomain(path string, maxSteps uint64) (*ScriptDomain, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain script: %w", err)
	}
	return NewStarlarkEvaluator(maxSteps).LoadDomain(path, content)
}

// LoadDomain executes a domain script and collects its declarations.
func (se *StarlarkEvaluator) LoadDomain(path string, content []byte) (*ScriptDomain, error) {
	d := &ScriptDomain{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
		eval: se,
	}

	env := predeclared()
	env["declare_operators"] = starlark.NewBuiltin("declare_operators", d.declareOperators)
	env["declare_methods"] = starlark.NewBuiltin("declare_methods", d.declareMethods)

	globals, err := starlark.ExecFile(se.newThread(path), path, content, env)
	if err != nil {
		return nil, scriptError(err)
	}

	if name, ok := globals["domain_name"]; ok {
		s, ok := starlark.AsString(name)
		if !ok || s == "" {
			return nil, fmt.Errorf("%s: domain_name must be a non-empty string", path)
		}
		d.Name = s
	}
	if len(d.operators) == 0 && len(d.methods) == 0 {
		return nil, fmt.Errorf("%s: script declares no operators or methods", path)
	}
	return d, nil
}

// Register installs the script's capabilities, in declaration order.
func (d *ScriptDomain) Register(reg *engine.Registry) {
	for _, decl := range d.operators {
		reg.RegisterOperators(decl.variable, decl.ops...)
	}
	for _, decl := range d.methods {
		reg.RegisterMethods(decl.variable, decl.methods...)
	}
}

// NewRegistry returns a registry populated with the script's capabilities.
func (d *ScriptDomain) NewRegistry() *engine.Registry {
	reg := engine.NewRegistry()
	d.Register(reg)
	return reg
}

func (d *ScriptDomain) declareOperators(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	variable, fns, err := unpackDeclaration(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	decl := declaredOperators{variable: variable}
	for _, fn := range fns {
		decl.ops = append(decl.ops, d.operator(fn))
	}
	d.operators = append(d.operators, decl)
	return starlark.None, nil
}

func (d *ScriptDomain) declareMethods(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	variable, fns, err := unpackDeclaration(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	decl := declaredMethods{variable: variable}
	for _, fn := range fns {
		decl.methods = append(decl.methods, d.method(fn))
	}
	d.methods = append(d.methods, decl)
	return starlark.None, nil
}

func unpackDeclaration(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (string, []starlark.Callable, error) {
	if len(kwargs) > 0 {
		return "", nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 2 {
		return "", nil, fmt.Errorf("%s: want a variable name and at least one function", b.Name())
	}
	variable, ok := starlark.AsString(args[0])
	if !ok || variable == "" {
		return "", nil, fmt.Errorf("%s: variable name must be a non-empty string", b.Name())
	}
	fns := make([]starlark.Callable, 0, len(args)-1)
	for i, arg := range args[1:] {
		fn, ok := arg.(starlark.Callable)
		if !ok {
			return "", nil, fmt.Errorf("%s: argument %d is %s, want function", b.Name(), i+2, arg.Type())
		}
		fns = append(fns, fn)
	}
	return variable, fns, nil
}

func (d *ScriptDomain) call(fn starlark.Callable, sv *stateValue, object string, value engine.Value) (starlark.Value, error) {
	thread := d.eval.newThread(fn.Name())
	args := starlark.Tuple{sv, starlark.String(object), fromEngineValue(value)}
	res, err := starlark.Call(thread, fn, args, nil)
	if err != nil {
		return nil, scriptError(err)
	}
	return res, nil
}

func (d *ScriptDomain) operator(fn starlark.Callable) engine.Operator {
	return engine.NewOperator(fn.Name(), func(s *engine.State, object string, value engine.Value) (*engine.State, error) {
		sv := &stateValue{state: s}
		res, err := d.call(fn, sv, object, value)
		if err != nil {
			return nil, err
		}
		switch r := res.(type) {
		case *stateValue:
			return r.state, nil
		case starlark.NoneType:
			return nil, engine.ErrInapplicable
		case starlark.Bool:
			if !r {
				return nil, engine.ErrInapplicable
			}
		}
		return nil, fmt.Errorf("operator %s returned %s, want the state, False or None", fn.Name(), res.Type())
	})
}

func (d *ScriptDomain) method(fn starlark.Callable) engine.Method {
	return engine.NewMethod(fn.Name(), func(s *engine.State, object string, value engine.Value) ([]engine.Goal, error) {
		sv := &stateValue{state: s, readonly: true}
		res, err := d.call(fn, sv, object, value)
		if err != nil {
			return nil, err
		}

		var items starlark.Iterable
		switch r := res.(type) {
		case starlark.NoneType:
			return nil, engine.ErrInapplicable
		case starlark.Bool:
			if !r {
				return nil, engine.ErrInapplicable
			}
			return nil, fmt.Errorf("method %s returned True, want a list of goals, False or None", fn.Name())
		case *starlark.List:
			items = r
		case starlark.Tuple:
			items = r
		default:
			return nil, fmt.Errorf("method %s returned %s, want a list of goals, False or None", fn.Name(), res.Type())
		}

		goals := []engine.Goal{}
		iter := items.Iterate()
		defer iter.Done()
		var item starlark.Value
		for i := 0; iter.Next(&item); i++ {
			g, err := toGoal(item)
			if err != nil {
				return nil, fmt.Errorf("method %s: subgoal %d: %w", fn.Name(), i, err)
			}
			goals = append(goals, g)
		}
		return goals, nil
	})
}

func toGoal(v starlark.Value) (engine.Goal, error) {
	seq, ok := v.(starlark.Indexable)
	if _, isStr := v.(starlark.String); isStr || !ok || seq.Len() != 3 {
		return engine.Goal{}, fmt.Errorf("want a (variable, object, value) triple, got %s", v.String())
	}
	variable, ok1 := starlark.AsString(seq.Index(0))
	object, ok2 := starlark.AsString(seq.Index(1))
	if !ok1 || !ok2 {
		return engine.Goal{}, fmt.Errorf("variable and object must be strings in %s", v.String())
	}
	value, err := toEngineValue(seq.Index(2))
	if err != nil {
		return engine.Goal{}, err
	}
	return engine.Goal{Variable: variable, Object: object, Value: value}, nil
}

// stateValue exposes an engine state to scripts. Each attribute is a
// variable table.
type stateValue struct {
	state    *engine.State
	readonly bool
}

var (
	_ starlark.HasAttrs  = (*stateValue)(nil)
	_ starlark.Mapping   = (*varValue)(nil)
	_ starlark.HasSetKey = (*varValue)(nil)
	_ starlark.Sequence  = (*varValue)(nil)
	_ starlark.HasAttrs  = (*varValue)(nil)
)

func (sv *stateValue) String() string        { return fmt.Sprintf("<state %s>", sv.state.Name) }
func (sv *stateValue) Type() string          { return "state" }
func (sv *stateValue) Freeze()               {}
func (sv *stateValue) Truth() starlark.Bool  { return starlark.True }
func (sv *stateValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: state") }

// Attr returns the table of the named variable. Unknown variables yield an
// empty table so that `x in state.v` works before v is first assigned.
func (sv *stateValue) Attr(name string) (starlark.Value, error) {
	return &varValue{state: sv, variable: name}, nil
}

// AttrNames returns the state's variables in sorted order.
func (sv *stateValue) AttrNames() []string {
	return sv.state.Variables()
}

// varValue is the dict-like view of one state variable.
type varValue struct {
	state    *stateValue
	variable string
}

func (v *varValue) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, o := range v.keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		val, _ := v.state.state.Get(v.variable, o)
		fmt.Fprintf(&b, "%q: %s", o, fromEngineValue(val).String())
	}
	b.WriteString("}")
	return b.String()
}

func (v *varValue) Type() string          { return "state_table" }
func (v *varValue) Freeze()               {}
func (v *varValue) Truth() starlark.Bool  { return starlark.Bool(v.Len() > 0) }
func (v *varValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: state_table") }

func (v *varValue) keys() []string {
	return v.state.state.Objects(v.variable)
}

// Get implements starlark.Mapping.
func (v *varValue) Get(k starlark.Value) (starlark.Value, bool, error) {
	object, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("state_table key must be a string, got %s", k.Type())
	}
	val, found := v.state.state.Get(v.variable, object)
	if !found {
		return nil, false, nil
	}
	return fromEngineValue(val), true, nil
}

// SetKey implements starlark.HasSetKey. None is stored as the absent value.
func (v *varValue) SetKey(k, value starlark.Value) error {
	if v.state.readonly {
		return fmt.Errorf("cannot modify state.%s: methods receive a read-only state", v.variable)
	}
	object, ok := starlark.AsString(k)
	if !ok {
		return fmt.Errorf("state_table key must be a string, got %s", k.Type())
	}
	val, err := toEngineValue(value)
	if err != nil {
		return err
	}
	v.state.state.Set(v.variable, object, val)
	return nil
}

// Len implements starlark.Sequence.
func (v *varValue) Len() int {
	return len(v.keys())
}

// Iterate implements starlark.Iterable, yielding objects in sorted order.
func (v *varValue) Iterate() starlark.Iterator {
	keys := v.keys()
	elems := make([]starlark.Value, len(keys))
	for i, k := range keys {
		elems[i] = starlark.String(k)
	}
	return starlark.Tuple(elems).Iterate()
}

// Attr implements the dict-style helper methods.
func (v *varValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "get":
		return starlark.NewBuiltin("get", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var key starlark.Value
			var dflt starlark.Value = starlark.None
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key, &dflt); err != nil {
				return nil, err
			}
			val, found, err := v.Get(key)
			if err != nil {
				return nil, err
			}
			if !found {
				return dflt, nil
			}
			return val, nil
		}), nil
	case "keys":
		return starlark.NewBuiltin("keys", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
			keys := v.keys()
			out := make([]starlark.Value, len(keys))
			for i, k := range keys {
				out[i] = starlark.String(k)
			}
			return starlark.NewList(out), nil
		}), nil
	case "values", "items":
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
			var out []starlark.Value
			for _, k := range v.keys() {
				val, _ := v.state.state.Get(v.variable, k)
				if name == "values" {
					out = append(out, fromEngineValue(val))
				} else {
					out = append(out, starlark.Tuple{starlark.String(k), fromEngineValue(val)})
				}
			}
			return starlark.NewList(out), nil
		}), nil
	}
	return nil, nil
}

// AttrNames implements starlark.HasAttrs.
func (v *varValue) AttrNames() []string {
	return []string{"get", "items", "keys", "values"}
}
