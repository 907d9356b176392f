package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Problem file formats.
const (
	FormatYAML     = "yaml"
	FormatCUE      = "cue"
	FormatStarlark = "starlark"
)

// Loader reads problem files in any supported format.
type Loader struct {
	cue       *CUEParser
	starlark  *StarlarkEvaluator
	validator *validator.Validate
}

// NewLoader creates a problem loader.
func NewLoader() *Loader {
	return &Loader{
		cue:       NewCUEParser(),
		starlark:  NewStarlarkEvaluator(DefaultScriptMaxSteps),
		validator: validator.New(),
	}
}

// FormatOf returns the problem format implied by a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".star", ".sky", ".starlark":
		return FormatStarlark, nil
	default:
		return "", fmt.Errorf("unsupported problem file extension %q (want .yaml, .yml, .json, .cue or .star)", filepath.Ext(path))
	}
}

// LoadProblem reads and decodes a problem file.
func (l *Loader) LoadProblem(path string) (*ProblemFile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}

	var raw map[string]interface{}
	switch format {
	case FormatYAML:
		raw, err = decodeYAML(content)
	case FormatCUE:
		raw, err = l.cue.DecodeProblem(path, content)
	case FormatStarlark:
		raw, err = l.starlark.EvaluateProblem(path, content)
	}
	if err == nil && format != FormatCUE {
		err = l.cue.ValidateProblemData(raw)
	}
	if err != nil {
		return nil, withFile(err, path)
	}

	spec, err := l.DecodeSpec(raw)
	if err != nil {
		return nil, withFile(err, path)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	problem, err := spec.ToProblem()
	if err != nil {
		return nil, withFile(err, path)
	}

	pf := &ProblemFile{
		Path:    path,
		Format:  format,
		Problem: problem,
	}
	if spec.Script != "" {
		pf.Script = spec.Script
		if !filepath.IsAbs(pf.Script) {
			pf.Script = filepath.Join(filepath.Dir(path), pf.Script)
		}
	}
	return pf, nil
}

// DecodeSpec decodes a generic map into a ProblemSpec and validates it.
// Unknown top-level keys are rejected.
func (l *Loader) DecodeSpec(raw map[string]interface{}) (*ProblemSpec, error) {
	if raw == nil {
		return nil, ValidationErrors{{Message: "problem is empty"}}
	}

	var spec ProblemSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &spec,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, ValidationErrors{{Message: err.Error()}}
	}

	if err := l.validator.Struct(spec); err != nil {
		return nil, ValidationErrors{{Message: err.Error()}}
	}
	return &spec, nil
}

// decodeGoal accepts either a [variable, object, value] list or a mapping
// with variable, object and value keys.
func decodeGoal(raw interface{}) (engine.Goal, error) {
	switch g := raw.(type) {
	case []interface{}:
		if len(g) != 3 {
			return engine.Goal{}, fmt.Errorf("goal must have 3 elements, got %d", len(g))
		}
		variable, ok1 := g[0].(string)
		object, ok2 := g[1].(string)
		if !ok1 || !ok2 {
			return engine.Goal{}, fmt.Errorf("goal variable and object must be strings")
		}
		value, err := engine.ValueOf(g[2])
		if err != nil {
			return engine.Goal{}, err
		}
		return engine.Goal{Variable: variable, Object: object, Value: value}, nil

	case map[string]interface{}:
		var gs goalSpec
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      &gs,
		})
		if err != nil {
			return engine.Goal{}, err
		}
		if err := dec.Decode(g); err != nil {
			return engine.Goal{}, err
		}
		if _, ok := g["value"]; gs.Variable == "" || gs.Object == "" || !ok {
			return engine.Goal{}, fmt.Errorf("goal needs variable, object and value")
		}
		value, err := engine.ValueOf(gs.Value)
		if err != nil {
			return engine.Goal{}, err
		}
		return engine.Goal{Variable: gs.Variable, Object: gs.Object, Value: value}, nil

	default:
		return engine.Goal{}, fmt.Errorf("goal must be a list or a mapping, got %T", raw)
	}
}

func decodeYAML(content []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, ValidationErrors{{Message: fmt.Sprintf("invalid YAML: %v", err)}}
	}
	return raw, nil
}

// withFile stamps validation errors that carry no file with path.
func withFile(err error, path string) error {
	switch e := err.(type) {
	case ValidationErrors:
		out := make(ValidationErrors, len(e))
		for i, ve := range e {
			if ve.File == "" {
				ve.File = path
			}
			out[i] = ve
		}
		return out
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}

// EncodeProblem renders a problem back into its YAML problem file form.
func EncodeProblem(p *engine.Problem) ([]byte, error) {
	spec := ProblemSpec{
		Name:        p.Name,
		Domain:      p.Domain,
		Description: p.Description,
		State:       p.State.Snapshot(),
	}
	for _, g := range p.Goals {
		spec.Goals = append(spec.Goals, []interface{}{g.Variable, g.Object, g.Value.Interface()})
	}
	return yaml.Marshal(&spec)
}
