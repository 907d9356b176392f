package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/goalnet/pkg/engine"
	"github.com/openfroyo/goalnet/pkg/telemetry"
)

// SettingsFileNames are the file names FindSettings looks for, in order.
var SettingsFileNames = []string{"goalnet.yaml", "goalnet.yml", "goalnet.cue"}

// Settings is the planner settings file.
type Settings struct {
	// Search configures the planner.
	Search SearchSettings `yaml:"search" json:"search"`

	// Policy configures plan admission.
	Policy PolicySettings `yaml:"policy" json:"policy"`

	// Telemetry configures logging, tracing, metrics and the event journal.
	Telemetry *telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// SearchSettings extends the engine search configuration with options
// handled outside the engine.
type SearchSettings struct {
	engine.SearchConfig `yaml:",inline"`

	// VerifyPlans replays every found plan against the initial state and
	// fails if the goals do not hold afterwards.
	VerifyPlans bool `yaml:"verify_plans" json:"verify_plans"`

	// ScriptMaxSteps bounds Starlark execution steps per script call.
	ScriptMaxSteps uint64 `yaml:"script_max_steps" json:"script_max_steps"`
}

// PolicySettings configures the admission policies applied to found plans.
type PolicySettings struct {
	// Enabled turns plan admission on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Paths are .rego files or directories of user policies.
	Paths []string `yaml:"paths" json:"paths"`

	// MaxPlanLength rejects plans with more actions. Zero means no limit.
	MaxPlanLength int `yaml:"max_plan_length" json:"max_plan_length" validate:"gte=0"`

	// ForbiddenOperators rejects plans using any of these operators.
	ForbiddenOperators []string `yaml:"forbidden_operators" json:"forbidden_operators" validate:"dive,required"`

	// Watch reloads user policies when their files change.
	Watch bool `yaml:"watch" json:"watch"`
}

// DefaultSettings returns settings with the engine and telemetry defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Search: SearchSettings{
			SearchConfig:   engine.DefaultSearchConfig(),
			ScriptMaxSteps: DefaultScriptMaxSteps,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate checks every section of the settings.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.Search.SearchConfig.Validate(); err != nil {
		return err
	}
	if s.Telemetry == nil {
		return fmt.Errorf("invalid settings: telemetry section is missing")
	}
	if err := s.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry settings: %w", err)
	}
	return nil
}

// FindSettings returns the first settings file present in dir, or "" if
// there is none.
func FindSettings(dir string) string {
	for _, name := range SettingsFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadSettings reads a YAML or CUE settings file over the defaults and
// validates the result. Unknown keys are rejected.
func LoadSettings(path string) (*Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := DefaultSettings()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeSettingsYAML(content, settings)
	case ".cue":
		var raw map[string]interface{}
		raw, err = NewCUEParser().DecodeSettings(path, content)
		if err == nil {
			err = decodeSettingsMap(raw, settings)
		}
	default:
		err = fmt.Errorf("unsupported settings file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, withFile(err, path)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

func decodeSettingsYAML(content []byte, settings *Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return ValidationErrors{{Message: fmt.Sprintf("invalid YAML: %v", err)}}
	}
	return nil
}

// decodeSettingsMap decodes plain data over settings using the yaml field
// names, so YAML and CUE files share one vocabulary.
func decodeSettingsMap(raw map[string]interface{}, settings *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "yaml",
		Squash:      true,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		Result:      settings,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return ValidationErrors{{Message: err.Error()}}
	}
	return nil
}
