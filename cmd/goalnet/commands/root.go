package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/goalnet/pkg/config"
	"github.com/openfroyo/goalnet/pkg/engine"
	"github.com/openfroyo/goalnet/pkg/policy"
	"github.com/openfroyo/goalnet/pkg/telemetry"
)

var (
	// Global flags
	settingsPath string
	logLevel     string
	jsonOutput   bool

	// appVersion labels telemetry; set by newRootCommand.
	appVersion string
)

// Exit codes returned by ExitCode.
const (
	ExitFailure  = 1
	ExitNoPlan   = 2
	ExitRejected = 3
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case engine.IsExhausted(err):
		return ExitNoPlan
	case errors.Is(err, policy.ErrPlanRejected):
		return ExitRejected
	default:
		return ExitFailure
	}
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	appVersion = version

	rootCmd := &cobra.Command{
		Use:   "goalnet",
		Short: "goalnet - Hierarchical Goal Network planner",
		Long: `goalnet finds plans for ordered goals over a state of variable/object/value
bindings, using operators that change the state and methods that break a goal
into subgoals.

Features:
  - Built-in logistics and satellite domains
  - Problem files in YAML, CUE or Starlark
  - Domains scripted in Starlark
  - Plan admission policies in Rego
  - Structured logs, OpenTelemetry spans and Prometheus metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "settings file (default: goalnet.yaml or goalnet.cue in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDomainsCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

// loadSettings reads the settings named by --config, or the first settings
// file found in the working directory, over the defaults.
func loadSettings() (*config.Settings, error) {
	path := settingsPath
	if path == "" {
		path = config.FindSettings(".")
	}

	settings := config.DefaultSettings()
	if path != "" {
		loaded, err := config.LoadSettings(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
		log.Debug().Str("path", path).Msg("Loaded settings")
	}

	if logLevel != "" {
		settings.Telemetry.Logging.Level = logLevel
	}
	if err := settings.Telemetry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return settings, nil
}

// newTelemetry builds the telemetry stack for one command run.
func newTelemetry(settings *config.Settings) (*telemetry.Telemetry, error) {
	cfg := *settings.Telemetry
	if appVersion != "" {
		cfg.ServiceVersion = appVersion
	}
	allowLevel(cfg.Logging.Level)
	return telemetry.NewTelemetry(&cfg)
}

// allowLevel lowers the zerolog global level so that messages at level
// reach loggers configured for it.
func allowLevel(level string) {
	if lvl := telemetry.ParseLevel(level); lvl < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
	}
}
