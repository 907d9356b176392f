package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// validateReport is the JSON output of the validate command.
type validateReport struct {
	Problem     string        `json:"problem"`
	Domain      string        `json:"domain"`
	Variables   []string      `json:"variables"`
	Goals       []engine.Goal `json:"goals"`
	Unsatisfied []engine.Goal `json:"unsatisfied"`
}

func newValidateCommand() *cobra.Command {
	var src inputSource

	cmd := &cobra.Command{
		Use:   "validate [problem]",
		Short: "Validate a problem against its domain",
		Long: `Validate a problem file without planning.

This command checks:
  - File syntax and the problem schema
  - That the domain or domain script exists and loads
  - That every goal names a variable some capability handles
  - That every goal object exists in the initial state`,
		Example: `  # Validate a problem file
  goalnet validate problems/deliver.yaml

  # Validate a problem against a domain script
  goalnet validate rooms.star --script robot.star`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				src.path = args[0]
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			in, err := loadInput(src, settings.Search.ScriptMaxSteps)
			if err != nil {
				return err
			}
			p := in.problem

			log.Debug().
				Str("problem", p.Name).
				Str("domain", p.Domain).
				Int("goals", len(p.Goals)).
				Msg("Validating problem")

			if err := engine.ValidateGoals(in.registry, p.State, p.Goals); err != nil {
				return err
			}

			report := validateReport{
				Problem:     p.Name,
				Domain:      p.Domain,
				Variables:   p.State.Variables(),
				Goals:       p.Goals,
				Unsatisfied: engine.Unsatisfied(p.State, p.Goals),
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, report)
			}

			fmt.Fprintf(out, "%s (%s): valid\n", report.Problem, report.Domain)
			fmt.Fprintf(out, "  %d state variables, %d goals, %d not yet satisfied\n",
				len(report.Variables), len(report.Goals), len(report.Unsatisfied))
			return nil
		},
	}

	cmd.Flags().StringVarP(&src.domain, "domain", "d", "", "built-in domain (overrides the problem file)")
	cmd.Flags().StringVar(&src.script, "script", "", "Starlark domain script (overrides the problem file)")
	cmd.Flags().StringVarP(&src.example, "example", "e", "", "validate a bundled example problem of --domain")

	return cmd
}
