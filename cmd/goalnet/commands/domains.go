package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/goalnet/pkg/config"
	"github.com/openfroyo/goalnet/pkg/domains"
	"github.com/openfroyo/goalnet/pkg/engine"
)

func newDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List and inspect planning domains",
		Long: `List the built-in planning domains.

Subcommands show the operators and methods of a domain, built-in or scripted,
and export bundled example problems as problem files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDomains(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newDomainsDescribeCommand())
	cmd.AddCommand(newDomainsExportCommand())

	return cmd
}

// domainSummary is the JSON form of a domain listing entry.
type domainSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

func listDomains(out io.Writer) error {
	var summaries []domainSummary
	for _, d := range domains.All() {
		s := domainSummary{Name: d.Name, Description: d.Description}
		for _, p := range d.Problems() {
			s.Examples = append(s.Examples, p.Name)
		}
		summaries = append(summaries, s)
	}

	if jsonOutput {
		return writeJSON(out, summaries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXAMPLES\tDESCRIPTION")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, len(s.Examples), s.Description)
	}
	return tw.Flush()
}

// domainDescription is the JSON output of domains describe.
type domainDescription struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Script       string                 `json:"script,omitempty"`
	Capabilities []engine.RegistryEntry `json:"capabilities"`
	Examples     []exampleSummary       `json:"examples,omitempty"`
}

type exampleSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Goals       int    `json:"goals"`
}

func newDomainsDescribeCommand() *cobra.Command {
	var script string

	cmd := &cobra.Command{
		Use:   "describe [domain]",
		Short: "Show the operators and methods of a domain",
		Long: `Show the capability tables of a domain: for every state variable, the
operators and methods registered for it, in the order the planner tries them.`,
		Example: `  # Describe a built-in domain
  goalnet domains describe logistics

  # Describe a scripted domain
  goalnet domains describe --script robot.star`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desc domainDescription

			switch {
			case script != "" && len(args) > 0:
				return errors.New("give either a domain name or --script, not both")

			case script != "":
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				sd, err := config.LoadScriptDomain(script, settings.Search.ScriptMaxSteps)
				if err != nil {
					return err
				}
				desc.Name = sd.Name
				desc.Script = sd.Path
				desc.Capabilities = sd.NewRegistry().Describe()

			case len(args) == 1:
				d, err := domains.Lookup(args[0])
				if err != nil {
					return err
				}
				reg := engine.NewRegistry()
				d.Register(reg)
				desc.Name = d.Name
				desc.Description = d.Description
				desc.Capabilities = reg.Describe()
				for _, p := range d.Problems() {
					desc.Examples = append(desc.Examples, exampleSummary{
						Name:        p.Name,
						Description: p.Description,
						Goals:       len(p.Goals),
					})
				}

			default:
				return errors.New("a domain name or --script is required")
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, desc)
			}
			return printDescription(out, desc)
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "describe a Starlark domain script")

	return cmd
}

func printDescription(out io.Writer, desc domainDescription) error {
	fmt.Fprintf(out, "Domain: %s\n", desc.Name)
	if desc.Description != "" {
		fmt.Fprintf(out, "  %s\n", desc.Description)
	}
	if desc.Script != "" {
		fmt.Fprintf(out, "Script: %s\n", desc.Script)
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tOPERATORS\tMETHODS")
	for _, e := range desc.Capabilities {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Variable, listOrDash(e.Operators), listOrDash(e.Methods))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(desc.Examples) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Examples:")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, ex := range desc.Examples {
			fmt.Fprintf(tw, "  %s\t%d goals\t%s\n", ex.Name, ex.Goals, ex.Description)
		}
		return tw.Flush()
	}
	return nil
}

func listOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func newDomainsExportCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <domain> <example>",
		Short: "Write a bundled example as a YAML problem file",
		Example: `  # Start a new problem from a bundled example
  goalnet domains export logistics between-cities --out deliver.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domains.Problem(args[0], args[1])
			if err != nil {
				return err
			}
			data, err := config.EncodeProblem(p)
			if err != nil {
				return fmt.Errorf("failed to encode problem: %w", err)
			}

			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("failed to write problem file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: standard output)")

	return cmd
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
