package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/goalnet/pkg/config"
	"github.com/openfroyo/goalnet/pkg/engine"
	"github.com/openfroyo/goalnet/pkg/policy"
	"github.com/openfroyo/goalnet/pkg/telemetry"
)

// planOptions holds the flags of the plan command.
type planOptions struct {
	inputSource

	traceLevel int
	maxDepth   int
	maxFrames  int
	verify     bool
	policies   []string
	traceOut   string
	watch      bool
}

func newPlanCommand() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan [problem]",
		Short: "Find a plan that achieves a problem's goals",
		Long: `Find a plan that achieves the goals of a problem, in order.

The problem is a YAML, CUE or Starlark file, or a bundled example of a
built-in domain. Capabilities come from the built-in domain the problem
names, or from a Starlark domain script.

Found plans can be:
  - Replayed against the initial state (--verify)
  - Checked against Rego admission policies (--policy)

Exit status is 2 when no plan exists and 3 when a policy rejects the plan.`,
		Example: `  # Plan a problem file
  goalnet plan problems/deliver.yaml

  # Plan a bundled example with a frame-by-frame trace
  goalnet plan --domain logistics --example single-truck -v 2

  # Plan with a scripted domain and write the search journal
  goalnet plan rooms.star --script robot.star --trace-out trace.jsonl

  # Reject plans that fly to closed airports, and plan again on every change
  goalnet plan deliver.yaml --policy policies/ --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.path = args[0]
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if err := applyPlanFlags(cmd, &opts, settings); err != nil {
				return err
			}

			r, err := newPlanRunner(cmd.Context(), settings, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer r.close()

			return r.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&opts.domain, "domain", "d", "", "built-in domain (overrides the problem file)")
	cmd.Flags().StringVar(&opts.script, "script", "", "Starlark domain script (overrides the problem file)")
	cmd.Flags().StringVarP(&opts.example, "example", "e", "", "plan a bundled example problem of --domain")
	cmd.Flags().IntVarP(&opts.traceLevel, "trace-level", "v", 0, "planner trace level: 0 none, 1 summary, 2 frames, 3 detail")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "abort searches deeper than this (0: default bound)")
	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", 0, "abort searches with more frames than this (0: no bound)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "replay the plan and check that the goals hold")
	cmd.Flags().StringSliceVar(&opts.policies, "policy", nil, "Rego policy file or directory (repeatable)")
	cmd.Flags().StringVar(&opts.traceOut, "trace-out", "", "write the search event journal as JSON lines")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "plan again whenever an input file changes")

	return cmd
}

// applyPlanFlags folds explicitly set flags into the settings.
func applyPlanFlags(cmd *cobra.Command, opts *planOptions, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("trace-level") {
		s.Search.TraceLevel = engine.TraceLevel(opts.traceLevel)
	}
	if flags.Changed("max-depth") {
		s.Search.MaxDepth = opts.maxDepth
	}
	if flags.Changed("max-frames") {
		s.Search.MaxFrames = opts.maxFrames
	}
	if opts.verify {
		s.Search.VerifyPlans = true
	}
	if len(opts.policies) > 0 {
		s.Policy.Enabled = true
		s.Policy.Paths = append(s.Policy.Paths, opts.policies...)
	}

	// Frame events log at debug and detail events at trace.
	if lvl := logLevelFor(s.Search.TraceLevel); telemetry.ParseLevel(lvl) < telemetry.ParseLevel(s.Telemetry.Logging.Level) {
		s.Telemetry.Logging.Level = lvl
	}

	if opts.traceOut != "" {
		s.Telemetry.Events.Enabled = true
		if s.Search.TraceLevel == engine.TraceNone {
			s.Search.TraceLevel = engine.TraceDetail
		}
	}

	return s.Validate()
}

// logLevelFor returns the log level at which the LogObserver output of a
// trace level becomes visible.
func logLevelFor(level engine.TraceLevel) string {
	switch {
	case level >= engine.TraceDetail:
		return "trace"
	case level == engine.TraceFrames:
		return "debug"
	default:
		return "info"
	}
}

// planRunner plans one problem, once or on every change of its inputs.
type planRunner struct {
	settings *config.Settings
	opts     planOptions
	out      io.Writer
	tel      *telemetry.Telemetry
	policies *policy.Engine
	logger   zerolog.Logger
}

func newPlanRunner(ctx context.Context, settings *config.Settings, opts planOptions, out io.Writer) (*planRunner, error) {
	tel, err := newTelemetry(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	r := &planRunner{
		settings: settings,
		opts:     opts,
		out:      out,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("cli").Zerolog(),
	}

	if settings.Policy.Enabled {
		pe, err := newPolicyEngine(ctx, settings, opts.watch, tel)
		if err != nil {
			r.close()
			return nil, err
		}
		r.policies = pe
	}
	return r, nil
}

// newPolicyEngine builds the admission engine from the policy settings.
func newPolicyEngine(ctx context.Context, s *config.Settings, watch bool, tel *telemetry.Telemetry) (*policy.Engine, error) {
	eng, err := policy.NewEngine(tel.Logger.Zerolog(),
		policy.WithLimits(policy.Limits{
			MaxPlanLength:      s.Policy.MaxPlanLength,
			ForbiddenOperators: s.Policy.ForbiddenOperators,
		}),
		policy.WithRecorder(tel.Metrics),
	)
	if err != nil {
		return nil, err
	}
	if len(s.Policy.Paths) == 0 {
		return eng, nil
	}

	if err := eng.LoadPolicies(ctx, s.Policy.Paths); err != nil {
		return nil, err
	}
	if watch || s.Policy.Watch {
		if err := eng.Watch(ctx, s.Policy.Paths); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func (r *planRunner) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.tel.Shutdown(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

func (r *planRunner) run(ctx context.Context) error {
	if !r.opts.watch {
		_, err := r.planOnce(ctx)
		return err
	}
	return r.watch(ctx)
}

// watch plans once, then again whenever the problem file or the domain
// script changes, until ctx is cancelled. Planning errors are logged.
func (r *planRunner) watch(ctx context.Context) error {
	if r.opts.path == "" {
		return errors.New("--watch needs a problem file")
	}
	if err := r.tel.StartMetricsServer(); err != nil {
		return err
	}

	files := []string{r.opts.path}
	if in, err := r.planOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Planning failed")
		if r.opts.script != "" {
			files = append(files, r.opts.script)
		}
	} else {
		files = in.files()
	}

	w := config.NewWatcher(r.logger, config.DefaultWatchDelay)
	defer w.Close()

	err := w.Watch(ctx, files, func(changed []string) {
		r.logger.Info().Strs("files", changed).Msg("Input changed, planning again")
		if _, err := r.planOnce(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Planning failed")
		}
	})
	if err != nil {
		return err
	}

	r.logger.Info().Strs("files", files).Msg("Watching for changes")
	<-ctx.Done()
	return nil
}

// planOnce loads the input, searches, checks the plan and reports it.
func (r *planRunner) planOnce(ctx context.Context) (*planInput, error) {
	in, err := loadInput(r.opts.inputSource, r.settings.Search.ScriptMaxSteps)
	if err != nil {
		return nil, err
	}
	p := in.problem

	planner := engine.NewPlanner(in.registry,
		engine.WithConfig(r.settings.Search.SearchConfig),
		engine.WithObserver(r.tel.Observer()),
	)

	result, err := r.tel.Search(ctx, p.Name, p.Domain, len(p.Goals), func(ctx context.Context) (*engine.Result, error) {
		return planner.Plan(ctx, p.State, p.Goals)
	})
	if werr := r.writeTrace(); werr != nil {
		r.logger.Warn().Err(werr).Str("path", r.opts.traceOut).Msg("Failed to write trace")
	}
	if err != nil {
		return in, err
	}

	if result.Found() && r.settings.Search.VerifyPlans {
		if err := engine.VerifyPlan(in.registry, p.State, p.Goals, result.Plan); err != nil {
			return in, err
		}
	}

	var decision *policy.Decision
	if result.Found() && r.policies != nil {
		decision, err = r.admit(ctx, p, result)
		if err != nil {
			return in, err
		}
	}

	if err := r.report(p, result, decision); err != nil {
		return in, err
	}

	if !result.Found() {
		return in, engine.NewExhaustedError(fmt.Sprintf("no plan achieves the goals of %s", p.Name))
	}
	if decision != nil {
		return in, decision.Err()
	}
	return in, nil
}

// admit evaluates the admission policies against a found plan.
func (r *planRunner) admit(ctx context.Context, p *engine.Problem, result *engine.Result) (*policy.Decision, error) {
	ctx, span := r.tel.StartOperation(ctx, "policy.evaluate",
		attribute.String("goalnet.problem", p.Name),
		attribute.Int("goalnet.plan_length", len(result.Plan)),
	)
	defer span.End()

	decision, err := r.policies.EvaluatePlan(ctx, policy.NewInput(p, result))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	span.SetAttributes(attribute.Bool("goalnet.policy.allowed", decision.Allowed))

	for _, w := range decision.Warnings {
		r.logger.Warn().
			Str("policy", w.Policy).
			Str("severity", string(w.Severity)).
			Int("step", w.Step).
			Msg(w.Message)
	}
	return decision, nil
}

// writeTrace writes and clears the event journal when --trace-out is set.
func (r *planRunner) writeTrace() error {
	if r.opts.traceOut == "" {
		return nil
	}
	defer r.tel.Events.Reset()

	f, err := os.Create(r.opts.traceOut)
	if err != nil {
		return err
	}
	if err := r.tel.Events.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// planReport is the JSON output of the plan command.
type planReport struct {
	Problem string           `json:"problem"`
	Domain  string           `json:"domain"`
	Result  *engine.Result   `json:"result"`
	Policy  *policy.Decision `json:"policy,omitempty"`
}

func (r *planRunner) report(p *engine.Problem, result *engine.Result, decision *policy.Decision) error {
	if jsonOutput {
		return writeJSON(r.out, planReport{
			Problem: p.Name,
			Domain:  p.Domain,
			Result:  result,
			Policy:  decision,
		})
	}

	if !result.Found() {
		fmt.Fprintf(r.out, "%s (%s): no plan found\n", p.Name, p.Domain)
	} else {
		fmt.Fprintf(r.out, "%s (%s): plan with %d actions\n", p.Name, p.Domain, len(result.Plan))
		for i, a := range result.Plan {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, a)
		}
	}

	st := result.Stats
	fmt.Fprintf(r.out, "search: %d frames, depth %d, %d backtracks, %s\n",
		st.Frames, st.MaxDepth, st.Backtracks, result.Duration.Round(time.Microsecond))

	if decision != nil {
		for _, v := range decision.Violations {
			fmt.Fprintf(r.out, "rejected: %s\n", v)
		}
		for _, w := range decision.Warnings {
			fmt.Fprintf(r.out, "warning: %s\n", w)
		}
	}
	return nil
}
