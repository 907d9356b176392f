package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxDepth bounds recursion when SearchConfig.MaxDepth is zero.
const DefaultMaxDepth = 10000

// SearchConfig configures a Planner. The zero value reproduces the classic
// HGN truthiness rules with the default depth bound.
type SearchConfig struct {
	// MaxDepth is the deepest search frame allowed before the search aborts
	// with a DEPTH_EXCEEDED error. Zero means DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth" json:"max_depth" validate:"gte=0"`

	// MaxFrames bounds the total number of search frames. Zero means no bound.
	MaxFrames int `yaml:"max_frames" json:"max_frames" validate:"gte=0"`

	// TraceLevel selects which events reach the Observer (0..3).
	TraceLevel TraceLevel `yaml:"trace_level" json:"trace_level" validate:"gte=0,lte=3"`

	// AcceptEmptyDecomposition makes a method that returns no subgoals count
	// as applicable. By default an empty decomposition is treated exactly like
	// an inapplicable method.
	AcceptEmptyDecomposition bool `yaml:"accept_empty_decomposition" json:"accept_empty_decomposition"`

	// AcceptEmptyMethodPlan makes a successful search below a method
	// expansion count even when the resulting plan is empty. By default such
	// an empty plan is rejected and the next method is tried.
	AcceptEmptyMethodPlan bool `yaml:"accept_empty_method_plan" json:"accept_empty_method_plan"`

	// ValidateGoals rejects goals naming variables or objects unknown to the
	// registry and the initial state before searching. By default such goals
	// simply fail to match any capability.
	ValidateGoals bool `yaml:"validate_goals" json:"validate_goals"`
}

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{MaxDepth: DefaultMaxDepth}
}

// Validate checks the configuration bounds.
func (c SearchConfig) Validate() error {
	if c.MaxDepth < 0 {
		return NewValidationError(fmt.Sprintf("max depth must not be negative, got %d", c.MaxDepth), nil)
	}
	if c.MaxFrames < 0 {
		return NewValidationError(fmt.Sprintf("max frames must not be negative, got %d", c.MaxFrames), nil)
	}
	if err := c.TraceLevel.Validate(); err != nil {
		return NewValidationError("invalid search configuration", err)
	}
	return nil
}

func (c SearchConfig) maxDepth() int {
	if c.MaxDepth == 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// Option configures a Planner.
type Option func(*Planner)

// WithConfig replaces the whole search configuration.
func WithConfig(cfg SearchConfig) Option {
	return func(p *Planner) {
		p.config = cfg
	}
}

// WithObserver sets the observer that receives trace events.
func WithObserver(o Observer) Option {
	return func(p *Planner) {
		p.observer = o
	}
}

// WithTraceLevel sets the trace level.
func WithTraceLevel(level TraceLevel) Option {
	return func(p *Planner) {
		p.config.TraceLevel = level
	}
}

// WithMaxDepth sets the depth bound.
func WithMaxDepth(depth int) Option {
	return func(p *Planner) {
		p.config.MaxDepth = depth
	}
}

// WithMaxFrames sets the frame budget.
func WithMaxFrames(frames int) Option {
	return func(p *Planner) {
		p.config.MaxFrames = frames
	}
}

// Planner searches for plans with a depth-first, backtracking decomposition
// over the capabilities in its Registry.
type Planner struct {
	// registry supplies operators and methods per state variable.
	registry *Registry

	// config holds the search bounds and compatibility switches.
	config SearchConfig

	// observer receives trace events; nil disables tracing.
	observer Observer
}

// NewPlanner creates a planner over registry.
func NewPlanner(registry *Registry, opts ...Option) *Planner {
	p := &Planner{
		registry: registry,
		config:   DefaultSearchConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the registry the planner consults.
func (p *Planner) Registry() *Registry {
	return p.registry
}

// Config returns the planner's search configuration.
func (p *Planner) Config() SearchConfig {
	return p.config
}

// Plan searches for a plan achieving goals, in order, from state. The
// caller's state is never modified.
//
// A search that ends without a plan is not an error: the returned Result has
// Status SearchStatusFailed. An error is returned only when the search could
// not run to completion: a bound was exceeded, ctx was cancelled, a
// capability faulted, or goal validation (when enabled) rejected the input.
func (p *Planner) Plan(ctx context.Context, state *State, goals []Goal) (*Result, error) {
	if p.registry == nil {
		return nil, NewValidationError("planner has no registry", nil)
	}
	if state == nil {
		return nil, NewValidationError("initial state is nil", nil)
	}
	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	if p.config.ValidateGoals {
		if err := ValidateGoals(p.registry, state, goals); err != nil {
			return nil, err
		}
	}

	s := &search{
		ctx:      ctx,
		registry: p.registry,
		config:   p.config,
		maxDepth: p.config.maxDepth(),
		observer: p.observer,
	}

	result := &Result{
		ID:        uuid.New().String(),
		Status:    SearchStatusFailed,
		Goals:     append([]Goal(nil), goals...),
		StartedAt: time.Now(),
	}

	root := state.Clone()
	s.emit(TraceEvent{Type: EventPlanStarted, Goals: result.Goals, State: root})

	plan, found, err := s.seek(root, result.Goals, Plan{}, 0)
	result.Stats = s.stats
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		s.emit(TraceEvent{Type: EventPlanFinished, Goals: result.Goals, Result: result, Err: err})
		return nil, err
	}
	if found {
		result.Status = SearchStatusSucceeded
		result.Plan = plan
	}

	s.emit(TraceEvent{Type: EventPlanFinished, Goals: result.Goals, Plan: result.Plan, Result: result})
	return result, nil
}

// search carries the per-call state of one planning run.
type search struct {
	ctx      context.Context
	registry *Registry
	config   SearchConfig
	maxDepth int
	observer Observer
	stats    SearchStats
}

func (s *search) emit(ev TraceEvent) {
	if s.observer == nil || ev.Type.Level() > s.config.TraceLevel {
		return
	}
	s.observer.Observe(s.ctx, ev)
}

// seek is the recursive goal-seeking procedure. It returns the completed plan
// and true on success, nil and false when every alternative failed, or an
// error when the search must stop altogether.
func (s *search) seek(state *State, goals []Goal, plan Plan, depth int) (Plan, bool, error) {
	s.stats.Frames++
	if depth > s.stats.MaxDepth {
		s.stats.MaxDepth = depth
	}

	if err := s.checkBounds(goals, depth); err != nil {
		return nil, false, err
	}

	s.emit(TraceEvent{Type: EventFrameEntered, Depth: depth, Goals: goals, Plan: plan})

	if len(goals) == 0 {
		s.emit(TraceEvent{Type: EventPlanReturned, Depth: depth, Plan: plan})
		return plan, true, nil
	}

	g := goals[0]
	rest := goals[1:]

	// A satisfied goal is first skipped; if that dead-ends downstream the
	// goal is still offered to its operators and methods below.
	if g.SatisfiedIn(state) {
		s.stats.SatisfiedSkips++
		s.emit(TraceEvent{Type: EventGoalSatisfied, Depth: depth, Goal: &g, State: state})

		solution, ok, err := s.seek(state, rest, plan, depth+1)
		if err != nil || ok {
			return solution, ok, err
		}
	}

	for _, op := range s.registry.OperatorsFor(g.Variable) {
		s.stats.OperatorAttempts++

		next, err := op.Apply(state.Clone(), g.Object, g.Value)
		if errors.Is(err, ErrInapplicable) || (err == nil && next == nil) {
			continue
		}
		if err != nil {
			return nil, false, NewDomainError("operator failed", err).
				WithGoal(g, depth).
				WithCapability(op.Name)
		}

		s.stats.OperatorsApplied++
		action := Action{Operator: op.Name, Object: g.Object, Value: g.Value}
		s.emit(TraceEvent{Type: EventOperatorApplied, Depth: depth, Goal: &g, Capability: op.Name, Action: &action, State: next})

		solution, ok, err := s.seek(next, rest, plan.extend(action), depth+1)
		if err != nil || ok {
			return solution, ok, err
		}
	}

	for _, m := range s.registry.MethodsFor(g.Variable) {
		s.stats.MethodAttempts++

		subgoals, err := m.Decompose(state, g.Object, g.Value)
		if errors.Is(err, ErrInapplicable) {
			continue
		}
		if err != nil {
			return nil, false, NewDomainError("method failed", err).
				WithGoal(g, depth).
				WithCapability(m.Name)
		}
		if len(subgoals) == 0 && !s.config.AcceptEmptyDecomposition {
			continue
		}

		s.stats.MethodsExpanded++
		s.emit(TraceEvent{Type: EventMethodExpanded, Depth: depth, Goal: &g, Capability: m.Name, Subgoals: subgoals})

		queue := make([]Goal, 0, len(subgoals)+len(rest))
		queue = append(queue, subgoals...)
		queue = append(queue, rest...)

		solution, ok, err := s.seek(state, queue, plan, depth+1)
		if err != nil {
			return nil, false, err
		}
		if ok && (len(solution) > 0 || s.config.AcceptEmptyMethodPlan) {
			return solution, true, nil
		}
	}

	s.stats.Backtracks++
	s.emit(TraceEvent{Type: EventFrameFailed, Depth: depth, Goal: &g})
	return nil, false, nil
}

// checkBounds enforces cancellation, the depth bound and the frame budget.
func (s *search) checkBounds(goals []Goal, depth int) error {
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			return NewCancelledError("search cancelled", err).WithDetail("depth", depth)
		}
	}

	if depth > s.maxDepth {
		e := NewResourceError(fmt.Sprintf("search depth exceeded %d", s.maxDepth), nil).
			WithCode(ErrCodeDepthExceeded).
			WithDetail("max_depth", s.maxDepth)
		if len(goals) > 0 {
			e = e.WithGoal(goals[0], depth)
		}
		return e
	}

	if s.config.MaxFrames > 0 && s.stats.Frames > s.config.MaxFrames {
		return NewResourceError(fmt.Sprintf("search frame budget of %d exhausted", s.config.MaxFrames), nil).
			WithCode(ErrCodeBudgetExceeded).
			WithDetail("max_frames", s.config.MaxFrames).
			WithDetail("depth", depth)
	}

	return nil
}
