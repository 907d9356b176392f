package telemetry

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// LogObserver renders planner trace events as structured log lines.
// Summary events log at info, frame events at debug and detailed events at
// trace, so the logger level and the planner trace level work together.
type LogObserver struct {
	logger *Logger
}

// NewLogObserver creates an observer writing to logger.
func NewLogObserver(logger *Logger) *LogObserver {
	return &LogObserver{logger: logger.NewComponentLogger("planner")}
}

// Observe implements engine.Observer.
func (o *LogObserver) Observe(_ context.Context, ev engine.TraceEvent) {
	zl := o.logger.zlog

	var e *zerolog.Event
	switch ev.Type.Level() {
	case engine.TraceSummary:
		e = zl.Info()
	case engine.TraceFrames:
		e = zl.Debug()
	default:
		e = zl.Trace()
	}
	if e == nil {
		return
	}

	e = e.Str("event", string(ev.Type)).Int("depth", ev.Depth)

	switch ev.Type {
	case engine.EventPlanStarted:
		if ev.State != nil {
			e = e.Str("state", ev.State.Name)
		}
		e.Str("goals", goalList(ev.Goals)).Msg("search started")

	case engine.EventPlanFinished:
		if r := ev.Result; r != nil {
			e = e.Str("search_id", r.ID).
				Str("status", string(r.Status)).
				Int("frames", r.Stats.Frames).
				Int("max_depth", r.Stats.MaxDepth).
				Int("backtracks", r.Stats.Backtracks).
				Dur("duration", r.Duration)
			if r.Found() {
				e = e.Int("plan_length", len(r.Plan)).Str("plan", r.Plan.String())
			}
		}
		if ev.Err != nil {
			e.Err(ev.Err).Msg("search aborted")
			return
		}
		e.Msg("search finished")

	case engine.EventFrameEntered:
		e.Str("goals", goalList(ev.Goals)).Msg("frame")

	case engine.EventGoalSatisfied:
		e.Stringer("goal", ev.Goal).Msg("goal already satisfied")

	case engine.EventOperatorApplied:
		e = e.Stringer("action", ev.Action)
		if ev.State != nil {
			e = e.Str("state", strings.TrimSpace(ev.State.String()))
		}
		e.Msg("operator applied")

	case engine.EventMethodExpanded:
		e.Str("method", ev.Capability).
			Stringer("goal", ev.Goal).
			Str("subgoals", goalList(ev.Subgoals)).
			Msg("method expanded")

	case engine.EventPlanReturned:
		e.Str("plan", ev.Plan.String()).Msg("plan returned")

	case engine.EventFrameFailed:
		e.Stringer("goal", ev.Goal).Msg("frame failed")

	default:
		e.Msg("trace event")
	}
}

func goalList(goals []engine.Goal) string {
	parts := make([]string, len(goals))
	for i, g := range goals {
		parts[i] = g.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
