package engine

import (
	"context"
	"sync"
)

// TraceEventType identifies a point in the search reported to an Observer.
type TraceEventType string

const (
	EventPlanStarted     TraceEventType = "plan_started"
	EventPlanFinished    TraceEventType = "plan_finished"
	EventFrameEntered    TraceEventType = "frame_entered"
	EventGoalSatisfied   TraceEventType = "goal_satisfied"
	EventOperatorApplied TraceEventType = "operator_applied"
	EventMethodExpanded  TraceEventType = "method_expanded"
	EventPlanReturned    TraceEventType = "plan_returned"
	EventFrameFailed     TraceEventType = "frame_failed"
)

// Level returns the minimum trace level at which the event is reported.
func (t TraceEventType) Level() TraceLevel {
	switch t {
	case EventPlanStarted, EventPlanFinished:
		return TraceSummary
	case EventFrameEntered:
		return TraceFrames
	default:
		return TraceDetail
	}
}

// TraceEvent describes one observable step of a planning call. Fields not
// relevant to Type are left zero. State points at planner-owned data and
// must be treated as read-only.
type TraceEvent struct {
	Type       TraceEventType `json:"type"`
	Depth      int            `json:"depth"`
	Goals      []Goal         `json:"goals,omitempty"`
	Goal       *Goal          `json:"goal,omitempty"`
	Capability string         `json:"capability,omitempty"`
	Action     *Action        `json:"action,omitempty"`
	Subgoals   []Goal         `json:"subgoals,omitempty"`
	Plan       Plan           `json:"plan,omitempty"`
	State      *State         `json:"-"`
	Result     *Result        `json:"result,omitempty"`
	Err        error          `json:"-"`
}

// Observer receives trace events from the planner. Presentation (logging,
// spans, journals) is entirely up to the implementation.
type Observer interface {
	Observe(ctx context.Context, event TraceEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event TraceEvent)

// Observe calls f(ctx, event).
func (f ObserverFunc) Observe(ctx context.Context, event TraceEvent) {
	f(ctx, event)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

// Observe forwards the event to every non-nil observer.
func (m MultiObserver) Observe(ctx context.Context, event TraceEvent) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, event)
		}
	}
}

// Recorder is an Observer that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

// Observe records the event.
func (r *Recorder) Observe(_ context.Context, event TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []TraceEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
