package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Event is one journaled planner trace event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Sequence is the position of the event in the journal, starting at 1.
	Sequence int `json:"seq"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Type is the planner event type.
	Type string `json:"type"`

	// Level is the trace level at which the event is reported.
	Level int `json:"level"`

	// Depth is the search depth of the frame that produced the event.
	Depth int `json:"depth"`

	// Goal is the goal being processed, if any.
	Goal string `json:"goal,omitempty"`

	// Capability is the operator or method involved, if any.
	Capability string `json:"capability,omitempty"`

	// Action is the applied action, if any.
	Action string `json:"action,omitempty"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be journaled.
type EventFilter func(event Event) bool

// EventLog journals planner trace events in memory. It implements
// engine.Observer and is safe for concurrent use.
type EventLog struct {
	config      EventsConfig
	mu          sync.RWMutex
	events      []Event
	seq         int
	dropped     int
	filters     []EventFilter
	subscribers []subscriberEntry
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventLog creates a new event journal with the given configuration.
func NewEventLog(cfg EventsConfig) *EventLog {
	return &EventLog{config: cfg}
}

// Enabled reports whether the journal records anything.
func (l *EventLog) Enabled() bool {
	return l.config.Enabled
}

// Observe implements engine.Observer.
func (l *EventLog) Observe(_ context.Context, ev engine.TraceEvent) {
	if !l.config.Enabled {
		return
	}
	l.Publish(fromTraceEvent(ev))
}

// Publish appends an event to the journal and notifies subscribers.
func (l *EventLog) Publish(event Event) {
	if !l.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	for _, filter := range l.filters {
		if !filter(event) {
			l.mu.Unlock()
			return
		}
	}

	l.seq++
	event.Sequence = l.seq
	l.events = append(l.events, event)
	if limit := l.config.MaxEvents; limit > 0 && len(l.events) > limit {
		drop := len(l.events) - limit
		l.events = append(l.events[:0:0], l.events[drop:]...)
		l.dropped += drop
	}
	subscribers := l.subscribers
	l.mu.Unlock()

	for _, entry := range subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Subscribe adds a subscriber called synchronously for each journaled event
// accepted by filter. A nil filter accepts everything.
func (l *EventLog) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subscribers = append(l.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a filter every event must pass to be journaled.
func (l *EventLog) AddFilter(filter EventFilter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.filters = append(l.filters, filter)
}

// Events returns a copy of the journaled events.
func (l *EventLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of journaled events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Dropped returns how many events were discarded to respect MaxEvents.
func (l *EventLog) Dropped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}

// Reset empties the journal. Filters and subscribers are kept.
func (l *EventLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil
	l.seq = 0
	l.dropped = 0
}

// WriteJSON writes the journal to w as JSON lines.
func (l *EventLog) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, ev := range l.Events() {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func fromTraceEvent(ev engine.TraceEvent) Event {
	event := Event{
		Type:       string(ev.Type),
		Level:      int(ev.Type.Level()),
		Depth:      ev.Depth,
		Capability: ev.Capability,
	}
	if ev.Goal != nil {
		event.Goal = ev.Goal.String()
	}
	if ev.Action != nil {
		event.Action = ev.Action.String()
	}

	data := map[string]interface{}{}
	if len(ev.Subgoals) > 0 {
		data["subgoals"] = goalList(ev.Subgoals)
	}
	if ev.Type == engine.EventPlanStarted || ev.Type == engine.EventFrameEntered {
		data["goals"] = goalList(ev.Goals)
	}
	if ev.Type == engine.EventPlanReturned {
		data["plan"] = ev.Plan.String()
	}
	if r := ev.Result; r != nil {
		data["search_id"] = r.ID
		data["status"] = string(r.Status)
		data["frames"] = r.Stats.Frames
		data["plan"] = r.Plan.String()
	}
	if ev.Err != nil {
		data["error"] = ev.Err.Error()
	}
	if len(data) > 0 {
		event.Data = data
	}
	return event
}

// Common event filters.

// FilterByLevel creates a filter that only allows events reported at or
// below the given trace level.
func FilterByLevel(maxLevel engine.TraceLevel) EventFilter {
	return func(event Event) bool {
		return event.Level <= int(maxLevel)
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...engine.TraceEventType) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[string(t)] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByMaxDepth creates a filter that drops events deeper than depth.
func FilterByMaxDepth(depth int) EventFilter {
	return func(event Event) bool {
		return event.Depth <= depth
	}
}

// FilterByCapability creates a filter that only allows events involving the
// named operator or method.
func FilterByCapability(name string) EventFilter {
	return func(event Event) bool {
		return event.Capability == name
	}
}
