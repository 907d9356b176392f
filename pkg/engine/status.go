package engine

import (
	"fmt"
)

// SearchStatus represents the outcome of a planning call.
type SearchStatus string

const (
	// SearchStatusSucceeded indicates a plan was found.
	SearchStatusSucceeded SearchStatus = "succeeded"

	// SearchStatusFailed is the failure sentinel: the search was exhausted
	// without finding a plan.
	SearchStatusFailed SearchStatus = "failed"
)

// Validate checks if the search status is valid.
func (s SearchStatus) Validate() error {
	switch s {
	case SearchStatusSucceeded, SearchStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid search status: %s", s)
	}
}

// TraceLevel controls how much diagnostic detail the planner reports to its
// Observer.
type TraceLevel int

const (
	// TraceNone reports nothing.
	TraceNone TraceLevel = 0

	// TraceSummary reports the start and the outcome of each planning call.
	TraceSummary TraceLevel = 1

	// TraceFrames additionally reports every search frame.
	TraceFrames TraceLevel = 2

	// TraceDetail additionally reports state snapshots, applied operators
	// and expanded methods.
	TraceDetail TraceLevel = 3
)

// Validate checks if the trace level is within 0..3.
func (l TraceLevel) Validate() error {
	if l < TraceNone || l > TraceDetail {
		return fmt.Errorf("invalid trace level: %d (must be 0..3)", l)
	}
	return nil
}

// String returns the trace level name.
func (l TraceLevel) String() string {
	switch l {
	case TraceNone:
		return "none"
	case TraceSummary:
		return "summary"
	case TraceFrames:
		return "frames"
	case TraceDetail:
		return "detail"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}
