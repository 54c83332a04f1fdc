package observe

import (
	"time"

	"github.com/convoke-dev/convoke/internal/util"
)

// Kind categorizes a lifecycle event by the state-machine transition that
// produced it.
type Kind string

const (
	// KindPlanningStarted is emitted when the manager begins initial planning.
	KindPlanningStarted Kind = "planning_started"
	// KindPlanningCompleted is emitted when the initial task ledger is ready.
	KindPlanningCompleted Kind = "planning_completed"
	// KindReplanningStarted is emitted when an outer reset triggers replanning.
	KindReplanningStarted Kind = "replanning_started"
	// KindReplanningCompleted is emitted when the refreshed task ledger is ready.
	KindReplanningCompleted Kind = "replanning_completed"
	// KindProgressLedger is emitted after each per-round judgment.
	KindProgressLedger Kind = "progress_ledger_created"
	// KindRequestSent is emitted when the manager delegates a turn.
	KindRequestSent Kind = "request_sent"
	// KindResponseReceived is emitted when the awaited response arrives.
	KindResponseReceived Kind = "response_received"
	// KindOuterReset is emitted when sustained stalling forces a reset.
	KindOuterReset Kind = "outer_reset"
	// KindFinalAnswer is emitted when the final answer has been prepared.
	KindFinalAnswer Kind = "final_answer_prepared"
	// KindError is emitted before any failure propagates out of the run.
	KindError Kind = "error"
)

// Severity grades the importance of a lifecycle event.
type Severity int

const (
	// SeverityDebug marks high-volume diagnostic events.
	SeverityDebug Severity = iota
	// SeverityInfo marks normal transition events.
	SeverityInfo
	// SeverityWarn marks degraded but recoverable conditions (resets,
	// exhausted budgets, discarded messages).
	SeverityWarn
	// SeverityError marks failures that abort the run.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Counters snapshots the orchestration loop counters at emission time.
type Counters struct {
	Round int `json:"round"`
	Stall int `json:"stall"`
	Reset int `json:"reset"`
}

// Event is a discrete lifecycle record. Details carries a structured payload
// specific to the Kind (task text, ledger answers, participant names, error
// text). Events are immutable after emission.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      Kind           `json:"kind"`
	Severity  Severity       `json:"severity"`
	Source    string         `json:"source"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Counters  Counters       `json:"counters"`
}

// NewEvent constructs an event stamped with a fresh ID and the current time.
func NewEvent(kind Kind, severity Severity, source, message string) Event {
	return Event{
		ID:        util.NewID(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Severity:  severity,
		Source:    source,
		Message:   message,
	}
}
