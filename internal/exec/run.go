package exec

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the run lifecycle state. Legal transitions are
// Idle -> Running -> Completed or Failed; anything else is a StateError.
type State int

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trace event kinds.
const (
	// EventInstruction marks one executed instruction on one channel,
	// including conditional branch targets.
	EventInstruction = "instruction"

	// EventAcquire marks one acquisition captured by a ReadoutTrigger.
	EventAcquire = "acquire"

	// EventLatch marks a staged discrimination result committing to its
	// feedback latch at the schedule barrier.
	EventLatch = "latch"

	// EventBarrier marks a schedule reaching its barrier.
	EventBarrier = "barrier"
)

// TraceEvent is one entry of a run's event log. Seq increases
// monotonically over the run; events of one schedule are ordered by
// channel name, so equal playlists produce byte-equal traces.
// Instruction is -1 for events not tied to a table entry.
type TraceEvent struct {
	Seq         int64
	Kind        string
	Channel     string
	Schedule    int
	Instruction int
	Label       string
	Detail      string
}

// ResultArray is the captured data of one acquisition label across a
// run. Shape is [firings, per-firing length]; per-firing length is the
// trace duration for TimeTrace and 1 for the integrating methods. Data
// is row-major.
type ResultArray struct {
	Shape []int
	Data  []complex128
}

// Run is the artifact of one execution: per-channel sample streams,
// acquisition results keyed by label, schedule durations, the event
// log, and the lifecycle outcome. Digest identifies the executed
// playlist by its canonical encoding.
type Run struct {
	ID            uuid.UUID
	Digest        string
	EngineVersion string
	State         State
	FailureReason string

	Streams           map[string][]complex128
	Results           map[string]ResultArray
	ScheduleDurations []int64
	Trace             []TraceEvent
}

// transition advances the lifecycle state.
func (r *Run) transition(to State) error {
	legal := false
	switch r.State {
	case Idle:
		legal = to == Running
	case Running:
		legal = to == Completed || to == Failed
	}
	if !legal {
		return &StateError{From: r.State, To: to}
	}
	r.State = to
	return nil
}
