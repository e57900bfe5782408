package harness

import (
	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/validate"
)

// TraceEvent is the harness's JSON view of one executor trace event.
// Snapshots and failure messages serialize this type, not the executor's,
// so golden files stay stable against executor-internal changes.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	Channel     string `json:"channel,omitempty"`
	Schedule    int    `json:"schedule"`
	Instruction int    `json:"instruction"`
	Label       string `json:"label,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// traceView converts an executor event log into the snapshot form.
func traceView(events []exec.TraceEvent) []TraceEvent {
	out := make([]TraceEvent, len(events))
	for i, ev := range events {
		out[i] = TraceEvent{
			Seq:         ev.Seq,
			Kind:        ev.Kind,
			Channel:     ev.Channel,
			Schedule:    ev.Schedule,
			Instruction: ev.Instruction,
			Label:       ev.Label,
			Detail:      ev.Detail,
		}
	}
	return out
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Verdict is the validator's actual outcome: "accept" or "reject".
	Verdict string `json:"verdict"`

	// Violation is the validator's rejection, nil when accepted.
	Violation *validate.Violation `json:"violation,omitempty"`

	// Run holds the execution artifact when the scenario executed.
	Run *exec.Run `json:"-"`

	// Trace is the run's event log in snapshot form.
	Trace []TraceEvent `json:"trace,omitempty"`

	// Errors contains assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
