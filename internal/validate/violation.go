package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies structural and referential violations.
type Code string

// Violation codes, in rough check order.
const (
	// UnknownChannel marks a schedule segment naming a channel absent
	// from the playlist's channel map.
	UnknownChannel Code = "UnknownChannel"

	// OutOfRangeReference marks any table index that does not resolve
	// within its owning descriptor.
	OutOfRangeReference Code = "OutOfRangeReference"

	// CrossChannelReference marks a reference resolved against a
	// foreign descriptor. The validator never emits it (an index is in
	// range or it is not); the executor uses it when asked to run an
	// unvalidated playlist whose dangling reference would only resolve
	// in another channel's table.
	CrossChannelReference Code = "CrossChannelReference"

	// InconsistentWaveformLength marks a waveform whose declared
	// sample count is negative. Explicit sample lists carry their
	// count as the payload length and cannot disagree with it.
	InconsistentWaveformLength Code = "InconsistentWaveformLength"

	// NegativeDuration marks a negative duration_samples,
	// delay_samples, or time-trace duration.
	NegativeDuration Code = "NegativeDuration"

	// IncompatibleInstructionForChannel marks an instruction kind not
	// allowed on the channel's kind, or an acquisition table on a
	// non-readout channel.
	IncompatibleInstructionForChannel Code = "IncompatibleInstructionForChannel"

	// MalformedMultiplexEntry marks a multiplex entry that is not
	// exactly one of inline pulse and reference.
	MalformedMultiplexEntry Code = "MalformedMultiplexEntry"

	// MismatchedPulseKind marks a multiplex entry or probe-pulse
	// reference naming an instruction of the wrong kind.
	MismatchedPulseKind Code = "MismatchedPulseKind"

	// MultiplexingCycle marks a cycle in the instruction reference
	// graph restricted to multiplex edges, including self-reference.
	MultiplexingCycle Code = "MultiplexingCycle"

	// ConditionalCycle marks a cycle in the instruction reference
	// graph restricted to conditional branch edges.
	ConditionalCycle Code = "ConditionalCycle"

	// InvalidAcquisitionMix marks a ReadoutTrigger whose acquisitions
	// mix TimeTrace with ThresholdStateDiscrimination or capture more
	// than one TimeTrace.
	InvalidAcquisitionMix Code = "InvalidAcquisitionMix"

	// DuplicateFeedbackLabel marks a feedback signal label declared by
	// more than one acquisition playlist-wide.
	DuplicateFeedbackLabel Code = "DuplicateFeedbackLabel"

	// UnresolvedFeedbackLabel marks a conditional whose condition
	// matches no declared label, or one that would read a measurement
	// staged in its own schedule.
	UnresolvedFeedbackLabel Code = "UnresolvedFeedbackLabel"
)

// Violation is the single rejection reason of a validation run: the
// first violation in the fixed check order. Schedule, Index, and Entry
// are -1 when not applicable.
type Violation struct {
	Code     Code   `json:"code"`
	Channel  string `json:"channel,omitempty"`
	Schedule int    `json:"schedule"`
	Table    string `json:"table,omitempty"`
	Index    int    `json:"index"`
	Entry    int    `json:"entry"`
	Detail   string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString(string(v.Code))
	b.WriteByte(':')
	if v.Channel != "" {
		fmt.Fprintf(&b, " channel %q", v.Channel)
	}
	if v.Schedule >= 0 {
		fmt.Fprintf(&b, " schedule %d", v.Schedule)
	}
	if v.Table != "" {
		if v.Index >= 0 {
			fmt.Fprintf(&b, " %s[%d]", v.Table, v.Index)
		} else {
			fmt.Fprintf(&b, " %s", v.Table)
		}
	}
	if v.Entry >= 0 {
		fmt.Fprintf(&b, " entry %d", v.Entry)
	}
	b.WriteString(": ")
	b.WriteString(v.Detail)
	return b.String()
}

// AsViolation extracts a Violation from an error chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// tableViolation locates a violation at one table entry.
func tableViolation(code Code, channel, table string, index int, format string, args ...interface{}) *Violation {
	return &Violation{
		Code:     code,
		Channel:  channel,
		Schedule: -1,
		Table:    table,
		Index:    index,
		Entry:    -1,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// entryViolation locates a violation at one entry inside a table entry,
// such as a multiplex component or an acquisition reference.
func entryViolation(code Code, channel, table string, index, entry int, format string, args ...interface{}) *Violation {
	v := tableViolation(code, channel, table, index, format, args...)
	v.Entry = entry
	return v
}

// segmentViolation locates a violation at one schedule segment position.
func segmentViolation(code Code, channel string, schedule, position int, format string, args ...interface{}) *Violation {
	return &Violation{
		Code:     code,
		Channel:  channel,
		Schedule: schedule,
		Table:    "segment",
		Index:    position,
		Entry:    -1,
		Detail:   fmt.Sprintf(format, args...),
	}
}
