package harness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/validate"
)

// sampleTolerance bounds per-component drift when comparing rendered
// samples against the [re, im] pairs authored in a scenario.
const sampleTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Trace    []exec.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Kind, ev.Channel, ev.Detail)
		}
	}

	return buf.String()
}

// assertViolation checks the validator's rejection against the
// scenario's violation clause. Only populated clause fields compare.
func assertViolation(v *validate.Violation, clause *ViolationClause) error {
	mismatch := func(field string, want, got interface{}) error {
		return &AssertionError{
			Type:     "violation",
			Expected: fmt.Sprintf("%s = %v", field, want),
			Actual:   fmt.Sprintf("%s = %v (full violation: %s)", field, got, v),
		}
	}

	if string(v.Code) != clause.Code {
		return mismatch("code", clause.Code, v.Code)
	}
	if clause.Channel != "" && v.Channel != clause.Channel {
		return mismatch("channel", clause.Channel, v.Channel)
	}
	if clause.Schedule != nil && v.Schedule != *clause.Schedule {
		return mismatch("schedule", *clause.Schedule, v.Schedule)
	}
	if clause.Table != "" && v.Table != clause.Table {
		return mismatch("table", clause.Table, v.Table)
	}
	if clause.Index != nil && v.Index != *clause.Index {
		return mismatch("index", *clause.Index, v.Index)
	}
	if clause.Entry != nil && v.Entry != *clause.Entry {
		return mismatch("entry", *clause.Entry, v.Entry)
	}
	return nil
}

// assertStream checks one channel's full output against inline samples.
func assertStream(run *exec.Run, clause StreamClause) error {
	stream, ok := run.Streams[clause.Channel]
	if !ok {
		return &AssertionError{
			Type:     "stream",
			Expected: fmt.Sprintf("stream for channel %q", clause.Channel),
			Actual:   fmt.Sprintf("run has channels %v", streamChannels(run)),
			Trace:    run.Trace,
		}
	}

	if len(stream) != len(clause.Samples) {
		return &AssertionError{
			Type:     "stream",
			Expected: fmt.Sprintf("channel %q with %d samples", clause.Channel, len(clause.Samples)),
			Actual:   fmt.Sprintf("%d samples", len(stream)),
			Trace:    run.Trace,
		}
	}

	for i, pair := range clause.Samples {
		want := complex(pair[0], pair[1])
		if !closeEnough(stream[i], want) {
			return &AssertionError{
				Type:     "stream",
				Expected: fmt.Sprintf("%s[%d] = %v", clause.Channel, i, want),
				Actual:   fmt.Sprintf("%s[%d] = %v", clause.Channel, i, stream[i]),
				Trace:    run.Trace,
			}
		}
	}
	return nil
}

// assertResult checks one acquisition label's shape and optional data.
func assertResult(run *exec.Run, clause ResultClause) error {
	arr, ok := run.Results[clause.Label]
	if !ok {
		return &AssertionError{
			Type:     "result",
			Expected: fmt.Sprintf("result for label %q", clause.Label),
			Actual:   fmt.Sprintf("run has labels %v", resultLabels(run)),
			Trace:    run.Trace,
		}
	}

	if !shapesEqual(arr.Shape, clause.Shape) {
		return &AssertionError{
			Type:     "result",
			Expected: fmt.Sprintf("%s shape %v", clause.Label, clause.Shape),
			Actual:   fmt.Sprintf("shape %v", arr.Shape),
			Trace:    run.Trace,
		}
	}

	if clause.Data == nil {
		return nil
	}
	if len(arr.Data) != len(clause.Data) {
		return &AssertionError{
			Type:     "result",
			Expected: fmt.Sprintf("%s with %d values", clause.Label, len(clause.Data)),
			Actual:   fmt.Sprintf("%d values", len(arr.Data)),
			Trace:    run.Trace,
		}
	}
	for i, pair := range clause.Data {
		want := complex(pair[0], pair[1])
		if !closeEnough(arr.Data[i], want) {
			return &AssertionError{
				Type:     "result",
				Expected: fmt.Sprintf("%s[%d] = %v", clause.Label, i, want),
				Actual:   fmt.Sprintf("%s[%d] = %v", clause.Label, i, arr.Data[i]),
				Trace:    run.Trace,
			}
		}
	}
	return nil
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []exec.TraceEvent, assertion TraceAssertion) error {
	for _, ev := range trace {
		if matchEvent(ev, *assertion.Match) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("event matching %s", describeMatcher(*assertion.Match)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that matched events appear in the given
// order. Matching is greedy from the previous match forward, so the
// events don't need to be consecutive.
func assertTraceOrder(trace []exec.TraceEvent, assertion TraceAssertion) error {
	pos := 0
	for i, matcher := range assertion.Events {
		found := -1
		for j := pos; j < len(trace); j++ {
			if matchEvent(trace[j], matcher) {
				found = j
				break
			}
		}
		if found < 0 {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("events in order %s", describeMatchers(assertion.Events)),
				Actual:   fmt.Sprintf("no event matching step %d (%s) at or after position %d", i, describeMatcher(matcher), pos),
				Trace:    trace,
			}
		}
		pos = found + 1
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []exec.TraceEvent, assertion TraceAssertion) error {
	count := 0
	for _, ev := range trace {
		if matchEvent(ev, *assertion.Match) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d event(s) matching %s", assertion.Count, describeMatcher(*assertion.Match)),
			Actual:   fmt.Sprintf("%d event(s)", count),
			Trace:    trace,
		}
	}

	return nil
}

// matchEvent reports whether one event satisfies a matcher. Kind,
// channel, and label compare by equality, detail by substring; empty
// matcher fields match anything.
func matchEvent(ev exec.TraceEvent, m EventMatcher) bool {
	if m.Kind != "" && ev.Kind != m.Kind {
		return false
	}
	if m.Channel != "" && ev.Channel != m.Channel {
		return false
	}
	if m.Label != "" && ev.Label != m.Label {
		return false
	}
	if m.Detail != "" && !strings.Contains(ev.Detail, m.Detail) {
		return false
	}
	return true
}

// describeMatcher renders a matcher for failure messages.
func describeMatcher(m EventMatcher) string {
	var parts []string
	if m.Kind != "" {
		parts = append(parts, "kind="+m.Kind)
	}
	if m.Channel != "" {
		parts = append(parts, "channel="+m.Channel)
	}
	if m.Label != "" {
		parts = append(parts, "label="+m.Label)
	}
	if m.Detail != "" {
		parts = append(parts, fmt.Sprintf("detail~%q", m.Detail))
	}
	if len(parts) == 0 {
		return "(any event)"
	}
	return strings.Join(parts, " ")
}

func describeMatchers(ms []EventMatcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = "[" + describeMatcher(m) + "]"
	}
	return strings.Join(parts, " ")
}

func closeEnough(got, want complex128) bool {
	return math.Abs(real(got)-real(want)) <= sampleTolerance &&
		math.Abs(imag(got)-imag(want)) <= sampleTolerance
}

func shapesEqual(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func streamChannels(run *exec.Run) []string {
	names := make([]string, 0, len(run.Streams))
	for name := range run.Streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resultLabels(run *exec.Run) []string {
	labels := make([]string, 0, len(run.Results))
	for label := range run.Results {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// EvaluateAssertions evaluates a scenario's execution expectations
// against a run. Returns a message per failed assertion.
func EvaluateAssertions(run *exec.Run, scenario *Scenario) []string {
	var errors []string

	for _, clause := range scenario.Streams {
		if err := assertStream(run, clause); err != nil {
			errors = append(errors, err.Error())
		}
	}
	for _, clause := range scenario.Results {
		if err := assertResult(run, clause); err != nil {
			errors = append(errors, err.Error())
		}
	}
	for i, assertion := range scenario.Trace {
		var err error
		switch assertion.Type {
		case AssertContains:
			err = assertTraceContains(run.Trace, assertion)
		case AssertOrder:
			err = assertTraceOrder(run.Trace, assertion)
		case AssertCount:
			err = assertTraceCount(run.Trace, assertion)
		default:
			err = fmt.Errorf("trace[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
