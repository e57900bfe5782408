package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace of a scenario execution.
// Serialization is deterministic: fixed field order, HTML escaping off,
// two-space indent.
type TraceSnapshot struct {
	Scenario          string       `json:"scenario"`
	ScheduleDurations []int64      `json:"schedule_durations"`
	Events            []TraceEvent `json:"events"`
}

func marshalSnapshot(s *TraceSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not run or did not execute;
// trace mismatches fail the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %q failed: %v", scenario.Name, result.Errors)
	}
	if result.Run == nil {
		return fmt.Errorf("scenario %q did not execute; golden comparison needs execute: true", scenario.Name)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's trace against the golden file with
// the given name. Useful when the caller already ran the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	if result.Run == nil {
		return fmt.Errorf("result for %q has no run", name)
	}

	snapshot := TraceSnapshot{
		Scenario:          name,
		ScheduleDurations: result.Run.ScheduleDurations,
		Events:            result.Trace,
	}
	data, err := marshalSnapshot(&snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
