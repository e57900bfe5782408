package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test: a playlist source, the verdict
// the validator must reach, and optional execution expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Playlist is the path to the CUE playlist source, a file or a
	// directory. Relative paths resolve against the loader's base path.
	Playlist string `yaml:"playlist"`

	// Verdict is the expected validation outcome: "accept" or "reject".
	Verdict string `yaml:"verdict"`

	// Violation pins the expected rejection. Required when Verdict is
	// "reject"; only the populated fields are compared.
	Violation *ViolationClause `yaml:"violation,omitempty"`

	// Execute runs the playlist after acceptance. Stream, result, and
	// trace expectations need it.
	Execute bool `yaml:"execute,omitempty"`

	// Budget caps the run's total rendered samples. Zero means no cap.
	Budget int64 `yaml:"budget,omitempty"`

	// Streams asserts full per-channel output, sample by sample.
	Streams []StreamClause `yaml:"streams,omitempty"`

	// Results asserts acquisition result shapes and optionally values.
	Results []ResultClause `yaml:"results,omitempty"`

	// Trace asserts on the run's event log.
	// Supported types: contains, order, count.
	Trace []TraceAssertion `yaml:"trace,omitempty"`
}

// Verdict values.
const (
	VerdictAccept = "accept"
	VerdictReject = "reject"
)

// ViolationClause is the expected rejection of a reject scenario.
// Schedule, Index, and Entry are pointers so a scenario can pin a zero
// position without pinning every position.
type ViolationClause struct {
	Code     string `yaml:"code"`
	Channel  string `yaml:"channel,omitempty"`
	Schedule *int   `yaml:"schedule,omitempty"`
	Table    string `yaml:"table,omitempty"`
	Index    *int   `yaml:"index,omitempty"`
	Entry    *int   `yaml:"entry,omitempty"`
}

// StreamClause asserts one channel's complete output stream. Samples
// are [re, im] pairs; real channels carry a zero imaginary part.
type StreamClause struct {
	Channel string      `yaml:"channel"`
	Samples [][]float64 `yaml:"samples"`
}

// ResultClause asserts one acquisition label's result array. Shape is
// always compared; Data, when present, is compared as [re, im] pairs.
type ResultClause struct {
	Label string      `yaml:"label"`
	Shape []int       `yaml:"shape"`
	Data  [][]float64 `yaml:"data,omitempty"`
}

// EventMatcher selects trace events. Kind, Channel, and Label match by
// equality, Detail by substring; empty fields match anything.
type EventMatcher struct {
	Kind    string `yaml:"kind,omitempty"`
	Channel string `yaml:"channel,omitempty"`
	Label   string `yaml:"label,omitempty"`
	Detail  string `yaml:"detail,omitempty"`
}

// TraceAssertion validates the run's event log.
type TraceAssertion struct {
	// Type specifies the assertion type:
	// - "contains": an event matching Match appears in the trace
	// - "order": Events appear in order (intervening events allowed)
	// - "count": exactly Count events match Match
	Type string `yaml:"type"`

	// Match selects events (used by contains and count).
	Match *EventMatcher `yaml:"match,omitempty"`

	// Events is the expected event order (used by order).
	Events []EventMatcher `yaml:"events,omitempty"`

	// Count is the expected number of matches (used by count).
	Count int `yaml:"count,omitempty"`
}

// Trace assertion type constants.
const (
	AssertContains = "contains"
	AssertOrder    = "order"
	AssertCount    = "count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the playlist path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict field validation catches typos like "asserts:" vs "trace:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if !filepath.IsAbs(scenario.Playlist) && basePath != "" {
		scenario.Playlist = filepath.Join(basePath, scenario.Playlist)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Playlist == "" {
		return fmt.Errorf("playlist is required")
	}
	if _, err := os.Stat(s.Playlist); os.IsNotExist(err) {
		return fmt.Errorf("playlist not found: %s", s.Playlist)
	}

	switch s.Verdict {
	case VerdictAccept:
		if s.Violation != nil {
			return fmt.Errorf("violation clause requires verdict: reject")
		}
	case VerdictReject:
		if s.Violation == nil {
			return fmt.Errorf("verdict reject requires a violation clause")
		}
		if s.Violation.Code == "" {
			return fmt.Errorf("violation: code is required")
		}
		if s.Execute {
			return fmt.Errorf("execute is not allowed with verdict: reject")
		}
	default:
		return fmt.Errorf("verdict must be %q or %q, got %q", VerdictAccept, VerdictReject, s.Verdict)
	}

	if !s.Execute && (len(s.Streams) > 0 || len(s.Results) > 0 || len(s.Trace) > 0) {
		return fmt.Errorf("stream, result, and trace expectations require execute: true")
	}

	for i, clause := range s.Streams {
		if clause.Channel == "" {
			return fmt.Errorf("streams[%d]: channel is required", i)
		}
		for j, pair := range clause.Samples {
			if len(pair) != 2 {
				return fmt.Errorf("streams[%d].samples[%d]: want [re, im] pair, got %d value(s)", i, j, len(pair))
			}
		}
	}

	for i, clause := range s.Results {
		if clause.Label == "" {
			return fmt.Errorf("results[%d]: label is required", i)
		}
		if len(clause.Shape) == 0 {
			return fmt.Errorf("results[%d]: shape is required", i)
		}
		for j, pair := range clause.Data {
			if len(pair) != 2 {
				return fmt.Errorf("results[%d].data[%d]: want [re, im] pair, got %d value(s)", i, j, len(pair))
			}
		}
	}

	for i, assertion := range s.Trace {
		if err := validateTraceAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateTraceAssertion validates a single trace assertion by type.
func validateTraceAssertion(index int, a *TraceAssertion) error {
	if a.Type == "" {
		return fmt.Errorf("trace[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains:
		if a.Match == nil {
			return fmt.Errorf("trace[%d]: match is required for contains", index)
		}
	case AssertOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("trace[%d]: order needs at least two events", index)
		}
	case AssertCount:
		if a.Match == nil {
			return fmt.Errorf("trace[%d]: match is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("trace[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("trace[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
