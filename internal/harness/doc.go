// Package harness provides conformance testing for pulsedeck playlists.
//
// The harness loads an authored playlist, runs the validator, optionally
// executes the playlist, and checks the outcome against declarative
// expectations. Scenarios live in YAML files so the conformance suite
// can grow without new Go code.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	playlist: playlists/feedback.cue
//	verdict: accept
//	execute: true
//	budget: 4096
//	streams:
//	  - channel: drive.q0
//	    samples: [[0.0, 0.0], [1.0, 0.0]]
//	results:
//	  - label: m0.state
//	    shape: [1, 1]
//	    data: [[1.0, 0.0]]
//	trace:
//	  - type: contains
//	    match: { kind: latch, label: m0 }
//	  - type: order
//	    events:
//	      - { kind: acquire }
//	      - { kind: latch }
//	      - { kind: barrier }
//	  - type: count
//	    match: { kind: barrier }
//	    count: 2
//
// A rejection scenario names the expected violation instead:
//
//	verdict: reject
//	violation:
//	  code: OutOfRangeReference
//	  channel: flux.q0
//	  table: instructions
//	  index: 0
//
// Violation fields beyond code are optional; only the named fields are
// compared, so a scenario can pin just the code or the full location.
//
// # Assertion Types
//
// The following trace assertion types are supported:
//
//   - contains: an event matching the matcher appears in the trace
//   - order: matched events appear in the given order (gaps allowed)
//   - count: events matching the matcher appear exactly N times
//
// Matchers select on event kind, channel, and label by equality and on
// detail by substring; empty fields match anything.
//
// # Deterministic Testing
//
// Scenarios execute with a fixed run ID source and a silent logger, so
// the same scenario produces byte-identical traces across runs. Golden
// comparison (RunWithGolden) relies on this: the snapshot holds the
// scenario name, the schedule durations, and every trace event.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/feedback_branch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
