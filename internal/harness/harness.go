package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tkarvo/pulsedeck/internal/compose"
	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/testutil"
	"github.com/tkarvo/pulsedeck/internal/validate"
)

// Run executes a conformance scenario and returns the result.
//
// Execution flow:
//  1. Load the playlist from its CUE source
//  2. Validate it and compare the verdict against the scenario
//  3. For accept scenarios with execute: run the playlist with a fixed
//     run ID source and a silent logger
//  4. Evaluate stream, result, and trace expectations
//
// Assertion failures land in Result.Errors; an error return means the
// harness itself could not run the scenario (unreadable playlist,
// malformed document).
func Run(scenario *Scenario) (*Result, error) {
	p, err := compose.Load(scenario.Playlist)
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}

	result := NewResult()

	verr := validate.Playlist(p)
	if verr == nil {
		result.Verdict = VerdictAccept
	} else {
		result.Verdict = VerdictReject
	}

	switch scenario.Verdict {
	case VerdictAccept:
		if verr != nil {
			result.AddError(fmt.Sprintf("expected acceptance, validator rejected: %v", verr))
			return result, nil
		}

	case VerdictReject:
		if verr == nil {
			result.AddError(fmt.Sprintf("expected violation %s, playlist accepted", scenario.Violation.Code))
			return result, nil
		}
		v, ok := validate.AsViolation(verr)
		if !ok {
			return nil, fmt.Errorf("validator failed without a violation: %w", verr)
		}
		result.Violation = v
		if err := assertViolation(v, scenario.Violation); err != nil {
			result.AddError(err.Error())
		}
		return result, nil
	}

	if !scenario.Execute {
		return result, nil
	}

	// Fixed run IDs and a silent logger keep runs byte-identical, which
	// golden comparison depends on.
	opts := []exec.Option{
		exec.WithLogger(zap.NewNop()),
		exec.WithRunIDSource(testutil.NewFixedRunIDSource().Next),
	}
	if scenario.Budget > 0 {
		opts = append(opts, exec.WithSampleBudget(scenario.Budget))
	}

	run, err := exec.New(opts...).Execute(context.Background(), p)
	if err != nil {
		result.AddError(fmt.Sprintf("execute: %v", err))
		return result, nil
	}
	result.Run = run
	result.Trace = traceView(run.Trace)

	for _, msg := range EvaluateAssertions(run, scenario) {
		result.AddError(msg)
	}

	return result, nil
}
