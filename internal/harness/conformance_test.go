package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConformanceScenarios sweeps the checked-in scenario suite.
// Each scenario is a self-contained conformance case: a playlist, the
// expected validator verdict, and execution expectations. These double
// as regression fixtures for the validator and executor.
func TestConformanceScenarios(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
	}{
		{name: "feedback_branch", verdict: VerdictAccept},
		{name: "barrier_padding", verdict: VerdictAccept},
		{name: "reject_dangling_waveform", verdict: VerdictReject},
		{name: "reject_iq_on_real", verdict: VerdictReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join("testdata", "scenarios", tt.name+".yaml")
			scenario, err := LoadScenarioWithBasePath(path, "testdata")
			require.NoError(t, err, "failed to load scenario from %s", path)

			assert.Equal(t, tt.name, scenario.Name)
			assert.NotEmpty(t, scenario.Description)
			assert.Equal(t, tt.verdict, scenario.Verdict)

			result, err := Run(scenario)
			require.NoError(t, err, "scenario execution failed")
			require.NotNil(t, result)

			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.verdict, result.Verdict)

			if scenario.Execute {
				assert.NotEmpty(t, result.Trace)
				t.Logf("scenario %s: %d trace events", tt.name, len(result.Trace))
			} else {
				require.NotNil(t, result.Violation)
				assert.Equal(t, scenario.Violation.Code, string(result.Violation.Code))
			}
		})
	}
}
