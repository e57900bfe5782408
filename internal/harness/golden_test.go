package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_FeedbackBranch(t *testing.T) {
	scenario, err := LoadScenarioWithBasePath("testdata/scenarios/feedback_branch.yaml", "testdata")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestRunWithGolden_BarrierPadding(t *testing.T) {
	scenario, err := LoadScenarioWithBasePath("testdata/scenarios/barrier_padding.yaml", "testdata")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestRunWithGolden_RequiresExecution(t *testing.T) {
	scenario := &Scenario{
		Name:        "validate_only",
		Description: "accepts without executing",
		Playlist:    "testdata/playlists/barrier.cue",
		Verdict:     VerdictAccept,
	}

	err := RunWithGolden(t, scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute: true")
}

func TestAssertGolden_NoRun(t *testing.T) {
	err := AssertGolden(t, "no_run", NewResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no run")
}

func TestMarshalSnapshot(t *testing.T) {
	snapshot := &TraceSnapshot{
		Scenario:          "sample",
		ScheduleDurations: []int64{16},
		Events: []TraceEvent{
			{Seq: 0, Kind: "instruction", Channel: "drive.q0", Schedule: 0, Instruction: 1, Detail: `ConditionalInstruction "m0"=true -> instructions[1]`},
		},
	}

	data, err := marshalSnapshot(snapshot)
	require.NoError(t, err)

	// HTML escaping is off so the branch arrow survives verbatim.
	assert.Contains(t, string(data), `-> instructions[1]`)
	assert.NotContains(t, string(data), `>`)
	assert.Contains(t, string(data), `"scenario": "sample"`)
	assert.True(t, data[len(data)-1] == '\n', "snapshot ends with a newline")

	again, err := marshalSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
