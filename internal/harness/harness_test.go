package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/pulsedeck/internal/validate"
)

func TestRun_AcceptAndExecute(t *testing.T) {
	scenario, err := LoadScenarioWithBasePath("testdata/scenarios/feedback_branch.yaml", "testdata")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, VerdictAccept, result.Verdict)
	assert.Nil(t, result.Violation)
	require.NotNil(t, result.Run)
	assert.Len(t, result.Trace, 8)
}

func TestRun_RejectScenario(t *testing.T) {
	scenario, err := LoadScenarioWithBasePath("testdata/scenarios/reject_dangling_waveform.yaml", "testdata")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, VerdictReject, result.Verdict)
	require.NotNil(t, result.Violation)
	assert.Equal(t, validate.OutOfRangeReference, result.Violation.Code)
	assert.Nil(t, result.Run, "reject scenarios never execute")
}

func TestRun_ExpectedRejectButAccepted(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrongly_expects_reject",
		Description: "valid playlist with a reject verdict",
		Playlist:    "testdata/playlists/barrier.cue",
		Verdict:     VerdictReject,
		Violation:   &ViolationClause{Code: "UnknownChannel"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "playlist accepted")
}

func TestRun_ExpectedAcceptButRejected(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrongly_expects_accept",
		Description: "dangling reference with an accept verdict",
		Playlist:    "testdata/playlists/dangling_waveform.cue",
		Verdict:     VerdictAccept,
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "validator rejected")
}

func TestRun_WrongViolationCode(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_code",
		Description: "dangling reference pinned to the wrong code",
		Playlist:    "testdata/playlists/dangling_waveform.cue",
		Verdict:     VerdictReject,
		Violation:   &ViolationClause{Code: "MultiplexingCycle"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: violation")
	assert.Contains(t, result.Errors[0], "MultiplexingCycle")
}

func TestRun_LoadFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_source",
		Description: "playlist path that does not exist",
		Playlist:    "testdata/playlists/no_such.cue",
		Verdict:     VerdictAccept,
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load playlist")
}

func TestRun_StreamMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "stream_mismatch",
		Description: "wrong inline samples fail the stream assertion",
		Playlist:    "testdata/playlists/barrier.cue",
		Verdict:     VerdictAccept,
		Execute:     true,
		Streams: []StreamClause{
			{Channel: "flux.a", Samples: [][]float64{{0.25, 0}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: stream")
}

func TestRun_BudgetExceeded(t *testing.T) {
	// barrier.cue needs 16 samples across both channels.
	scenario := &Scenario{
		Name:        "budget_exceeded",
		Description: "budget one below the required total",
		Playlist:    "testdata/playlists/barrier.cue",
		Verdict:     VerdictAccept,
		Execute:     true,
		Budget:      15,
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sample budget exceeded")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenarioWithBasePath("testdata/scenarios/feedback_branch.yaml", "testdata")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.True(t, first.Pass)
	require.True(t, second.Pass)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Run.ID, second.Run.ID)
	assert.Equal(t, first.Run.Digest, second.Run.Digest)
}
