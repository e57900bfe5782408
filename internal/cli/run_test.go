package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/pulsedeck/internal/store"
	"github.com/tkarvo/pulsedeck/internal/testutil"
)

func TestRunCommand_ExecutesAndPersists(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCUE(t, dir, "barrier.cue", twoChannelCUE)
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{cuePath})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "✓ Run ")
	assert.Contains(t, out, "Stream flux.a: 8 sample(s)")
	assert.Contains(t, out, "Stream flux.b: 8 sample(s)")
	assert.Contains(t, out, "durations [8]")

	// Verify persistence.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	runs, err := st.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Completed", runs[0].State)

	trace, err := st.ReadTrace(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, trace)

	playlists, err := st.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, "barrier.cue", playlists[0].Name)
	assert.Equal(t, runs[0].PlaylistDigest, playlists[0].Digest)
}

func TestRunCommand_JSONReport(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCUE(t, dir, "barrier.cue", twoChannelCUE)
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json", Database: dbPath},
		Name:        "barrier",
		RunIDSource: testutil.NewFixedRunIDSource().Next,
	}
	require.NoError(t, runRun(opts, cuePath, cmd))

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Completed", resp.Data.State)
	assert.Equal(t, []int64{8}, resp.Data.ScheduleDurations)
	assert.Equal(t, map[string]int{"flux.a": 8, "flux.b": 8}, resp.Data.Streams)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Len(t, resp.Data.Digest, 64)
	assert.Equal(t, 3, resp.Data.TraceEvents)
}

func TestRunCommand_MissingDatabaseFlag(t *testing.T) {
	cuePath := writeCUE(t, t.TempDir(), "barrier.cue", twoChannelCUE)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cuePath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flag: --db")
	assert.Equal(t, ExitInternal, GetExitCode(err))
}

func TestRunCommand_RejectsInvalidPlaylist(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCUE(t, dir, "bad.cue", iqOnRealCUE)
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{cuePath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitRejected, GetExitCode(err))

	// Rejection happens before the store opens; nothing is persisted.
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCommand_BudgetExceededPersistsFailedRun(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCUE(t, dir, "barrier.cue", twoChannelCUE)
	dbPath := filepath.Join(dir, "runs.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{cuePath, "--budget", "4"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInternal, GetExitCode(err))
	assert.Contains(t, buf.String(), "sample budget exceeded")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Failed", runs[0].State)
	assert.Contains(t, runs[0].FailureReason, "sample budget exceeded")
}

func TestRunCommand_LoadFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitLoadFailed, GetExitCode(err))
}
