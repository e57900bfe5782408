package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/store"
)

// maxTraceDiffs caps how many per-event differences replay reports.
const maxTraceDiffs = 5

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions

	// RunIDSource overrides the executor's ID source (for testing).
	RunIDSource exec.RunIDSource
}

// ReplayReport holds the drift comparison between a stored run and its
// re-execution.
type ReplayReport struct {
	RunID         string   `json:"run_id"`
	Digest        string   `json:"digest"`
	DigestMatch   bool     `json:"digest_match"`
	StoredEvents  int      `json:"stored_events"`
	ReplayEvents  int      `json:"replay_events"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-execute a stored run and report drift",
		Long: `Re-execute a stored run's playlist and compare against the stored
artifacts: the playlist blob must still match the recorded digest, and
the re-executed event trace must equal the stored trace event for
event. Any difference is drift, evidence that the engine no longer
reproduces the stored run.

Exit codes:
  0 - replay matches the stored run
  1 - drift detected, or the run/database could not be read
  2 - the stored playlist no longer validates

Examples:
  pulsedeck replay --db ./runs.db 01923e2d-...
  pulsedeck replay --db ./runs.db 01923e2d-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if err := requireDatabase(opts.RootOptions); err != nil {
		return reportError(formatter, "MissingFlag", err)
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return reportError(formatter, "Internal", WrapExitError(ExitInternal, "build logger", err))
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(opts.Database)
	if err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "open database", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Warn("closing database", zap.Error(closeErr))
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := st.ReplayState(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reportError(formatter, "NotFound",
				NewExitError(ExitInternal, fmt.Sprintf("run %q not found", runID)))
		}
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "load replay state", err))
	}
	logger.Debug("replay state loaded",
		zap.String("run_id", runID),
		zap.Int("stored_events", len(state.Trace)),
	)

	execOpts := []exec.Option{exec.WithLogger(logger)}
	if opts.RunIDSource != nil {
		execOpts = append(execOpts, exec.WithRunIDSource(opts.RunIDSource))
	}
	run, execErr := exec.New(execOpts...).Execute(ctx, state.Playlist)
	if run == nil {
		// The stored playlist was accepted when it ran; a rejection now
		// means the validator's contract moved underneath it.
		return outputViolation(formatter, execErr)
	}
	if execErr != nil {
		_ = formatter.Error("ExecuteFailed", execErr.Error(), nil)
		return WrapExitError(ExitInternal, "replay execution failed", execErr)
	}

	report := ReplayReport{
		RunID:        runID,
		Digest:       state.Digest,
		DigestMatch:  run.Digest == state.Digest,
		StoredEvents: len(state.Trace),
		ReplayEvents: len(run.Trace),
		Differences:  diffTraces(state.Trace, run.Trace),
	}
	if !report.DigestMatch {
		report.Differences = append([]string{
			fmt.Sprintf("digest: stored %s, replayed %s", state.Digest, run.Digest),
		}, report.Differences...)
	}
	report.Deterministic = report.DigestMatch && len(report.Differences) == 0

	return outputReplayReport(formatter, report)
}

// diffTraces compares two event logs and describes the first few
// differences.
func diffTraces(stored, replayed []exec.TraceEvent) []string {
	var diffs []string
	if len(stored) != len(replayed) {
		diffs = append(diffs, fmt.Sprintf("stored %d event(s), replay produced %d",
			len(stored), len(replayed)))
	}

	n := len(stored)
	if len(replayed) < n {
		n = len(replayed)
	}
	shown, extra := 0, 0
	for i := 0; i < n; i++ {
		if stored[i] == replayed[i] {
			continue
		}
		if shown < maxTraceDiffs {
			diffs = append(diffs, fmt.Sprintf("event %d: stored %s, replayed %s",
				i, formatEvent(stored[i]), formatEvent(replayed[i])))
			shown++
		} else {
			extra++
		}
	}
	if extra > 0 {
		diffs = append(diffs, fmt.Sprintf("%d more difference(s)", extra))
	}
	return diffs
}

func formatEvent(ev exec.TraceEvent) string {
	return fmt.Sprintf("{%s %s schedule=%d instruction=%d label=%q detail=%q}",
		ev.Kind, ev.Channel, ev.Schedule, ev.Instruction, ev.Label, ev.Detail)
}

func outputReplayReport(formatter *OutputFormatter, report ReplayReport) error {
	if formatter.Format == "json" {
		if report.Deterministic {
			return formatter.Success(report)
		}
		_ = formatter.Error("ReplayDrift", "replay drift detected", report)
		return NewExitError(ExitInternal, "replay drift detected")
	}

	w := formatter.Writer
	if report.Deterministic {
		fmt.Fprintf(w, "✓ Replay of %s: digest match, %d event(s) identical\n",
			report.RunID, report.StoredEvents)
		return nil
	}

	fmt.Fprintf(w, "✗ Replay of %s: drift detected\n", report.RunID)
	for _, diff := range report.Differences {
		fmt.Fprintf(w, "  %s\n", diff)
	}
	return NewExitError(ExitInternal, "replay drift detected")
}
