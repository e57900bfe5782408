package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/store"
	"github.com/tkarvo/pulsedeck/internal/validate"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Budget int64
	Name   string

	// RunIDSource overrides the executor's ID source (for testing).
	// If nil, the executor mints time-ordered UUIDs.
	RunIDSource exec.RunIDSource
}

// RunReport summarizes one executed and persisted run.
type RunReport struct {
	RunID             string           `json:"run_id"`
	Digest            string           `json:"digest"`
	EngineVersion     string           `json:"engine_version"`
	State             string           `json:"state"`
	ScheduleDurations []int64          `json:"schedule_durations"`
	Streams           map[string]int   `json:"streams"` // channel -> rendered samples
	Results           map[string][]int `json:"results"` // label -> shape
	TraceEvents       int              `json:"trace_events"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <playlist>",
		Short: "Validate, execute, and persist a playlist",
		Long: `Validate a playlist, execute it offline, and persist the playlist
blob, the run record, the acquisition results, and the event trace to
the database given by --db.

The argument is a CUE document (or directory) or an encoded wire file.

Example:
  pulsedeck run --db ./runs.db ramsey.cue
  pulsedeck run --db ./runs.db --budget 1000000 ramsey.pdk --verbose

Exit codes:
  0 - run completed and persisted
  1 - execution or persistence failed
  2 - the validator rejected the playlist
  3 - the input failed to load or decode`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Budget, "budget", 0, "cap on total rendered samples (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "playlist name in the store (defaults to the file name)")

	return cmd
}

func runRun(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if err := requireDatabase(opts.RootOptions); err != nil {
		return reportError(formatter, "MissingFlag", err)
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return reportError(formatter, "Internal", WrapExitError(ExitInternal, "build logger", err))
	}
	defer func() { _ = logger.Sync() }()

	p, kind, err := loadPlaylist(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return err
	}
	logger.Debug("playlist loaded",
		zap.String("path", path),
		zap.String("source", string(kind)),
		zap.Int("channels", len(p.Channels)),
	)

	if verr := validate.Playlist(p); verr != nil {
		return outputViolation(formatter, verr)
	}

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

	name := opts.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(path))
	}
	digest, err := st.SavePlaylist(ctx, name, p)
	if err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "save playlist", err))
	}
	logger.Debug("playlist saved", zap.String("name", name), zap.String("digest", digest))

	execOpts := []exec.Option{exec.WithLogger(logger)}
	if opts.Budget > 0 {
		execOpts = append(execOpts, exec.WithSampleBudget(opts.Budget))
	}
	if opts.RunIDSource != nil {
		execOpts = append(execOpts, exec.WithRunIDSource(opts.RunIDSource))
	}

	run, execErr := exec.New(execOpts...).Execute(ctx, p)
	if run == nil {
		// Failed before the run started (ID minting, re-validation).
		return reportError(formatter, "ExecuteFailed",
			WrapExitError(ExitInternal, "execute playlist", execErr))
	}

	// Persist the run whether it completed or failed; a failed run's
	// partial trace is still replay evidence.
	if err := persistRun(ctx, st, run); err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "persist run", err))
	}

	if execErr != nil {
		_ = formatter.Error("ExecuteFailed", execErr.Error(), nil)
		return WrapExitError(ExitInternal, fmt.Sprintf("run %s failed", run.ID), execErr)
	}

	return outputRunSuccess(formatter, buildRunReport(run))
}

// persistRun writes the run record, results, and trace.
func persistRun(ctx context.Context, st *store.Store, run *exec.Run) error {
	id := run.ID.String()
	if err := st.BeginRun(ctx, id, run.Digest, run.EngineVersion); err != nil {
		return err
	}
	if run.State == exec.Failed {
		if err := st.FailRun(ctx, id, run.FailureReason); err != nil {
			return err
		}
	} else {
		if err := st.CompleteRun(ctx, id); err != nil {
			return err
		}
	}
	if err := st.WriteResults(ctx, id, run.Results); err != nil {
		return err
	}
	return st.WriteTrace(ctx, id, run.Trace)
}

func buildRunReport(run *exec.Run) RunReport {
	report := RunReport{
		RunID:             run.ID.String(),
		Digest:            run.Digest,
		EngineVersion:     run.EngineVersion,
		State:             run.State.String(),
		ScheduleDurations: run.ScheduleDurations,
		Streams:           make(map[string]int, len(run.Streams)),
		Results:           make(map[string][]int, len(run.Results)),
		TraceEvents:       len(run.Trace),
	}
	for name, stream := range run.Streams {
		report.Streams[name] = len(stream)
	}
	for label, arr := range run.Results {
		report.Results[label] = arr.Shape
	}
	return report
}

func outputRunSuccess(formatter *OutputFormatter, report RunReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s completed\n", report.RunID)
	fmt.Fprintf(w, "  Digest:    %s\n", report.Digest)
	fmt.Fprintf(w, "  Schedules: %d (durations %v)\n", len(report.ScheduleDurations), report.ScheduleDurations)

	channels := make([]string, 0, len(report.Streams))
	for name := range report.Streams {
		channels = append(channels, name)
	}
	sort.Strings(channels)
	for _, name := range channels {
		fmt.Fprintf(w, "  Stream %s: %d sample(s)\n", name, report.Streams[name])
	}

	labels := make([]string, 0, len(report.Results))
	for label := range report.Results {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(w, "  Result %s: shape %v\n", label, report.Results[label])
	}

	fmt.Fprintf(w, "  Trace:     %d event(s)\n", report.TraceEvents)
	return nil
}
