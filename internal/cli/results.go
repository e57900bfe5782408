package cli

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tkarvo/pulsedeck/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Digest string
}

// RunInfo is one stored run's metadata for output.
type RunInfo struct {
	ID            string `json:"id"`
	Digest        string `json:"digest"`
	EngineVersion string `json:"engine_version"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
}

// StoredResult is one label's stored array rendered for output.
type StoredResult struct {
	Shape []int       `json:"shape"`
	Data  [][]float64 `json:"data"` // [re, im] pairs, row-major
}

// ResultsReport holds one run's stored results.
type ResultsReport struct {
	Run     RunInfo                 `json:"run"`
	Results map[string]StoredResult `json:"results"`
}

// RunListReport lists stored runs.
type RunListReport struct {
	Runs []RunInfo `json:"runs"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "Query stored runs and their results",
		Long: `Query the database for stored runs.

Without arguments, lists run records, optionally filtered by playlist
digest. With a run ID, prints that run's acquisition results: one array
per label with its declared shape.

Examples:
  pulsedeck results --db ./runs.db
  pulsedeck results --db ./runs.db --digest 3f6a...
  pulsedeck results --db ./runs.db 01923e2d-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runResults(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Digest, "digest", "", "list only runs of this playlist digest")

	return cmd
}

func runResults(opts *ResultsOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if err := requireDatabase(opts.RootOptions); err != nil {
		return reportError(formatter, "MissingFlag", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "open database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID == "" {
		return outputRunList(formatter, st, ctx, opts.Digest)
	}
	return outputRunResults(formatter, st, ctx, runID)
}

func outputRunList(formatter *OutputFormatter, st *store.Store, ctx context.Context, digest string) error {
	records, err := st.ListRuns(ctx, digest)
	if err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "list runs", err))
	}

	report := RunListReport{Runs: make([]RunInfo, 0, len(records))}
	for _, rec := range records {
		report.Runs = append(report.Runs, runInfo(rec))
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	if len(report.Runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d run(s)\n", len(report.Runs))
	for _, run := range report.Runs {
		fmt.Fprintf(formatter.Writer, "  %s  %-9s  digest %s  started %s\n",
			run.ID, run.State, shortDigest(run.Digest), run.StartedAt)
		if run.FailureReason != "" {
			fmt.Fprintf(formatter.Writer, "    reason: %s\n", run.FailureReason)
		}
	}
	return nil
}

func outputRunResults(formatter *OutputFormatter, st *store.Store, ctx context.Context, runID string) error {
	rec, err := st.GetRun(ctx, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return reportError(formatter, "NotFound",
				NewExitError(ExitInternal, fmt.Sprintf("run %q not found", runID)))
		}
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "get run", err))
	}

	results, err := st.ReadResults(ctx, runID)
	if err != nil {
		return reportError(formatter, "StoreFailed",
			WrapExitError(ExitInternal, "read results", err))
	}

	report := ResultsReport{
		Run:     runInfo(rec),
		Results: make(map[string]StoredResult, len(results)),
	}
	for label, arr := range results {
		report.Results[label] = StoredResult{Shape: arr.Shape, Data: complexPairs(arr.Data)}
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "Run %s (%s)\n", report.Run.ID, report.Run.State)
	fmt.Fprintf(formatter.Writer, "  Digest: %s\n", report.Run.Digest)
	if report.Run.FailureReason != "" {
		fmt.Fprintf(formatter.Writer, "  Reason: %s\n", report.Run.FailureReason)
	}
	if len(report.Results) == 0 {
		fmt.Fprintln(formatter.Writer, "  No results.")
		return nil
	}

	labels := make([]string, 0, len(report.Results))
	for label := range report.Results {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		res := report.Results[label]
		fmt.Fprintf(formatter.Writer, "  %s: shape %v\n", label, res.Shape)
		for i, pair := range res.Data {
			fmt.Fprintf(formatter.Writer, "    [%d] (%g%+gi)\n", i, pair[0], pair[1])
		}
	}
	return nil
}

func runInfo(rec store.RunRecord) RunInfo {
	return RunInfo{
		ID:            rec.ID,
		Digest:        rec.PlaylistDigest,
		EngineVersion: rec.EngineVersion,
		State:         rec.State,
		FailureReason: rec.FailureReason,
		StartedAt:     rec.StartedAt,
		FinishedAt:    rec.FinishedAt,
	}
}

// complexPairs renders complex samples as [re, im] pairs, the same
// shape harness scenarios use for inline data.
func complexPairs(data []complex128) [][]float64 {
	pairs := make([][]float64, len(data))
	for i, v := range data {
		pairs[i] = []float64{real(v), imag(v)}
	}
	return pairs
}

// shortDigest truncates a digest for table display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
