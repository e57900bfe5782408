package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkarvo/pulsedeck/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Parallel int
}

// ValidationReport holds the validator's verdict.
type ValidationReport struct {
	Valid     bool                `json:"valid"`
	Channels  int                 `json:"channels"`
	Schedules int                 `json:"schedules"`
	Violation *validate.Violation `json:"violation,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <playlist>",
		Short: "Validate a playlist without executing it",
		Long: `Validate a playlist against the structural and referential rules.

The argument is a CUE document (or directory) or an encoded wire file;
the input kind is detected from the extension and the wire magic.
Rejections name the violation code, channel, table, and index.

Exit codes:
  0 - playlist valid
  2 - the validator rejected the playlist
  3 - the input failed to load or decode`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "validate channels concurrently with this many workers (0 = sequential)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	p, kind, err := loadPlaylist(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return err
	}
	formatter.VerboseLog("Loaded %s playlist from %s", kind, path)

	var verr error
	if opts.Parallel > 0 {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		verr = validate.PlaylistConcurrent(ctx, p, opts.Parallel)
	} else {
		verr = validate.Playlist(p)
	}
	if verr != nil {
		if formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, "✗ Playlist rejected")
		}
		return outputViolation(formatter, verr)
	}

	report := ValidationReport{
		Valid:     true,
		Channels:  len(p.Channels),
		Schedules: len(p.Schedules),
	}
	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "✓ Playlist valid: %d channel(s), %d schedule(s)\n",
		report.Channels, report.Schedules)
	return nil
}
