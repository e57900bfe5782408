package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkarvo/pulsedeck/internal/compose"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/validate"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileReport holds the compiled playlist's identity and sizes.
type CompileReport struct {
	Digest    string `json:"digest"`
	Channels  int    `json:"channels"`
	Schedules int    `json:"schedules"`
	Bytes     int    `json:"bytes"`
	Output    string `json:"output"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <playlist.cue>",
		Short: "Compile a CUE playlist to the canonical wire encoding",
		Long: `Compile a CUE playlist document to the canonical binary encoding.

The document is unified with the embedded playlist schema, decoded,
validated, and encoded. The output file name defaults to the input
name with a .pdk extension.

Exit codes:
  0 - compiled and written
  1 - output could not be written
  2 - the validator rejected the playlist
  3 - the document failed to load or decode`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	p, err := compose.Load(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitLoadFailed, "load playlist", err)
	}
	formatter.VerboseLog("Loaded %d channel(s), %d schedule(s) from %s",
		len(p.Channels), len(p.Schedules), path)

	if verr := validate.Playlist(p); verr != nil {
		return outputViolation(formatter, verr)
	}

	encoded, err := wire.Encode(p)
	if err != nil {
		_ = formatter.Error("EncodeFailed", err.Error(), nil)
		return WrapExitError(ExitInternal, "encode playlist", err)
	}

	out := opts.Output
	if out == "" {
		out = defaultOutputPath(path)
	}
	if err := os.WriteFile(out, encoded, 0644); err != nil {
		_ = formatter.Error("WriteFailed", err.Error(), nil)
		return WrapExitError(ExitInternal, "write output file", err)
	}

	report := CompileReport{
		Digest:    playlist.Fingerprint(encoded),
		Channels:  len(p.Channels),
		Schedules: len(p.Schedules),
		Bytes:     len(encoded),
		Output:    out,
	}
	return outputCompileSuccess(formatter, path, report)
}

// defaultOutputPath derives the wire file name from the input path.
func defaultOutputPath(path string) string {
	base := filepath.Base(filepath.Clean(path))
	base = strings.TrimSuffix(base, ".cue")
	return base + ".pdk"
}

// outputViolation renders a validator rejection and maps it to exit
// code 2. Shared by compile, validate, and run.
func outputViolation(formatter *OutputFormatter, verr error) error {
	v, ok := validate.AsViolation(verr)
	if !ok {
		_ = formatter.Error("ValidateFailed", verr.Error(), nil)
		return WrapExitError(ExitInternal, "validator failed without a violation", verr)
	}
	_ = formatter.Error(string(v.Code), v.Error(), v)
	return WrapExitError(ExitRejected, "playlist rejected", verr)
}

func outputCompileSuccess(formatter *OutputFormatter, path string, report CompileReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s\n", path)
	fmt.Fprintf(formatter.Writer, "  Digest:    %s\n", report.Digest)
	fmt.Fprintf(formatter.Writer, "  Channels:  %d, Schedules: %d\n", report.Channels, report.Schedules)
	fmt.Fprintf(formatter.Writer, "  Wrote %d byte(s) to %s\n", report.Bytes, report.Output)
	return nil
}
