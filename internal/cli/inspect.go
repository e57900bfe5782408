package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// ChannelInfo summarizes one channel for inspect output.
type ChannelInfo struct {
	Name         string  `json:"name"`
	Controller   string  `json:"controller"`
	Kind         string  `json:"kind"`
	SampleRate   float64 `json:"sample_rate"`
	Waveforms    int     `json:"waveforms"`
	Instructions int     `json:"instructions"`
	Acquisitions int     `json:"acquisitions"`
}

// ScheduleInfo summarizes one schedule. Duration is -1 when a dangling
// reference keeps it from resolving.
type ScheduleInfo struct {
	Channels int   `json:"channels"`
	Duration int64 `json:"duration_samples"`
}

// InspectReport is the decoded playlist overview.
type InspectReport struct {
	Source    string         `json:"source"`
	Digest    string         `json:"digest"`
	Channels  []ChannelInfo  `json:"channels"`
	Schedules []ScheduleInfo `json:"schedules"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <playlist>",
		Short: "Decode a playlist and print its overview",
		Long: `Decode a playlist and print its channels, table sizes, schedules,
and content digest. Inspect is diagnostics, not validation: dangling
references render as unresolved durations instead of failing.

The argument is a CUE document (or directory) or an encoded wire file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	p, kind, err := loadPlaylist(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return err
	}

	encoded, err := wire.Encode(p)
	if err != nil {
		_ = formatter.Error("EncodeFailed", err.Error(), nil)
		return WrapExitError(ExitInternal, "encode playlist", err)
	}

	report := buildInspectReport(p, kind, playlist.Fingerprint(encoded))

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "Digest: %s\n", report.Digest)
	fmt.Fprint(formatter.Writer, p.Summary())
	return nil
}

func buildInspectReport(p *playlist.Playlist, kind sourceKind, digest string) InspectReport {
	report := InspectReport{
		Source:    string(kind),
		Digest:    digest,
		Channels:  make([]ChannelInfo, 0, len(p.Channels)),
		Schedules: make([]ScheduleInfo, 0, len(p.Schedules)),
	}

	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		report.Channels = append(report.Channels, ChannelInfo{
			Name:         name,
			Controller:   d.ControllerName,
			Kind:         playlist.ConfigKind(d.Config),
			SampleRate:   d.Config.Rate(),
			Waveforms:    len(d.Waveforms),
			Instructions: len(d.Instructions),
			Acquisitions: len(d.Acquisitions),
		})
	}

	for i, sched := range p.Schedules {
		info := ScheduleInfo{Channels: len(sched.Segments), Duration: -1}
		if n, ok := p.ScheduleDuration(i); ok {
			info.Duration = n
		}
		report.Schedules = append(report.Schedules, info)
	}

	return report
}
