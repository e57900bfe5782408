package testutil

import (
	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// FeedbackPlaylist builds the canonical two-channel feedback fixture:
// readout.q0 measures feedback label "m0" in schedule 0 and drive.q0
// branches on it in schedule 1.
//
// The numbers are chosen so execution is exactly predictable: the probe
// and the discrimination weights are constant 1+0i envelopes of 16
// samples, so the integration is 16+0i and the threshold of 8 latches
// "m0" true. The conditional's true branch plays a constant 1+0i pulse
// of 8 samples, the false branch waits.
func FeedbackPlaylist() *playlist.Playlist {
	flat := playlist.IQPulse{
		DurationSamples: 16,
		WaveformI:       0,
		WaveformQ:       0,
		ScaleI:          1,
	}
	return &playlist.Playlist{
		Channels: map[string]*playlist.ChannelDescriptor{
			"drive.q0": {
				ControllerName: "awg-1",
				Config:         playlist.IQConfig{SampleRate: 1e9},
				Waveforms: []playlist.Waveform{
					playlist.Constant{NSamples: 8, Amplitude: 1},
				},
				Instructions: []playlist.Instruction{
					playlist.Wait{DurationSamples: 8},
					playlist.IQPulse{DurationSamples: 8, WaveformI: 0, WaveformQ: 0, ScaleI: 1},
					playlist.ConditionalInstruction{DurationSamples: 8, Condition: "m0", IfTrue: 1, IfFalse: 0},
				},
			},
			"readout.q0": {
				ControllerName: "digitizer-1",
				Config:         playlist.ReadoutConfig{SampleRate: 1e9},
				Waveforms: []playlist.Waveform{
					playlist.Constant{NSamples: 16, Amplitude: 1},
				},
				Instructions: []playlist.Instruction{
					playlist.Wait{DurationSamples: 16},
					flat,
					playlist.ReadoutTrigger{DurationSamples: 16, ProbePulse: 1, Acquisitions: []playlist.AcquisitionRef{0}},
				},
				Acquisitions: []playlist.Acquisition{
					{
						Label: "m0.state",
						Method: playlist.ThresholdStateDiscrimination{
							Weights:             flat,
							Threshold:           8,
							FeedbackSignalLabel: "m0",
						},
					},
				},
			},
		},
		Schedules: []playlist.Schedule{
			{Segments: map[string][]playlist.InstructionRef{
				"drive.q0":   {0},
				"readout.q0": {2},
			}},
			{Segments: map[string][]playlist.InstructionRef{
				"drive.q0": {2},
			}},
		},
	}
}

// BarrierPlaylist builds two real channels whose schedule 0 segments
// sum to 100 and 60 samples, so the barrier pads the short channel by
// 40.
func BarrierPlaylist() *playlist.Playlist {
	return &playlist.Playlist{
		Channels: map[string]*playlist.ChannelDescriptor{
			"flux.a": {
				ControllerName: "awg-1",
				Config:         playlist.RealConfig{SampleRate: 1e9},
				Waveforms: []playlist.Waveform{
					playlist.Constant{NSamples: 100, Amplitude: 0.5},
				},
				Instructions: []playlist.Instruction{
					playlist.RealPulse{DurationSamples: 100, Waveform: 0, Scale: 1},
				},
			},
			"flux.b": {
				ControllerName: "awg-2",
				Config:         playlist.RealConfig{SampleRate: 1e9},
				Waveforms: []playlist.Waveform{
					playlist.Constant{NSamples: 60, Amplitude: 0.25},
				},
				Instructions: []playlist.Instruction{
					playlist.RealPulse{DurationSamples: 60, Waveform: 0, Scale: 1},
				},
			},
		},
		Schedules: []playlist.Schedule{
			{Segments: map[string][]playlist.InstructionRef{
				"flux.a": {0},
				"flux.b": {0},
			}},
		},
	}
}
