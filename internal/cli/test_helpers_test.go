package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tkarvo/pulsedeck/internal/compose"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// twoChannelCUE is a valid document: two real channels whose schedule-0
// segments take 8 and 4 samples, so the barrier pads the short one.
const twoChannelCUE = `
playlist: {
	channels: {
		"flux.a": {
			controller: "awg-1"
			config: {kind: "Real", sample_rate: 1.0e9}
			waveforms: [
				{kind: "Constant", n_samples: 8, amplitude: 0.5},
			]
			instructions: [
				{kind: "RealPulse", duration: 8, waveform: 0},
			]
		}
		"flux.b": {
			controller: "awg-2"
			config: {kind: "Real", sample_rate: 1.0e9}
			instructions: [
				{kind: "Wait", duration: 4},
			]
		}
	}
	schedules: [
		{segments: {"flux.a": [0], "flux.b": [0]}},
	]
}
`

// iqOnRealCUE is schema-valid but fails validation: an IQ pulse on a
// Real channel.
const iqOnRealCUE = `
playlist: {
	channels: {
		"flux.q0": {
			controller: "awg-1"
			config: {kind: "Real", sample_rate: 1.0e9}
			waveforms: [
				{kind: "Constant", n_samples: 4, amplitude: 1.0},
			]
			instructions: [
				{kind: "IQPulse", duration: 4, waveform_i: 0, waveform_q: 0},
			]
		}
	}
	schedules: [
		{segments: {"flux.q0": [0]}},
	]
}
`

// writeCUE writes a CUE document into dir and returns its path.
func writeCUE(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// loadTestPlaylist compiles a CUE document string into a playlist.
func loadTestPlaylist(t *testing.T, content string) *playlist.Playlist {
	t.Helper()
	path := writeCUE(t, t.TempDir(), "playlist.cue", content)
	p, err := compose.Load(path)
	require.NoError(t, err)
	return p
}

// writeWireFile encodes the two-channel playlist into dir as a .pdk
// file and returns its path.
func writeWireFile(t *testing.T, dir string) string {
	t.Helper()
	p := loadTestPlaylist(t, twoChannelCUE)
	encoded, err := wire.Encode(p)
	require.NoError(t, err)
	path := filepath.Join(dir, "playlist.pdk")
	require.NoError(t, os.WriteFile(path, encoded, 0644))
	return path
}
