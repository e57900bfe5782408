package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// createTestStore creates a store backed by a fresh temp database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPlaylist builds a minimal one-channel playlist. Different
// amplitudes yield different digests.
func createTestPlaylist(amplitude float64) *playlist.Playlist {
	return &playlist.Playlist{
		Channels: map[string]*playlist.ChannelDescriptor{
			"flux.q0": {
				ControllerName: "awg-1",
				Config:         playlist.RealConfig{SampleRate: 1e9},
				Waveforms: []playlist.Waveform{
					playlist.Constant{NSamples: 4, Amplitude: amplitude},
				},
				Instructions: []playlist.Instruction{
					playlist.RealPulse{DurationSamples: 4, Waveform: 0, Scale: 1},
				},
			},
		},
		Schedules: []playlist.Schedule{
			{Segments: map[string][]playlist.InstructionRef{"flux.q0": {0}}},
		},
	}
}

// saveTestPlaylist stores a playlist and returns its digest.
func saveTestPlaylist(t *testing.T, s *Store, name string, amplitude float64) string {
	t.Helper()
	digest, err := s.SavePlaylist(context.Background(), name, createTestPlaylist(amplitude))
	if err != nil {
		t.Fatalf("SavePlaylist() failed: %v", err)
	}
	return digest
}

// createTestTrace builds a small fixed event log.
func createTestTrace() []exec.TraceEvent {
	return []exec.TraceEvent{
		{Seq: 0, Kind: exec.EventInstruction, Channel: "flux.q0", Schedule: 0, Instruction: 0, Detail: "RealPulse"},
		{Seq: 1, Kind: exec.EventBarrier, Schedule: 0, Instruction: -1, Detail: "duration 4 samples"},
	}
}
