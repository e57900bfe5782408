package store

import (
	"context"
	"strings"
	"testing"
)

func TestReplayState_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	if err := s.BeginRun(ctx, "run-1", digest, "0.1.0"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	if err := s.WriteTrace(ctx, "run-1", createTestTrace()); err != nil {
		t.Fatalf("WriteTrace() failed: %v", err)
	}
	if err := s.CompleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("CompleteRun() failed: %v", err)
	}

	state, err := s.ReplayState(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReplayState() failed: %v", err)
	}

	if state.Run.ID != "run-1" {
		t.Errorf("Run.ID = %q, want %q", state.Run.ID, "run-1")
	}
	if state.Run.State != "Completed" {
		t.Errorf("Run.State = %q, want %q", state.Run.State, "Completed")
	}
	if state.Digest != digest {
		t.Errorf("Digest = %q, want %q", state.Digest, digest)
	}
	if state.Playlist == nil {
		t.Fatal("Playlist is nil")
	}
	if _, ok := state.Playlist.Channels["flux.q0"]; !ok {
		t.Error("decoded playlist missing channel flux.q0")
	}
	if len(state.Trace) != 2 {
		t.Errorf("len(Trace) = %d, want 2", len(state.Trace))
	}
}

func TestReplayState_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReplayState(context.Background(), "no-such-run")
	if err == nil {
		t.Error("expected error for unknown run, got nil")
	}
}

func TestReplayState_DetectsCorruptBlob(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	if err := s.BeginRun(ctx, "run-1", digest, "0.1.0"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	// Flip the stored blob out from under the digest.
	_, err := s.db.ExecContext(ctx, `
		UPDATE playlists SET encoded = ? WHERE digest = ?
	`, []byte{0xde, 0xad}, digest)
	if err != nil {
		t.Fatalf("corrupting blob failed: %v", err)
	}

	_, err = s.ReplayState(ctx, "run-1")
	if err == nil {
		t.Fatal("expected digest mismatch error, got nil")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("error = %q, want digest mismatch", err)
	}
}
