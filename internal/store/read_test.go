package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

func TestGetPlaylist_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	p, err := s.GetPlaylist(ctx, digest)
	if err != nil {
		t.Fatalf("GetPlaylist() failed: %v", err)
	}

	// Decoding then re-encoding reproduces the digest.
	encoded, err := wire.Encode(p)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if got := playlist.Fingerprint(encoded); got != digest {
		t.Errorf("re-encoded digest = %q, want %q", got, digest)
	}

	desc, ok := p.Channels["flux.q0"]
	if !ok {
		t.Fatal("channel flux.q0 missing after round trip")
	}
	if desc.ControllerName != "awg-1" {
		t.Errorf("ControllerName = %q, want %q", desc.ControllerName, "awg-1")
	}
}

func TestGetPlaylist_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetPlaylist(context.Background(), "no-such-digest")
	if err != sql.ErrNoRows {
		t.Errorf("GetPlaylist() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListPlaylists_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ListPlaylists(context.Background())
	if err != nil {
		t.Fatalf("ListPlaylists() failed: %v", err)
	}
	// Should return empty slice, not nil
	if records == nil {
		t.Error("records is nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestListPlaylists_OrderedByName(t *testing.T) {
	s := createTestStore(t)

	saveTestPlaylist(t, s, "zeta", 0.25)
	saveTestPlaylist(t, s, "alpha", 0.75)

	records, err := s.ListPlaylists(context.Background())
	if err != nil {
		t.Fatalf("ListPlaylists() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "alpha" || records[1].Name != "zeta" {
		t.Errorf("order = [%q, %q], want [alpha, zeta]", records[0].Name, records[1].Name)
	}
	for _, rec := range records {
		if rec.CreatedAt == "" {
			t.Errorf("playlist %q has empty CreatedAt", rec.Name)
		}
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	if err != sql.ErrNoRows {
		t.Errorf("GetRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ListRuns(context.Background(), "")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if records == nil {
		t.Error("records is nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestListRuns_FiltersByDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d1 := saveTestPlaylist(t, s, "a", 0.25)
	d2 := saveTestPlaylist(t, s, "b", 0.75)

	// Insertion order matches id order so started_at and id ordering
	// agree regardless of timestamp resolution.
	if err := s.BeginRun(ctx, "run-a", d1, "0.1.0"); err != nil {
		t.Fatalf("BeginRun(run-a) failed: %v", err)
	}
	if err := s.BeginRun(ctx, "run-b", d1, "0.1.0"); err != nil {
		t.Fatalf("BeginRun(run-b) failed: %v", err)
	}
	if err := s.BeginRun(ctx, "run-c", d2, "0.1.0"); err != nil {
		t.Fatalf("BeginRun(run-c) failed: %v", err)
	}

	forD1, err := s.ListRuns(ctx, d1)
	if err != nil {
		t.Fatalf("ListRuns(d1) failed: %v", err)
	}
	if len(forD1) != 2 {
		t.Fatalf("len(forD1) = %d, want 2", len(forD1))
	}
	if forD1[0].ID != "run-a" || forD1[1].ID != "run-b" {
		t.Errorf("order = [%q, %q], want [run-a, run-b]", forD1[0].ID, forD1[1].ID)
	}

	all, err := s.ListRuns(ctx, "")
	if err != nil {
		t.Fatalf("ListRuns(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
}

func TestReadResults_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	if err := s.BeginRun(ctx, "run-1", digest, "0.1.0"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	written := map[string]exec.ResultArray{
		"q0.state": {Shape: []int{2, 1}, Data: []complex128{1, 0}},
		"q0.trace": {Shape: []int{1, 3}, Data: []complex128{0.5, 2i, -1 - 1i}},
	}
	if err := s.WriteResults(ctx, "run-1", written); err != nil {
		t.Fatalf("WriteResults() failed: %v", err)
	}

	read, err := s.ReadResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if len(read) != len(written) {
		t.Fatalf("len(read) = %d, want %d", len(read), len(written))
	}
	for label, want := range written {
		got, ok := read[label]
		if !ok {
			t.Errorf("label %q missing", label)
			continue
		}
		if len(got.Shape) != len(want.Shape) {
			t.Errorf("%s: shape rank = %d, want %d", label, len(got.Shape), len(want.Shape))
			continue
		}
		for i := range want.Shape {
			if got.Shape[i] != want.Shape[i] {
				t.Errorf("%s: Shape[%d] = %d, want %d", label, i, got.Shape[i], want.Shape[i])
			}
		}
		if len(got.Data) != len(want.Data) {
			t.Errorf("%s: data length = %d, want %d", label, len(got.Data), len(want.Data))
			continue
		}
		for i := range want.Data {
			if got.Data[i] != want.Data[i] {
				t.Errorf("%s: Data[%d] = %v, want %v", label, i, got.Data[i], want.Data[i])
			}
		}
	}
}

func TestReadResults_EmptyRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	if err := s.BeginRun(ctx, "run-1", digest, "0.1.0"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	read, err := s.ReadResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadResults() failed: %v", err)
	}
	if read == nil {
		t.Error("read is nil, want empty map")
	}
	if len(read) != 0 {
		t.Errorf("len(read) = %d, want 0", len(read))
	}
}

func TestReadTrace_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest := saveTestPlaylist(t, s, "p", 0.5)
	if err := s.BeginRun(ctx, "run-1", digest, "0.1.0"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	written := createTestTrace()
	if err := s.WriteTrace(ctx, "run-1", written); err != nil {
		t.Fatalf("WriteTrace() failed: %v", err)
	}

	read, err := s.ReadTrace(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	if len(read) != len(written) {
		t.Fatalf("len(read) = %d, want %d", len(read), len(written))
	}
	for i, want := range written {
		if read[i] != want {
			t.Errorf("event %d = %+v, want %+v", i, read[i], want)
		}
	}
}

func TestReadTrace_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadTrace(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}
