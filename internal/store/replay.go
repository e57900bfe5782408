package store

import (
	"context"
	"fmt"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// ReplayState bundles everything needed to re-execute a stored run and
// detect drift: the decoded playlist, its stored digest, the original
// run's metadata, and its stored trace.
type ReplayState struct {
	Run      RunRecord
	Digest   string
	Playlist *playlist.Playlist
	Trace    []exec.TraceEvent
}

// ReplayState loads the replay bundle for one run. The stored blob is
// re-fingerprinted against the stored digest, so silent corruption of
// the playlist body surfaces here instead of as a confusing replay
// mismatch.
func (s *Store) ReplayState(ctx context.Context, runID string) (*ReplayState, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay state: %w", err)
	}

	var encoded []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT encoded FROM playlists WHERE digest = ?
	`, run.PlaylistDigest).Scan(&encoded)
	if err != nil {
		return nil, fmt.Errorf("replay state: playlist %s: %w", run.PlaylistDigest, err)
	}

	if got := playlist.Fingerprint(encoded); got != run.PlaylistDigest {
		return nil, fmt.Errorf("replay state: stored blob digest %s does not match %s", got, run.PlaylistDigest)
	}

	p, err := wire.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("replay state: decode playlist: %w", err)
	}

	trace, err := s.ReadTrace(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay state: %w", err)
	}

	return &ReplayState{
		Run:      run,
		Digest:   run.PlaylistDigest,
		Playlist: p,
		Trace:    trace,
	}, nil
}
