package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// PlaylistRecord is one stored playlist's metadata.
type PlaylistRecord struct {
	Digest    string
	Name      string
	CreatedAt string
}

// RunRecord is one stored run's metadata.
type RunRecord struct {
	ID             string
	PlaylistDigest string
	EngineVersion  string
	State          string
	FailureReason  string
	StartedAt      string
	FinishedAt     string // empty while running
}

// GetPlaylist decodes the stored playlist with the given digest.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetPlaylist(ctx context.Context, digest string) (*playlist.Playlist, error) {
	var encoded []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT encoded FROM playlists WHERE digest = ?
	`, digest).Scan(&encoded)
	if err != nil {
		return nil, err
	}
	p, err := wire.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", digest, err)
	}
	return p, nil
}

// ListPlaylists returns stored playlist metadata ordered by name, then
// digest, so listings are deterministic.
func (s *Store) ListPlaylists(ctx context.Context) ([]PlaylistRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest, name, created_at
		FROM playlists
		ORDER BY name ASC, digest ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var records []PlaylistRecord
	for rows.Next() {
		var rec PlaylistRecord
		if err := rows.Scan(&rec.Digest, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list playlists: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list playlists: iterate: %w", err)
	}
	if records == nil {
		records = []PlaylistRecord{}
	}
	return records, nil
}

// GetRun returns one run's metadata.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	var rec RunRecord
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, playlist_digest, engine_version, state, failure_reason, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.PlaylistDigest, &rec.EngineVersion, &rec.State,
		&rec.FailureReason, &rec.StartedAt, &finished)
	if err != nil {
		return RunRecord{}, err
	}
	rec.FinishedAt = finished.String
	return rec, nil
}

// ListRuns returns runs for one playlist digest, oldest first, run ID
// breaking ties. An empty digest lists every run.
func (s *Store) ListRuns(ctx context.Context, digest string) ([]RunRecord, error) {
	query := `
		SELECT id, playlist_digest, engine_version, state, failure_reason, started_at, finished_at
		FROM runs
	`
	var args []interface{}
	if digest != "" {
		query += ` WHERE playlist_digest = ?`
		args = append(args, digest)
	}
	query += ` ORDER BY started_at ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var finished sql.NullString
		err := rows.Scan(&rec.ID, &rec.PlaylistDigest, &rec.EngineVersion, &rec.State,
			&rec.FailureReason, &rec.StartedAt, &finished)
		if err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		rec.FinishedAt = finished.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: iterate: %w", err)
	}
	if records == nil {
		records = []RunRecord{}
	}
	return records, nil
}

// ReadResults returns a run's stored acquisition results keyed by
// label.
func (s *Store) ReadResults(ctx context.Context, runID string) (map[string]exec.ResultArray, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, shape, data
		FROM results
		WHERE run_id = ?
		ORDER BY label ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]exec.ResultArray)
	for rows.Next() {
		var label, shape string
		var data []byte
		if err := rows.Scan(&label, &shape, &data); err != nil {
			return nil, fmt.Errorf("read results: scan: %w", err)
		}
		arr, err := unmarshalResult(shape, data)
		if err != nil {
			return nil, fmt.Errorf("read results: label %q: %w", label, err)
		}
		results[label] = arr
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: iterate: %w", err)
	}
	return results, nil
}

// ReadTrace returns a run's event log ordered by sequence number.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]exec.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, channel, schedule, instruction, label, detail
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	defer rows.Close()

	var events []exec.TraceEvent
	for rows.Next() {
		var ev exec.TraceEvent
		err := rows.Scan(&ev.Seq, &ev.Kind, &ev.Channel, &ev.Schedule, &ev.Instruction, &ev.Label, &ev.Detail)
		if err != nil {
			return nil, fmt.Errorf("read trace: scan: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trace: iterate: %w", err)
	}
	return events, nil
}
