package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/tkarvo/pulsedeck/internal/exec"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// SavePlaylist encodes and stores a playlist under a human-readable
// name, returning its content digest. Saving a digest that already
// exists is a no-op (ON CONFLICT DO NOTHING), so the first name wins;
// the digest identifies the content either way.
func (s *Store) SavePlaylist(ctx context.Context, name string, p *playlist.Playlist) (string, error) {
	encoded, err := wire.Encode(p)
	if err != nil {
		return "", fmt.Errorf("save playlist: %w", err)
	}
	digest := playlist.Fingerprint(encoded)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO playlists (digest, name, encoded)
		VALUES (?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, digest, name, encoded)
	if err != nil {
		return "", fmt.Errorf("save playlist: %w", err)
	}
	return digest, nil
}

// BeginRun records a run in state Running. The playlist digest must
// already be saved (foreign key constraint).
func (s *Store) BeginRun(ctx context.Context, id, digest, engineVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, playlist_digest, engine_version, state)
		VALUES (?, ?, ?, 'Running')
	`, id, digest, engineVersion)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// CompleteRun marks a run Completed.
func (s *Store) CompleteRun(ctx context.Context, id string) error {
	return s.finishRun(ctx, id, "Completed", "")
}

// FailRun marks a run Failed with a reason.
func (s *Store) FailRun(ctx context.Context, id, reason string) error {
	return s.finishRun(ctx, id, "Failed", reason)
}

func (s *Store) finishRun(ctx context.Context, id, state, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, failure_reason = ?,
		    finished_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
	`, state, reason, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found", id)
	}
	return nil
}

// WriteResults stores a run's acquisition results, one row per label,
// in a single transaction.
func (s *Store) WriteResults(ctx context.Context, runID string, results map[string]exec.ResultArray) error {
	labels := make([]string, 0, len(results))
	for label := range results {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write results: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, label := range labels {
		shape, data, err := marshalResult(results[label])
		if err != nil {
			return fmt.Errorf("write results: label %q: %w", label, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (run_id, label, shape, data)
			VALUES (?, ?, ?, ?)
		`, runID, label, shape, data)
		if err != nil {
			return fmt.Errorf("write results: label %q: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write results: commit: %w", err)
	}
	return nil
}

// WriteTrace stores a run's event log in a single transaction.
func (s *Store) WriteTrace(ctx context.Context, runID string, events []exec.TraceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, kind, channel, schedule, instruction, label, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			runID, ev.Seq, ev.Kind, ev.Channel, ev.Schedule, ev.Instruction, ev.Label, ev.Detail)
		if err != nil {
			return fmt.Errorf("write trace: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}
