package validate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// PlaylistConcurrent is Playlist with the per-channel checks fanned out
// across a bounded worker pool. It reports exactly what Playlist
// reports for the same playlist: each worker records the first
// violation of its own channel tagged with the check position, and the
// winner is the minimum by (check position, channel name), the same
// tuple the sequential stage-major loop reaches first.
//
// limit bounds the number of concurrently checked channels; limit < 1
// runs one worker per channel. On cancellation the fan-out stops and
// the context error is returned instead of a violation.
func PlaylistConcurrent(ctx context.Context, p *playlist.Playlist, limit int) error {
	fg := buildFeedbackGraph(p)

	if v := checkScheduleChannels(p); v != nil {
		return v
	}
	if v := checkScheduleRefs(p); v != nil {
		return v
	}

	var (
		mu   sync.Mutex
		best *candidate
	)
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for pos, check := range channelChecks {
				v := check(name, d)
				if v == nil {
					continue
				}
				mu.Lock()
				if best == nil || less(pos, name, best) {
					best = &candidate{pos: pos, channel: name, violation: v}
				}
				mu.Unlock()
				return nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if best != nil {
		return best.violation
	}

	if v := checkFeedback(p, fg); v != nil {
		return v
	}
	return nil
}

// candidate is one channel's first violation, tagged with the position
// of the check that produced it.
type candidate struct {
	pos       int
	channel   string
	violation *Violation
}

func less(pos int, channel string, other *candidate) bool {
	if pos != other.pos {
		return pos < other.pos
	}
	return channel < other.channel
}
