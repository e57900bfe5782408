package exec

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/validate"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// RunIDSource mints run identifiers. The default draws time-ordered
// UUIDv7s; tests substitute a fixed source for reproducible runs.
type RunIDSource func() (uuid.UUID, error)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger. The default is a no-op logger;
// nil keeps it.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSampleBudget caps the total samples rendered per run, counting
// every channel's stream. n <= 0 means unlimited. Exceeding the budget
// fails the run with a BudgetExceededError before the offending
// schedule starts.
func WithSampleBudget(n int64) Option {
	return func(e *Executor) { e.budget = n }
}

// WithRunIDSource replaces the run ID source.
func WithRunIDSource(src RunIDSource) Option {
	return func(e *Executor) {
		if src != nil {
			e.newID = src
		}
	}
}

// Executor runs playlists offline: it validates, then walks schedules
// in order with one goroutine per channel, producing sample streams,
// acquisition results, and a deterministic event trace. An Executor is
// stateless across runs and safe for concurrent use.
type Executor struct {
	logger *zap.Logger
	budget int64
	newID  RunIDSource
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger: zap.NewNop(),
		newID:  uuid.NewV7,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates and runs one playlist. Validation failures return
// the violation with no Run. Failures after the run starts (budget,
// cancellation) return the run in state Failed together with the error;
// a completed run returns in state Completed.
//
// Cancellation is checked at schedule boundaries only: a schedule that
// has started always finishes, then the run fails.
func (e *Executor) Execute(ctx context.Context, p *playlist.Playlist) (*Run, error) {
	if err := validate.Playlist(p); err != nil {
		return nil, err
	}

	encoded, err := wire.Encode(p)
	if err != nil {
		return nil, err
	}

	id, err := e.newID()
	if err != nil {
		return nil, fmt.Errorf("mint run id: %w", err)
	}

	run := &Run{
		ID:            id,
		Digest:        playlist.Fingerprint(encoded),
		EngineVersion: playlist.EngineVersion,
		State:         Idle,
		Streams:       make(map[string][]complex128),
		Results:       make(map[string]ResultArray),
	}
	if err := run.transition(Running); err != nil {
		return run, err
	}

	e.logger.Info("run started",
		zap.String("run_id", run.ID.String()),
		zap.String("digest", run.Digest),
		zap.Int("channels", len(p.Channels)),
		zap.Int("schedules", len(p.Schedules)),
	)

	if err := e.walk(ctx, p, run); err != nil {
		run.FailureReason = err.Error()
		if terr := run.transition(Failed); terr != nil {
			return run, terr
		}
		e.logger.Warn("run failed",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
		return run, err
	}

	if err := run.transition(Completed); err != nil {
		return run, err
	}
	e.logger.Info("run completed",
		zap.String("run_id", run.ID.String()),
		zap.Int("trace_events", len(run.Trace)),
	)
	return run, nil
}

// walk executes every schedule against fresh channel runners and fills
// the run's streams, results, durations, and trace.
func (e *Executor) walk(ctx context.Context, p *playlist.Playlist, run *Run) error {
	names := p.ChannelNames()
	latches := newLatchBoard()
	runners := make(map[string]*channelRunner, len(names))
	for _, name := range names {
		runners[name] = newChannelRunner(name, p.Channels[name], latches)
	}

	log := &trace{}
	spend := &budget{limit: e.budget}

	for s := 0; s < len(p.Schedules); s++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		duration, ok := p.ScheduleDuration(s)
		if !ok {
			return &ReferenceError{
				Code:   validate.OutOfRangeReference,
				Detail: fmt.Sprintf("schedule %d references instructions outside their tables", s),
			}
		}

		if used, fits := spend.charge(duration * int64(len(names))); !fits {
			return &BudgetExceededError{Budget: e.budget, Needed: used, Schedule: s}
		}

		sched := p.Schedules[s]
		var g errgroup.Group
		for _, name := range names {
			r := runners[name]
			refs := sched.Segments[name]
			g.Go(func() error {
				return r.runSegment(s, refs, duration)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Barrier: merge channel event buffers in name order, commit
		// staged latches, then mark the schedule done.
		var staged []stagedLatch
		for _, name := range names {
			r := runners[name]
			for _, ev := range r.events {
				log.append(ev)
			}
			r.events = nil
			staged = append(staged, r.staged...)
			r.staged = nil
		}
		for _, sl := range latches.commit(staged) {
			log.append(TraceEvent{
				Kind:        EventLatch,
				Channel:     sl.channel,
				Schedule:    s,
				Instruction: -1,
				Label:       sl.label,
				Detail:      fmt.Sprintf("%t", sl.value),
			})
		}
		log.append(TraceEvent{
			Kind:        EventBarrier,
			Schedule:    s,
			Instruction: -1,
			Detail:      fmt.Sprintf("duration %d samples", duration),
		})
		run.ScheduleDurations = append(run.ScheduleDurations, duration)

		e.logger.Debug("schedule complete",
			zap.Int("schedule", s),
			zap.Int64("duration_samples", duration),
		)
	}

	for _, name := range names {
		run.Streams[name] = runners[name].stream
	}
	collectResults(run, runners, names)
	run.Trace = log.events
	return nil
}

// collectResults flattens per-channel acquisition firings into result
// arrays. Firings of one label are ordered by channel name, then by
// capture order within the channel; the per-firing length comes from
// the first firing.
func collectResults(run *Run, runners map[string]*channelRunner, names []string) {
	merged := make(map[string][][]complex128)
	for _, name := range names {
		for label, firings := range runners[name].results {
			merged[label] = append(merged[label], firings...)
		}
	}
	for label, firings := range merged {
		per := 0
		if len(firings) > 0 {
			per = len(firings[0])
		}
		data := make([]complex128, 0, len(firings)*per)
		for _, f := range firings {
			data = append(data, f...)
		}
		run.Results[label] = ResultArray{Shape: []int{len(firings), per}, Data: data}
	}
}
