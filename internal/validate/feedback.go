package validate

import (
	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// site names one instruction table entry.
type site struct {
	channel string
	index   int
}

// labelSite names one acquisition table entry.
type labelSite struct {
	channel string
	index   int
}

// labelDup records a feedback label declared a second time.
type labelDup struct {
	label string
	site  labelSite
	first labelSite
}

// feedbackGraph is the playlist-wide feedback-label index built before
// any per-channel check runs. It tolerates dangling references (later
// checks report them); it only indexes what resolves.
type feedbackGraph struct {
	// decl maps each label to its first declaration in scan order
	// (channels sorted by name, acquisition tables in index order).
	decl map[string]labelSite

	// dups lists later declarations of already-declared labels, in
	// scan order.
	dups []labelDup

	// producers maps each label to the ReadoutTrigger instructions
	// that fire its declaring acquisition, in scan order.
	producers map[string][]site
}

// buildFeedbackGraph indexes feedback label declarations and their
// producing triggers across the whole playlist.
func buildFeedbackGraph(p *playlist.Playlist) *feedbackGraph {
	fg := &feedbackGraph{
		decl:      map[string]labelSite{},
		producers: map[string][]site{},
	}

	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		for i, acq := range d.Acquisitions {
			tsd, ok := acq.Method.(playlist.ThresholdStateDiscrimination)
			if !ok || tsd.FeedbackSignalLabel == "" {
				continue
			}
			label := tsd.FeedbackSignalLabel
			at := labelSite{channel: name, index: i}
			if first, seen := fg.decl[label]; seen {
				fg.dups = append(fg.dups, labelDup{label: label, site: at, first: first})
				continue
			}
			fg.decl[label] = at
		}
	}

	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		for i, in := range d.Instructions {
			trigger, ok := in.(playlist.ReadoutTrigger)
			if !ok {
				continue
			}
			for _, ref := range trigger.Acquisitions {
				acq, ok := d.Acquisition(ref)
				if !ok {
					continue
				}
				tsd, ok := acq.Method.(playlist.ThresholdStateDiscrimination)
				if !ok || tsd.FeedbackSignalLabel == "" {
					continue
				}
				fg.producers[tsd.FeedbackSignalLabel] = append(
					fg.producers[tsd.FeedbackSignalLabel], site{channel: name, index: i})
			}
		}
	}

	return fg
}

// reachableFrom computes the set of instructions reachable from one
// schedule: every segment reference expanded through conditional
// branches, multiplex entry references, and probe-pulse references.
// Callable only after the cycle checks have passed; expansion assumes
// the reference graph terminates and every reference resolves.
func reachableFrom(p *playlist.Playlist, sched playlist.Schedule) map[site]bool {
	reached := map[site]bool{}
	var visit func(name string, d *playlist.ChannelDescriptor, ref playlist.InstructionRef)
	visit = func(name string, d *playlist.ChannelDescriptor, ref playlist.InstructionRef) {
		at := site{channel: name, index: int(ref)}
		if reached[at] {
			return
		}
		reached[at] = true
		in, ok := d.Instruction(ref)
		if !ok {
			return
		}
		switch in := in.(type) {
		case playlist.ConditionalInstruction:
			visit(name, d, in.IfTrue)
			visit(name, d, in.IfFalse)
		case playlist.MultiplexedRealPulse:
			for _, entry := range in.Entries {
				if entry.Ref != nil {
					visit(name, d, *entry.Ref)
				}
			}
		case playlist.MultiplexedIQPulse:
			for _, entry := range in.Entries {
				if entry.Ref != nil {
					visit(name, d, *entry.Ref)
				}
			}
		case playlist.ReadoutTrigger:
			visit(name, d, in.ProbePulse)
		}
	}

	for _, name := range sched.ChannelNames() {
		d, ok := p.Channels[name]
		if !ok {
			continue
		}
		for _, ref := range sched.Segments[name] {
			visit(name, d, ref)
		}
	}
	return reached
}
