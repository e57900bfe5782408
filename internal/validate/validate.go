package validate

import (
	"fmt"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// Playlist checks the full structural and referential contract of a
// playlist. It is pure, total, and read-only: it returns nil when the
// playlist is accepted, or exactly one *Violation, the first violation
// in the fixed check order. It never repairs anything.
//
// The order is: the playlist-wide feedback-label graph is built first;
// then schedules are checked against the channel map, then schedule
// references, then the per-channel table checks in channelChecks order
// (each check over all channels in sorted name order before the next
// check runs), and feedback routing last. Validating the same playlist
// twice, or sequentially versus concurrently, reports the same
// violation.
func Playlist(p *playlist.Playlist) error {
	fg := buildFeedbackGraph(p)

	if v := checkScheduleChannels(p); v != nil {
		return v
	}
	if v := checkScheduleRefs(p); v != nil {
		return v
	}

	names := p.ChannelNames()
	for _, check := range channelChecks {
		for _, name := range names {
			if v := check(name, p.Channels[name]); v != nil {
				return v
			}
		}
	}

	if v := checkFeedback(p, fg); v != nil {
		return v
	}
	return nil
}

// channelChecks are the per-channel table checks in fixed order. Each
// is independent of every other channel, which is what lets
// PlaylistConcurrent fan them out and still report the sequential
// answer.
var channelChecks = []func(string, *playlist.ChannelDescriptor) *Violation{
	checkTableRefs,
	checkCompatibility,
	checkMultiplexShape,
	checkMultiplexCycles,
	checkMultiplexRefs,
	checkConditionalRefs,
	checkConditionalCycles,
	checkTriggers,
}

// checkScheduleChannels rejects schedule segments naming channels
// absent from the channel map.
func checkScheduleChannels(p *playlist.Playlist) *Violation {
	for s, sched := range p.Schedules {
		for _, name := range sched.ChannelNames() {
			if _, ok := p.Channels[name]; !ok {
				return &Violation{
					Code:     UnknownChannel,
					Channel:  name,
					Schedule: s,
					Table:    "segment",
					Index:    -1,
					Entry:    -1,
					Detail:   fmt.Sprintf("schedule names undeclared channel %q", name),
				}
			}
		}
	}
	return nil
}

// checkScheduleRefs rejects schedule segment references that do not
// resolve in the named channel's instruction table.
func checkScheduleRefs(p *playlist.Playlist) *Violation {
	for s, sched := range p.Schedules {
		for _, name := range sched.ChannelNames() {
			d := p.Channels[name]
			for pos, ref := range sched.Segments[name] {
				if _, ok := d.Instruction(ref); !ok {
					return segmentViolation(OutOfRangeReference, name, s, pos,
						"instruction reference %d outside table of %d entries", ref, len(d.Instructions))
				}
			}
		}
	}
	return nil
}

// checkTableRefs enforces referential and value integrity inside one
// descriptor's tables: waveform references resolve, declared waveform
// lengths are non-negative, and durations and delays are non-negative.
// Instruction-to-instruction references belong to later checks.
func checkTableRefs(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, w := range d.Waveforms {
		if w.Samples() < 0 {
			return tableViolation(InconsistentWaveformLength, name, "waveforms", i,
				"%s declares %d samples", playlist.WaveformKind(w), w.Samples())
		}
	}

	for i, in := range d.Instructions {
		if in.Duration() < 0 {
			return tableViolation(NegativeDuration, name, "instructions", i,
				"%s duration is %d samples", playlist.InstructionKind(in), in.Duration())
		}
		switch in := in.(type) {
		case playlist.RealPulse:
			if v := waveformRef(name, d, i, -1, in.Waveform); v != nil {
				return v
			}
		case playlist.IQPulse:
			if v := iqWaveformRefs(name, d, i, -1, in); v != nil {
				return v
			}
		case playlist.MultiplexedRealPulse:
			for e, entry := range in.Entries {
				if entry.Pulse == nil {
					continue
				}
				if entry.Pulse.DurationSamples < 0 {
					return entryViolation(NegativeDuration, name, "instructions", i, e,
						"inline pulse duration is %d samples", entry.Pulse.DurationSamples)
				}
				if v := waveformRef(name, d, i, e, entry.Pulse.Waveform); v != nil {
					return v
				}
			}
		case playlist.MultiplexedIQPulse:
			for e, entry := range in.Entries {
				if entry.Pulse == nil {
					continue
				}
				if entry.Pulse.DurationSamples < 0 {
					return entryViolation(NegativeDuration, name, "instructions", i, e,
						"inline pulse duration is %d samples", entry.Pulse.DurationSamples)
				}
				if v := iqWaveformRefs(name, d, i, e, *entry.Pulse); v != nil {
					return v
				}
			}
		}
	}

	for i, a := range d.Acquisitions {
		if a.DelaySamples < 0 {
			return tableViolation(NegativeDuration, name, "acquisitions", i,
				"acquisition delay is %d samples", a.DelaySamples)
		}
		switch m := a.Method.(type) {
		case playlist.TimeTrace:
			if m.DurationSamples < 0 {
				return tableViolation(NegativeDuration, name, "acquisitions", i,
					"time trace duration is %d samples", m.DurationSamples)
			}
		case playlist.ComplexIntegration:
			if v := checkWeights(name, d, i, m.Weights); v != nil {
				return v
			}
		case playlist.ThresholdStateDiscrimination:
			if v := checkWeights(name, d, i, m.Weights); v != nil {
				return v
			}
		}
	}
	return nil
}

// waveformRef reports a dangling waveform reference inside an
// instruction table entry. entry is -1 for a direct field, or the
// multiplex entry position for inline component pulses.
func waveformRef(channel string, d *playlist.ChannelDescriptor, index, entry int, ref playlist.WaveformRef) *Violation {
	if _, ok := d.Waveform(ref); ok {
		return nil
	}
	v := tableViolation(OutOfRangeReference, channel, "instructions", index,
		"waveform reference %d outside table of %d entries", ref, len(d.Waveforms))
	v.Entry = entry
	return v
}

func iqWaveformRefs(channel string, d *playlist.ChannelDescriptor, index, entry int, in playlist.IQPulse) *Violation {
	if v := waveformRef(channel, d, index, entry, in.WaveformI); v != nil {
		return v
	}
	return waveformRef(channel, d, index, entry, in.WaveformQ)
}

// checkWeights validates the embedded integration-weights pulse of an
// acquisition method.
func checkWeights(channel string, d *playlist.ChannelDescriptor, index int, weights playlist.IQPulse) *Violation {
	if weights.DurationSamples < 0 {
		return tableViolation(NegativeDuration, channel, "acquisitions", index,
			"integration weights duration is %d samples", weights.DurationSamples)
	}
	for _, ref := range []playlist.WaveformRef{weights.WaveformI, weights.WaveformQ} {
		if _, ok := d.Waveform(ref); !ok {
			return tableViolation(OutOfRangeReference, channel, "acquisitions", index,
				"weights waveform reference %d outside table of %d entries", ref, len(d.Waveforms))
		}
	}
	return nil
}

// checkCompatibility enforces the instruction/channel kind matrix and
// confines acquisition tables to readout channels.
func checkCompatibility(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, in := range d.Instructions {
		if compatible(in, d.Config) {
			continue
		}
		return tableViolation(IncompatibleInstructionForChannel, name, "instructions", i,
			"%s not allowed on %s channel", playlist.InstructionKind(in), playlist.ConfigKind(d.Config))
	}
	if _, readout := d.Config.(playlist.ReadoutConfig); !readout && len(d.Acquisitions) > 0 {
		return tableViolation(IncompatibleInstructionForChannel, name, "acquisitions", 0,
			"acquisition table on %s channel", playlist.ConfigKind(d.Config))
	}
	return nil
}

// compatible reports whether an instruction kind may appear on a
// channel of the given kind. Wait and conditionals run anywhere; real
// pulses need real channels; IQ pulses and phase rotations need IQ or
// readout channels; readout triggers need readout channels.
func compatible(in playlist.Instruction, cfg playlist.ChannelConfig) bool {
	switch in.(type) {
	case playlist.Wait, playlist.ConditionalInstruction:
		return true
	case playlist.RealPulse, playlist.MultiplexedRealPulse:
		_, ok := cfg.(playlist.RealConfig)
		return ok
	case playlist.IQPulse, playlist.MultiplexedIQPulse, playlist.VirtualRZ:
		switch cfg.(type) {
		case playlist.IQConfig, playlist.ReadoutConfig:
			return true
		}
		return false
	case playlist.ReadoutTrigger:
		_, ok := cfg.(playlist.ReadoutConfig)
		return ok
	default:
		return false
	}
}

// muxRef is one referencing entry of a multiplexed instruction.
type muxRef struct {
	entry int
	ref   playlist.InstructionRef
}

// muxRefs lists the referencing entries of a multiplexed instruction in
// entry order. Other instruction kinds yield nil.
func muxRefs(in playlist.Instruction) []muxRef {
	var refs []muxRef
	switch in := in.(type) {
	case playlist.MultiplexedRealPulse:
		for e, entry := range in.Entries {
			if entry.Ref != nil {
				refs = append(refs, muxRef{entry: e, ref: *entry.Ref})
			}
		}
	case playlist.MultiplexedIQPulse:
		for e, entry := range in.Entries {
			if entry.Ref != nil {
				refs = append(refs, muxRef{entry: e, ref: *entry.Ref})
			}
		}
	}
	return refs
}

// checkMultiplexShape rejects multiplex entries that are not exactly
// one of inline pulse and reference.
func checkMultiplexShape(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, in := range d.Instructions {
		switch in := in.(type) {
		case playlist.MultiplexedRealPulse:
			for e, entry := range in.Entries {
				if v := entryShape(name, i, e, entry.Pulse != nil, entry.Ref != nil); v != nil {
					return v
				}
			}
		case playlist.MultiplexedIQPulse:
			for e, entry := range in.Entries {
				if v := entryShape(name, i, e, entry.Pulse != nil, entry.Ref != nil); v != nil {
					return v
				}
			}
		}
	}
	return nil
}

func entryShape(channel string, index, entry int, hasPulse, hasRef bool) *Violation {
	switch {
	case hasPulse && hasRef:
		return entryViolation(MalformedMultiplexEntry, channel, "instructions", index, entry,
			"both inline pulse and reference set")
	case !hasPulse && !hasRef:
		return entryViolation(MalformedMultiplexEntry, channel, "instructions", index, entry,
			"neither inline pulse nor reference set")
	}
	return nil
}

// checkMultiplexCycles rejects cycles in the reference graph restricted
// to multiplex edges. It runs before the per-entry kind check so a
// self-referential multiplexed pulse reads as a cycle, not as a kind
// mismatch. Dangling references contribute no edges; the next check
// reports them.
func checkMultiplexCycles(name string, d *playlist.ChannelDescriptor) *Violation {
	edges := make([][]int, len(d.Instructions))
	for i, in := range d.Instructions {
		for _, mr := range muxRefs(in) {
			if _, ok := d.Instruction(mr.ref); ok {
				edges[i] = append(edges[i], int(mr.ref))
			}
		}
	}
	path, found := findCycle(edges)
	if !found {
		return nil
	}
	return tableViolation(MultiplexingCycle, name, "instructions", path[0],
		"multiplex reference cycle: %s", formatCycle(path))
}

// checkMultiplexRefs resolves multiplex entry references and enforces
// that each names an instruction of the matching non-multiplexed pulse
// kind.
func checkMultiplexRefs(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, in := range d.Instructions {
		var want string
		switch in.(type) {
		case playlist.MultiplexedRealPulse:
			want = "RealPulse"
		case playlist.MultiplexedIQPulse:
			want = "IQPulse"
		default:
			continue
		}
		for _, mr := range muxRefs(in) {
			target, ok := d.Instruction(mr.ref)
			if !ok {
				return entryViolation(OutOfRangeReference, name, "instructions", i, mr.entry,
					"instruction reference %d outside table of %d entries", mr.ref, len(d.Instructions))
			}
			if playlist.InstructionKind(target) != want {
				return entryViolation(MismatchedPulseKind, name, "instructions", i, mr.entry,
					"entry references %s, want %s", playlist.InstructionKind(target), want)
			}
		}
	}
	return nil
}

// checkConditionalRefs resolves conditional branch references.
func checkConditionalRefs(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, in := range d.Instructions {
		cond, ok := in.(playlist.ConditionalInstruction)
		if !ok {
			continue
		}
		branches := []struct {
			which string
			ref   playlist.InstructionRef
		}{
			{"true", cond.IfTrue},
			{"false", cond.IfFalse},
		}
		for _, b := range branches {
			if _, ok := d.Instruction(b.ref); !ok {
				return tableViolation(OutOfRangeReference, name, "instructions", i,
					"%s branch references instruction %d outside table of %d entries",
					b.which, b.ref, len(d.Instructions))
			}
		}
	}
	return nil
}

// checkConditionalCycles rejects cycles in the reference graph
// restricted to conditional branch edges. Nested conditionals are legal
// as long as the nesting terminates.
func checkConditionalCycles(name string, d *playlist.ChannelDescriptor) *Violation {
	edges := make([][]int, len(d.Instructions))
	for i, in := range d.Instructions {
		if cond, ok := in.(playlist.ConditionalInstruction); ok {
			edges[i] = append(edges[i], int(cond.IfTrue), int(cond.IfFalse))
		}
	}
	path, found := findCycle(edges)
	if !found {
		return nil
	}
	return tableViolation(ConditionalCycle, name, "instructions", path[0],
		"conditional branch cycle: %s", formatCycle(path))
}

// checkTriggers resolves readout trigger references, enforces the probe
// kind, and applies the per-trigger acquisition mixing policy: at most
// one TimeTrace, and never TimeTrace mixed with
// ThresholdStateDiscrimination.
func checkTriggers(name string, d *playlist.ChannelDescriptor) *Violation {
	for i, in := range d.Instructions {
		trigger, ok := in.(playlist.ReadoutTrigger)
		if !ok {
			continue
		}

		probe, ok := d.Instruction(trigger.ProbePulse)
		if !ok {
			return tableViolation(OutOfRangeReference, name, "instructions", i,
				"probe pulse reference %d outside table of %d entries",
				trigger.ProbePulse, len(d.Instructions))
		}
		switch probe.(type) {
		case playlist.IQPulse, playlist.MultiplexedIQPulse:
		default:
			return tableViolation(MismatchedPulseKind, name, "instructions", i,
				"probe pulse references %s, want IQPulse or MultiplexedIQPulse",
				playlist.InstructionKind(probe))
		}

		traces, discriminators := 0, 0
		for pos, ref := range trigger.Acquisitions {
			acq, ok := d.Acquisition(ref)
			if !ok {
				return entryViolation(OutOfRangeReference, name, "instructions", i, pos,
					"acquisition reference %d outside table of %d entries", ref, len(d.Acquisitions))
			}
			switch acq.Method.(type) {
			case playlist.TimeTrace:
				traces++
				if discriminators > 0 {
					return entryViolation(InvalidAcquisitionMix, name, "instructions", i, pos,
						"TimeTrace mixed with ThresholdStateDiscrimination")
				}
				if traces > 1 {
					return entryViolation(InvalidAcquisitionMix, name, "instructions", i, pos,
						"more than one TimeTrace on a single trigger")
				}
			case playlist.ThresholdStateDiscrimination:
				discriminators++
				if traces > 0 {
					return entryViolation(InvalidAcquisitionMix, name, "instructions", i, pos,
						"TimeTrace mixed with ThresholdStateDiscrimination")
				}
			}
		}
	}
	return nil
}

// checkFeedback enforces feedback routing: label uniqueness, condition
// resolution, and the same-schedule ordering rule. Runs last; the
// reachability expansion assumes the earlier reference and cycle checks
// passed.
func checkFeedback(p *playlist.Playlist, fg *feedbackGraph) *Violation {
	if len(fg.dups) > 0 {
		dup := fg.dups[0]
		return tableViolation(DuplicateFeedbackLabel, dup.site.channel, "acquisitions", dup.site.index,
			"label %q already declared by channel %q acquisitions[%d]",
			dup.label, dup.first.channel, dup.first.index)
	}

	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		for i, in := range d.Instructions {
			cond, ok := in.(playlist.ConditionalInstruction)
			if !ok {
				continue
			}
			if cond.Condition == "" {
				return tableViolation(UnresolvedFeedbackLabel, name, "instructions", i,
					"empty condition")
			}
			if _, ok := fg.decl[cond.Condition]; !ok {
				return tableViolation(UnresolvedFeedbackLabel, name, "instructions", i,
					"condition %q matches no declared feedback label", cond.Condition)
			}
		}
	}

	// A latch commits at the schedule barrier, so a conditional must
	// not read a label whose producing trigger fires in its own
	// schedule.
	for s, sched := range p.Schedules {
		reached := reachableFrom(p, sched)
		for _, name := range p.ChannelNames() {
			d := p.Channels[name]
			for i, in := range d.Instructions {
				cond, ok := in.(playlist.ConditionalInstruction)
				if !ok || !reached[site{channel: name, index: i}] {
					continue
				}
				for _, producer := range fg.producers[cond.Condition] {
					if reached[producer] {
						v := tableViolation(UnresolvedFeedbackLabel, name, "instructions", i,
							"condition %q depends on a measurement in the same schedule (channel %q instructions[%d])",
							cond.Condition, producer.channel, producer.index)
						v.Schedule = s
						return v
					}
				}
			}
		}
	}
	return nil
}
