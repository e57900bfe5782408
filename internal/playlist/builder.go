package playlist

import (
	"fmt"
	"reflect"
	"sort"
)

// Builder accumulates channels and schedules and produces an immutable
// Playlist. It is the only construction convenience in this package;
// the Playlist value itself has no mutation API.
//
// Channel names and acquisition labels are NFC-normalized on the way in,
// so playlists built here always carry canonical names.
type Builder struct {
	channels  map[string]*ChannelDescriptor
	schedules []Schedule
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{channels: make(map[string]*ChannelDescriptor)}
}

// AddChannel registers a channel descriptor under a name and returns the
// canonical name. Re-adding a name with an equal descriptor is a no-op;
// re-adding it with a different descriptor is an error, never a silent
// overwrite.
func (b *Builder) AddChannel(name string, d *ChannelDescriptor) (string, error) {
	if d == nil {
		return "", fmt.Errorf("add channel %q: nil descriptor", name)
	}
	canonical := CanonicalName(name)
	normalized := normalizeDescriptor(d)

	if existing, ok := b.channels[canonical]; ok {
		if !reflect.DeepEqual(existing, normalized) {
			return "", fmt.Errorf("add channel %q: already registered with a different descriptor", canonical)
		}
		return canonical, nil
	}

	b.channels[canonical] = normalized
	return canonical, nil
}

// AddSchedule appends one schedule. Segment channel names are
// NFC-normalized; reference slices are copied so later caller mutation
// cannot reach the built playlist.
func (b *Builder) AddSchedule(segments map[string][]InstructionRef) {
	copied := make(map[string][]InstructionRef, len(segments))
	for name, refs := range segments {
		dup := make([]InstructionRef, len(refs))
		copy(dup, refs)
		copied[CanonicalName(name)] = dup
	}
	b.schedules = append(b.schedules, Schedule{Segments: copied})
}

// Build returns the accumulated Playlist. The builder remains usable;
// each Build returns an independent value.
func (b *Builder) Build() *Playlist {
	channels := make(map[string]*ChannelDescriptor, len(b.channels))
	for name, d := range b.channels {
		channels[name] = d
	}
	schedules := make([]Schedule, len(b.schedules))
	copy(schedules, b.schedules)
	return &Playlist{Channels: channels, Schedules: schedules}
}

// ChannelNames returns the names registered so far, sorted.
func (b *Builder) ChannelNames() []string {
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeDescriptor copies a descriptor with canonical acquisition and
// condition labels. The waveform table is shared, not copied; it is
// immutable by convention and contains no names.
func normalizeDescriptor(d *ChannelDescriptor) *ChannelDescriptor {
	out := &ChannelDescriptor{
		ControllerName: d.ControllerName,
		Config:         d.Config,
		Waveforms:      d.Waveforms,
	}
	if len(d.Instructions) > 0 {
		out.Instructions = make([]Instruction, len(d.Instructions))
		for i, in := range d.Instructions {
			if cond, ok := in.(ConditionalInstruction); ok {
				cond.Condition = CanonicalName(cond.Condition)
				in = cond
			}
			out.Instructions[i] = in
		}
	}
	if len(d.Acquisitions) > 0 {
		out.Acquisitions = make([]Acquisition, len(d.Acquisitions))
		for i, acq := range d.Acquisitions {
			acq.Label = CanonicalName(acq.Label)
			if t, ok := acq.Method.(ThresholdStateDiscrimination); ok {
				t.FeedbackSignalLabel = CanonicalName(t.FeedbackSignalLabel)
				acq.Method = t
			}
			out.Acquisitions[i] = acq
		}
	}
	return out
}
