package playlist

import (
	"fmt"
	"sort"
	"strings"
)

// Schedule is one synchronized cross-channel execution step: for every
// participating channel, an ordered list of instruction-table references
// executed back-to-back. Channels absent from a schedule contribute
// silence for its whole window.
type Schedule struct {
	Segments map[string][]InstructionRef
}

// ChannelNames returns the schedule's channel names in sorted order.
// All iteration over segments goes through this for determinism.
func (s Schedule) ChannelNames() []string {
	names := make([]string, 0, len(s.Segments))
	for name := range s.Segments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SegmentDuration sums the instruction durations of one channel's
// segment. The boolean is false when a reference does not resolve in the
// descriptor; validated playlists never hit that path.
func (s Schedule) SegmentDuration(name string, d *ChannelDescriptor) (int64, bool) {
	var total int64
	for _, ref := range s.Segments[name] {
		in, ok := d.Instruction(ref)
		if !ok {
			return 0, false
		}
		total += in.Duration()
	}
	return total, true
}

// Playlist is the top-level artifact: a mapping from channel name to
// channel descriptor plus an ordered sequence of schedules. A playlist's
// identity is its full value; there is no mutation API.
type Playlist struct {
	Channels  map[string]*ChannelDescriptor
	Schedules []Schedule
}

// ChannelNames returns the playlist's channel names in sorted order.
// All iteration over the channel map goes through this for determinism.
func (p *Playlist) ChannelNames() []string {
	names := make([]string, 0, len(p.Channels))
	for name := range p.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScheduleDuration returns the barrier duration of one schedule: the
// maximum over channels of the summed instruction durations. The boolean
// is false when a segment names an unknown channel or an unresolvable
// reference; validated playlists never hit that path.
func (p *Playlist) ScheduleDuration(idx int) (int64, bool) {
	if idx < 0 || idx >= len(p.Schedules) {
		return 0, false
	}
	sched := p.Schedules[idx]
	var max int64
	for _, name := range sched.ChannelNames() {
		desc, ok := p.Channels[name]
		if !ok {
			return 0, false
		}
		dur, ok := sched.SegmentDuration(name, desc)
		if !ok {
			return 0, false
		}
		if dur > max {
			max = dur
		}
	}
	return max, true
}

// Summary renders a human-readable overview of the playlist: channels
// with their controllers, kinds, and table sizes, then schedules with
// their barrier durations. Unresolvable references render as "?" rather
// than failing; Summary is diagnostics, not validation.
func (p *Playlist) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Playlist with %d channel(s) and %d schedule(s)\n",
		len(p.Channels), len(p.Schedules))

	for _, name := range p.ChannelNames() {
		d := p.Channels[name]
		fmt.Fprintf(&b, "  channel %q: controller %s, %s @ %g S/s, %d instruction(s), %d waveform(s), %d acquisition(s)\n",
			name, d.ControllerName, ConfigKind(d.Config), d.Config.Rate(),
			len(d.Instructions), len(d.Waveforms), len(d.Acquisitions))
	}

	for i, sched := range p.Schedules {
		dur := "?"
		if n, ok := p.ScheduleDuration(i); ok {
			dur = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(&b, "  schedule %d: %d channel(s), %s sample(s)\n",
			i, len(sched.Segments), dur)
	}

	return b.String()
}
