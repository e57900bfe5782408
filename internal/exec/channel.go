package exec

import (
	"fmt"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// channelRunner executes one channel. It owns the channel's sample
// stream and phase accumulator across the whole run, and buffers trace
// events, staged latches, and acquisition firings per schedule. One
// goroutine per channel per schedule; the executor merges buffers at
// the barrier.
type channelRunner struct {
	name    string
	desc    *playlist.ChannelDescriptor
	latches *latchBoard

	phase  float64
	stream []complex128

	schedule int
	events   []TraceEvent
	staged   []stagedLatch
	results  map[string][][]complex128
}

func newChannelRunner(name string, d *playlist.ChannelDescriptor, latches *latchBoard) *channelRunner {
	return &channelRunner{
		name:    name,
		desc:    d,
		latches: latches,
		results: make(map[string][][]complex128),
	}
}

// runSegment executes one schedule's instruction refs in order and
// zero-pads the stream to the barrier.
func (r *channelRunner) runSegment(schedule int, refs []playlist.InstructionRef, barrier int64) error {
	r.schedule = schedule
	start := int64(len(r.stream))
	for _, ref := range refs {
		samples, err := r.execute(ref)
		if err != nil {
			return err
		}
		r.stream = append(r.stream, samples...)
	}
	elapsed := int64(len(r.stream)) - start
	if elapsed < barrier {
		r.stream = append(r.stream, make([]complex128, barrier-elapsed)...)
	}
	return nil
}

// execute runs one instruction and returns its rendered window. Every
// executed instruction emits an event, including conditional branch
// targets; multiplex components and probe pulses render inside their
// container and do not.
func (r *channelRunner) execute(ref playlist.InstructionRef) ([]complex128, error) {
	in, ok := r.desc.Instruction(ref)
	if !ok {
		return nil, danglingRef(r.name, "instruction reference %d", ref)
	}

	switch in := in.(type) {
	case playlist.Wait:
		r.event(EventInstruction, int(ref), "", "Wait")
		return make([]complex128, in.DurationSamples), nil

	case playlist.VirtualRZ:
		r.phase += in.PhaseIncrement
		r.event(EventInstruction, int(ref), "", "VirtualRZ")
		return make([]complex128, in.DurationSamples), nil

	case playlist.RealPulse:
		r.event(EventInstruction, int(ref), "", "RealPulse")
		return renderReal(r.name, r.desc, in)

	case playlist.IQPulse:
		r.event(EventInstruction, int(ref), "", "IQPulse")
		out, err := renderIQ(r.name, r.desc, in, r.phase)
		if err != nil {
			return nil, err
		}
		r.phase += in.PhaseIncrement
		return out, nil

	case playlist.MultiplexedRealPulse:
		r.event(EventInstruction, int(ref), "", "MultiplexedRealPulse")
		return renderMultiplexedReal(r.name, r.desc, in)

	case playlist.MultiplexedIQPulse:
		r.event(EventInstruction, int(ref), "", "MultiplexedIQPulse")
		return renderMultiplexedIQ(r.name, r.desc, in, r.phase)

	case playlist.ConditionalInstruction:
		value := r.latches.value(in.Condition)
		chosen := in.IfFalse
		if value {
			chosen = in.IfTrue
		}
		r.event(EventInstruction, int(ref), in.Condition,
			fmt.Sprintf("ConditionalInstruction %q=%t -> instructions[%d]", in.Condition, value, chosen))
		body, err := r.execute(chosen)
		if err != nil {
			return nil, err
		}
		return fitWindow(body, in.DurationSamples), nil

	case playlist.ReadoutTrigger:
		r.event(EventInstruction, int(ref), "", "ReadoutTrigger")
		return r.executeTrigger(int(ref), in)

	default:
		return nil, fmt.Errorf("channel %q: unknown instruction kind %T", r.name, in)
	}
}

// executeTrigger renders the probe pulse into the trigger's window and
// captures each referenced acquisition. Discrimination results are
// staged for the barrier, never committed mid-schedule.
func (r *channelRunner) executeTrigger(index int, in playlist.ReadoutTrigger) ([]complex128, error) {
	probe, ok := r.desc.Instruction(in.ProbePulse)
	if !ok {
		return nil, danglingRef(r.name, "probe pulse reference %d", in.ProbePulse)
	}

	var rendered []complex128
	var err error
	switch probe := probe.(type) {
	case playlist.IQPulse:
		rendered, err = renderIQ(r.name, r.desc, probe, r.phase)
		if err == nil {
			r.phase += probe.PhaseIncrement
		}
	case playlist.MultiplexedIQPulse:
		rendered, err = renderMultiplexedIQ(r.name, r.desc, probe, r.phase)
	default:
		return nil, wrongKind(r.name, "probe pulse references %s, want IQPulse or MultiplexedIQPulse",
			playlist.InstructionKind(probe))
	}
	if err != nil {
		return nil, err
	}
	window := fitWindow(rendered, in.DurationSamples)

	for _, aref := range in.Acquisitions {
		acq, ok := r.desc.Acquisition(aref)
		if !ok {
			return nil, danglingRef(r.name, "acquisition reference %d", aref)
		}

		switch m := acq.Method.(type) {
		case playlist.TimeTrace:
			data := captureWindow(window, acq.DelaySamples, m.DurationSamples)
			r.fire(acq.Label, data)
			r.event(EventAcquire, index, acq.Label,
				fmt.Sprintf("TimeTrace %d samples", m.DurationSamples))

		case playlist.ComplexIntegration:
			weights, err := renderIQ(r.name, r.desc, m.Weights, 0)
			if err != nil {
				return nil, err
			}
			v := integrate(window, acq.DelaySamples, weights)
			r.fire(acq.Label, []complex128{v})
			r.event(EventAcquire, index, acq.Label, "ComplexIntegration")

		case playlist.ThresholdStateDiscrimination:
			weights, err := renderIQ(r.name, r.desc, m.Weights, 0)
			if err != nil {
				return nil, err
			}
			v := integrate(window, acq.DelaySamples, weights)
			state := real(v) > m.Threshold
			sample := complex128(0)
			if state {
				sample = 1
			}
			r.fire(acq.Label, []complex128{sample})
			if m.FeedbackSignalLabel != "" {
				r.staged = append(r.staged, stagedLatch{
					channel: r.name,
					acq:     int(aref),
					label:   m.FeedbackSignalLabel,
					value:   state,
				})
			}
			r.event(EventAcquire, index, acq.Label,
				fmt.Sprintf("ThresholdStateDiscrimination state=%t", state))
		}
	}
	return window, nil
}

// fire appends one acquisition firing under a result label.
func (r *channelRunner) fire(label string, data []complex128) {
	r.results[label] = append(r.results[label], data)
}

func (r *channelRunner) event(kind string, instruction int, label, detail string) {
	r.events = append(r.events, TraceEvent{
		Kind:        kind,
		Channel:     r.name,
		Schedule:    r.schedule,
		Instruction: instruction,
		Label:       label,
		Detail:      detail,
	})
}
