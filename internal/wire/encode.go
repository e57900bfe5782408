package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// Encode serializes a playlist into the canonical binary form.
//
// Channels and schedule segments are written in sorted name order, so
// logically equal playlists encode to identical bytes. Encode does not
// validate: dangling references and negative durations pass through
// untouched. It fails only on values the format cannot represent: an
// index outside int32, a count outside uint32, or a multiplex entry
// that is not exactly one of inline pulse and reference.
func Encode(p *playlist.Playlist) ([]byte, error) {
	e := &encoder{}
	e.raw(magic[:])
	e.u32(playlist.FormatVersion)

	names := p.ChannelNames()
	e.count(len(names))
	for _, name := range names {
		e.scope = "channel " + name
		e.str(name)
		e.channel(p.Channels[name])
	}

	e.scope = ""
	e.count(len(p.Schedules))
	for i, sched := range p.Schedules {
		e.scope = "schedule " + strconv.Itoa(i)
		segNames := sched.ChannelNames()
		e.count(len(segNames))
		for _, name := range segNames {
			e.str(name)
			e.refs(sched.Segments[name])
		}
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

// encoder accumulates output and holds the first representation error.
// Writes after a failure are no-ops.
type encoder struct {
	buf   bytes.Buffer
	scope string
	err   error
}

func (e *encoder) failf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	if e.scope != "" {
		e.err = errors.Errorf("%s: "+format, append([]interface{}{e.scope}, args...)...)
		return
	}
	e.err = errors.Errorf(format, args...)
}

func (e *encoder) raw(b []byte) {
	if e.err != nil {
		return
	}
	e.buf.Write(b)
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.raw(b[:])
}

func (e *encoder) i64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	e.raw(b[:])
}

func (e *encoder) f64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.raw(b[:])
}

// count writes a list or string length. Lengths are unsigned on the
// wire; anything outside uint32 cannot be represented.
func (e *encoder) count(n int) {
	if n < 0 || int64(n) > math.MaxUint32 {
		e.failf("count %d overflows uint32", n)
		return
	}
	e.u32(uint32(n))
}

// index writes a table reference or sample count. Indices are signed on
// the wire so that unvalidated negative values round-trip.
func (e *encoder) index(n int) {
	if int64(n) < math.MinInt32 || int64(n) > math.MaxInt32 {
		e.failf("index %d overflows int32", n)
		return
	}
	e.u32(uint32(int32(n)))
}

func (e *encoder) str(s string) {
	e.count(len(s))
	e.raw([]byte(s))
}

func (e *encoder) refs(refs []playlist.InstructionRef) {
	e.count(len(refs))
	for _, r := range refs {
		e.index(int(r))
	}
}

func (e *encoder) channel(d *playlist.ChannelDescriptor) {
	e.str(d.ControllerName)
	e.config(d.Config)

	e.count(len(d.Waveforms))
	for _, w := range d.Waveforms {
		e.waveform(w)
	}
	e.count(len(d.Instructions))
	for _, in := range d.Instructions {
		e.instruction(in)
	}
	e.count(len(d.Acquisitions))
	for _, a := range d.Acquisitions {
		e.acquisition(a)
	}
}

func (e *encoder) config(c playlist.ChannelConfig) {
	switch c := c.(type) {
	case playlist.IQConfig:
		e.u32(iqConfigTag)
		e.f64(c.SampleRate)
	case playlist.RealConfig:
		e.u32(realConfigTag)
		e.f64(c.SampleRate)
	case playlist.ReadoutConfig:
		e.u32(readoutConfigTag)
		e.f64(c.SampleRate)
	default:
		e.failf("unknown channel configuration %T", c)
	}
}

func (e *encoder) waveform(w playlist.Waveform) {
	switch w := w.(type) {
	case playlist.SampleList:
		e.u32(sampleListTag)
		e.count(len(w.Data))
		for _, s := range w.Data {
			e.f64(s)
		}
	case playlist.Gaussian:
		e.u32(gaussianTag)
		e.index(w.NSamples)
		e.f64(w.Sigma)
		e.f64(w.Center)
	case playlist.GaussianDerivative:
		e.u32(gaussianDerivativeTag)
		e.index(w.NSamples)
		e.f64(w.Sigma)
		e.f64(w.Center)
	case playlist.Constant:
		e.u32(constantTag)
		e.index(w.NSamples)
		e.f64(w.Amplitude)
	case playlist.GaussianSmoothedSquare:
		e.u32(gaussianSmoothedSquareTag)
		e.index(w.NSamples)
		e.f64(w.SquareWidth)
		e.f64(w.GaussianSigma)
		e.f64(w.Center)
	case playlist.TruncatedGaussian:
		e.u32(truncatedGaussianTag)
		e.index(w.NSamples)
		e.f64(w.FullWidth)
		e.f64(w.Center)
		e.f64(w.Sigma)
	case playlist.TruncatedGaussianDerivative:
		e.u32(truncatedGaussianDerivativeTag)
		e.index(w.NSamples)
		e.f64(w.FullWidth)
		e.f64(w.Center)
		e.f64(w.Sigma)
	case playlist.TruncatedGaussianSmoothedSquare:
		e.u32(truncatedGaussianSmoothedSquareTag)
		e.index(w.NSamples)
		e.f64(w.FullWidth)
		e.f64(w.RiseTime)
		e.f64(w.Center)
	case playlist.CosineRiseFall:
		e.u32(cosineRiseFallTag)
		e.index(w.NSamples)
		e.f64(w.FullWidth)
		e.f64(w.RiseTime)
		e.f64(w.Center)
	default:
		e.failf("unknown waveform kind %T", w)
	}
}

func (e *encoder) instruction(in playlist.Instruction) {
	switch in := in.(type) {
	case playlist.Wait:
		e.u32(waitTag)
		e.i64(in.DurationSamples)
	case playlist.RealPulse:
		e.u32(realPulseTag)
		e.realPulseBody(in)
	case playlist.IQPulse:
		e.u32(iqPulseTag)
		e.iqPulseBody(in)
	case playlist.VirtualRZ:
		e.u32(virtualRZTag)
		e.i64(in.DurationSamples)
		e.f64(in.PhaseIncrement)
	case playlist.MultiplexedRealPulse:
		e.u32(multiplexedRealPulseTag)
		e.i64(in.DurationSamples)
		e.count(len(in.Entries))
		for i, entry := range in.Entries {
			e.i64(entry.OffsetSamples)
			switch {
			case entry.Pulse != nil && entry.Ref == nil:
				e.u32(entryInline)
				e.realPulseBody(*entry.Pulse)
			case entry.Ref != nil && entry.Pulse == nil:
				e.u32(entryRef)
				e.index(int(*entry.Ref))
			default:
				e.failf("multiplex entry %d: exactly one of inline pulse and reference required", i)
			}
		}
	case playlist.MultiplexedIQPulse:
		e.u32(multiplexedIQPulseTag)
		e.i64(in.DurationSamples)
		e.count(len(in.Entries))
		for i, entry := range in.Entries {
			e.i64(entry.OffsetSamples)
			switch {
			case entry.Pulse != nil && entry.Ref == nil:
				e.u32(entryInline)
				e.iqPulseBody(*entry.Pulse)
			case entry.Ref != nil && entry.Pulse == nil:
				e.u32(entryRef)
				e.index(int(*entry.Ref))
			default:
				e.failf("multiplex entry %d: exactly one of inline pulse and reference required", i)
			}
		}
	case playlist.ConditionalInstruction:
		e.u32(conditionalInstructionTag)
		e.i64(in.DurationSamples)
		e.str(in.Condition)
		e.index(int(in.IfTrue))
		e.index(int(in.IfFalse))
	case playlist.ReadoutTrigger:
		e.u32(readoutTriggerTag)
		e.i64(in.DurationSamples)
		e.index(int(in.ProbePulse))
		e.count(len(in.Acquisitions))
		for _, r := range in.Acquisitions {
			e.index(int(r))
		}
	default:
		e.failf("unknown instruction kind %T", in)
	}
}

func (e *encoder) realPulseBody(in playlist.RealPulse) {
	e.i64(in.DurationSamples)
	e.index(int(in.Waveform))
	e.f64(in.Scale)
}

// iqPulseBody is shared between the IQPulse instruction, inline
// multiplex entries, and acquisition integration weights.
func (e *encoder) iqPulseBody(in playlist.IQPulse) {
	e.i64(in.DurationSamples)
	e.index(int(in.WaveformI))
	e.index(int(in.WaveformQ))
	e.f64(in.ScaleI)
	e.f64(in.ScaleQ)
	e.f64(in.Phase)
	e.f64(in.ModulationFrequency)
	e.f64(in.PhaseIncrement)
}

func (e *encoder) acquisition(a playlist.Acquisition) {
	e.str(a.Label)
	e.i64(a.DelaySamples)
	switch m := a.Method.(type) {
	case playlist.TimeTrace:
		e.u32(timeTraceTag)
		e.i64(m.DurationSamples)
	case playlist.ComplexIntegration:
		e.u32(complexIntegrationTag)
		e.iqPulseBody(m.Weights)
	case playlist.ThresholdStateDiscrimination:
		e.u32(thresholdStateDiscriminationTag)
		e.iqPulseBody(m.Weights)
		e.f64(m.Threshold)
		e.str(m.FeedbackSignalLabel)
	default:
		e.failf("unknown acquisition method %T", m)
	}
}
