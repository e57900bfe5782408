package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// Minimum encoded sizes, used to bound declared counts against the
// remaining input before anything is allocated.
const (
	minChannelBytes     = 32 // name + controller prefixes, config, three table counts
	minWaveformBytes    = 8  // tag + sample count
	minInstructionBytes = 12 // tag + duration
	minAcquisitionBytes = 24 // label prefix + delay + tag + TimeTrace duration
	minEntryBytes       = 16 // offset + form + reference
	minScheduleBytes    = 4  // segment count
	minSegmentBytes     = 8  // name prefix + reference count
	refBytes            = 4
	sampleBytes         = 8
)

// Sniff reports whether b begins with the wire format's magic. Callers
// use it to tell an encoded playlist from other input before committing
// to a full Decode.
func Sniff(b []byte) bool {
	return len(b) >= len(magic) && bytes.Equal(b[:len(magic)], magic[:])
}

// Decode parses a canonical binary playlist.
//
// Decoding is all-or-nothing: any failure returns a nil playlist and a
// *DecodeError (possibly wrapped with location context). Unknown variant
// tags and multiplex entry forms are UnsupportedVariant; everything
// else (bad magic, future format version, truncation, oversized or
// negative counts, duplicate names, trailing bytes) is
// MalformedEncoding. Dangling references and negative durations are
// data, not encoding defects; they decode fine and are left to the
// validator.
func Decode(b []byte) (*playlist.Playlist, error) {
	d := &decoder{b: b}

	if err := d.need(len(magic)); err != nil {
		return nil, errors.Wrap(err, "header")
	}
	if !bytes.Equal(d.b[:len(magic)], magic[:]) {
		return nil, d.fail(MalformedEncoding, 0, "bad magic %q", d.b[:len(magic)])
	}
	d.off = len(magic)

	at := d.off
	version, err := d.u32()
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}
	if version > playlist.FormatVersion {
		return nil, d.fail(MalformedEncoding, at, "format version %d not supported (max %d)", version, playlist.FormatVersion)
	}

	nch, err := d.count(minChannelBytes)
	if err != nil {
		return nil, errors.Wrap(err, "channel count")
	}
	channels := make(map[string]*playlist.ChannelDescriptor, nch)
	for i := 0; i < nch; i++ {
		at := d.off
		name, err := d.str()
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		if _, dup := channels[name]; dup {
			return nil, d.fail(MalformedEncoding, at, "duplicate channel %q", name)
		}
		desc, err := d.channel()
		if err != nil {
			return nil, errors.Wrapf(err, "channel %q", name)
		}
		channels[name] = desc
	}

	nsched, err := d.count(minScheduleBytes)
	if err != nil {
		return nil, errors.Wrap(err, "schedule count")
	}
	var schedules []playlist.Schedule
	for i := 0; i < nsched; i++ {
		sched, err := d.schedule()
		if err != nil {
			return nil, errors.Wrapf(err, "schedule %d", i)
		}
		schedules = append(schedules, sched)
	}

	if d.off != len(d.b) {
		return nil, d.fail(MalformedEncoding, d.off, "%d trailing byte(s)", len(d.b)-d.off)
	}
	return &playlist.Playlist{Channels: channels, Schedules: schedules}, nil
}

// decoder is a cursor over the input. All reads are bounds-checked and
// advance off, so a DecodeError's Offset names the failing field.
type decoder struct {
	b   []byte
	off int
}

func (d *decoder) fail(code DecodeCode, at int, format string, args ...interface{}) error {
	return &DecodeError{Code: code, Offset: int64(at), Detail: fmt.Sprintf(format, args...)}
}

func (d *decoder) need(n int) error {
	if len(d.b)-d.off < n {
		return d.fail(MalformedEncoding, d.off, "truncated input: need %d byte(s), have %d", n, len(d.b)-d.off)
	}
	return nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.b[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.b[d.off:])
	d.off += 8
	return int64(v), nil
}

func (d *decoder) f64() (float64, error) {
	v, err := d.i64()
	return math.Float64frombits(uint64(v)), err
}

func (d *decoder) f64s(dst ...*float64) error {
	for _, p := range dst {
		v, err := d.f64()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// index reads a signed table reference. Negative values decode fine;
// they are dangling references for the validator, not encoding defects.
func (d *decoder) index() (int, error) {
	v, err := d.u32()
	return int(int32(v)), err
}

// nsamples reads a declared waveform sample count. Unlike references,
// a negative count is never meaningful data.
func (d *decoder) nsamples() (int, error) {
	at := d.off
	n, err := d.index()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, d.fail(MalformedEncoding, at, "negative sample count %d", n)
	}
	return n, nil
}

// count reads a list length and bounds it against the remaining input,
// taking each element to occupy at least minSize bytes. This caps
// allocation at the input size no matter what the length field claims.
func (d *decoder) count(minSize int) (int, error) {
	at := d.off
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if int64(n)*int64(minSize) > int64(len(d.b)-d.off) {
		return 0, d.fail(MalformedEncoding, at, "count %d exceeds remaining input", n)
	}
	return int(n), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.count(1)
	if err != nil {
		return "", err
	}
	s := string(d.b[d.off : d.off+n])
	d.off += n
	return s, nil
}

func (d *decoder) channel() (*playlist.ChannelDescriptor, error) {
	controller, err := d.str()
	if err != nil {
		return nil, errors.Wrap(err, "controller")
	}
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}

	nwf, err := d.count(minWaveformBytes)
	if err != nil {
		return nil, errors.Wrap(err, "waveform count")
	}
	var waveforms []playlist.Waveform
	for i := 0; i < nwf; i++ {
		w, err := d.waveform()
		if err != nil {
			return nil, errors.Wrapf(err, "waveform %d", i)
		}
		waveforms = append(waveforms, w)
	}

	nin, err := d.count(minInstructionBytes)
	if err != nil {
		return nil, errors.Wrap(err, "instruction count")
	}
	var instructions []playlist.Instruction
	for i := 0; i < nin; i++ {
		in, err := d.instruction()
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		instructions = append(instructions, in)
	}

	nacq, err := d.count(minAcquisitionBytes)
	if err != nil {
		return nil, errors.Wrap(err, "acquisition count")
	}
	var acquisitions []playlist.Acquisition
	for i := 0; i < nacq; i++ {
		a, err := d.acquisition()
		if err != nil {
			return nil, errors.Wrapf(err, "acquisition %d", i)
		}
		acquisitions = append(acquisitions, a)
	}

	return &playlist.ChannelDescriptor{
		ControllerName: controller,
		Config:         cfg,
		Instructions:   instructions,
		Waveforms:      waveforms,
		Acquisitions:   acquisitions,
	}, nil
}

func (d *decoder) config() (playlist.ChannelConfig, error) {
	at := d.off
	tag, err := d.u32()
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	switch tag {
	case iqConfigTag:
		rate, err := d.f64()
		if err != nil {
			return nil, err
		}
		return playlist.IQConfig{SampleRate: rate}, nil
	case realConfigTag:
		rate, err := d.f64()
		if err != nil {
			return nil, err
		}
		return playlist.RealConfig{SampleRate: rate}, nil
	case readoutConfigTag:
		rate, err := d.f64()
		if err != nil {
			return nil, err
		}
		return playlist.ReadoutConfig{SampleRate: rate}, nil
	default:
		return nil, d.fail(UnsupportedVariant, at, "unknown channel configuration tag 0x%04x", tag)
	}
}

func (d *decoder) waveform() (playlist.Waveform, error) {
	at := d.off
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case sampleListTag:
		n, err := d.count(sampleBytes)
		if err != nil {
			return nil, err
		}
		var data []float64
		for i := 0; i < n; i++ {
			v, err := d.f64()
			if err != nil {
				return nil, err
			}
			data = append(data, v)
		}
		return playlist.SampleList{Data: data}, nil
	case gaussianTag:
		var w playlist.Gaussian
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.Sigma, &w.Center); err != nil {
			return nil, err
		}
		return w, nil
	case gaussianDerivativeTag:
		var w playlist.GaussianDerivative
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.Sigma, &w.Center); err != nil {
			return nil, err
		}
		return w, nil
	case constantTag:
		var w playlist.Constant
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.Amplitude); err != nil {
			return nil, err
		}
		return w, nil
	case gaussianSmoothedSquareTag:
		var w playlist.GaussianSmoothedSquare
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.SquareWidth, &w.GaussianSigma, &w.Center); err != nil {
			return nil, err
		}
		return w, nil
	case truncatedGaussianTag:
		var w playlist.TruncatedGaussian
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.FullWidth, &w.Center, &w.Sigma); err != nil {
			return nil, err
		}
		return w, nil
	case truncatedGaussianDerivativeTag:
		var w playlist.TruncatedGaussianDerivative
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.FullWidth, &w.Center, &w.Sigma); err != nil {
			return nil, err
		}
		return w, nil
	case truncatedGaussianSmoothedSquareTag:
		var w playlist.TruncatedGaussianSmoothedSquare
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.FullWidth, &w.RiseTime, &w.Center); err != nil {
			return nil, err
		}
		return w, nil
	case cosineRiseFallTag:
		var w playlist.CosineRiseFall
		if w.NSamples, err = d.nsamples(); err != nil {
			return nil, err
		}
		if err := d.f64s(&w.FullWidth, &w.RiseTime, &w.Center); err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, d.fail(UnsupportedVariant, at, "unknown waveform tag 0x%04x", tag)
	}
}

func (d *decoder) instruction() (playlist.Instruction, error) {
	at := d.off
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case waitTag:
		dur, err := d.i64()
		if err != nil {
			return nil, err
		}
		return playlist.Wait{DurationSamples: dur}, nil
	case realPulseTag:
		in, err := d.realPulseBody()
		if err != nil {
			return nil, err
		}
		return in, nil
	case iqPulseTag:
		in, err := d.iqPulseBody()
		if err != nil {
			return nil, err
		}
		return in, nil
	case virtualRZTag:
		var in playlist.VirtualRZ
		if in.DurationSamples, err = d.i64(); err != nil {
			return nil, err
		}
		if err := d.f64s(&in.PhaseIncrement); err != nil {
			return nil, err
		}
		return in, nil
	case multiplexedRealPulseTag:
		dur, err := d.i64()
		if err != nil {
			return nil, err
		}
		n, err := d.count(minEntryBytes)
		if err != nil {
			return nil, err
		}
		var entries []playlist.RealEntry
		for i := 0; i < n; i++ {
			entry, err := d.realEntry()
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			entries = append(entries, entry)
		}
		return playlist.MultiplexedRealPulse{DurationSamples: dur, Entries: entries}, nil
	case multiplexedIQPulseTag:
		dur, err := d.i64()
		if err != nil {
			return nil, err
		}
		n, err := d.count(minEntryBytes)
		if err != nil {
			return nil, err
		}
		var entries []playlist.IQEntry
		for i := 0; i < n; i++ {
			entry, err := d.iqEntry()
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			entries = append(entries, entry)
		}
		return playlist.MultiplexedIQPulse{DurationSamples: dur, Entries: entries}, nil
	case conditionalInstructionTag:
		var in playlist.ConditionalInstruction
		if in.DurationSamples, err = d.i64(); err != nil {
			return nil, err
		}
		if in.Condition, err = d.str(); err != nil {
			return nil, err
		}
		t, err := d.index()
		if err != nil {
			return nil, err
		}
		f, err := d.index()
		if err != nil {
			return nil, err
		}
		in.IfTrue = playlist.InstructionRef(t)
		in.IfFalse = playlist.InstructionRef(f)
		return in, nil
	case readoutTriggerTag:
		var in playlist.ReadoutTrigger
		if in.DurationSamples, err = d.i64(); err != nil {
			return nil, err
		}
		probe, err := d.index()
		if err != nil {
			return nil, err
		}
		in.ProbePulse = playlist.InstructionRef(probe)
		n, err := d.count(refBytes)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			r, err := d.index()
			if err != nil {
				return nil, err
			}
			in.Acquisitions = append(in.Acquisitions, playlist.AcquisitionRef(r))
		}
		return in, nil
	default:
		return nil, d.fail(UnsupportedVariant, at, "unknown instruction tag 0x%04x", tag)
	}
}

func (d *decoder) realPulseBody() (playlist.RealPulse, error) {
	var in playlist.RealPulse
	dur, err := d.i64()
	if err != nil {
		return in, err
	}
	in.DurationSamples = dur
	ref, err := d.index()
	if err != nil {
		return in, err
	}
	in.Waveform = playlist.WaveformRef(ref)
	if err := d.f64s(&in.Scale); err != nil {
		return in, err
	}
	return in, nil
}

// iqPulseBody is shared between the IQPulse instruction, inline
// multiplex entries, and acquisition integration weights.
func (d *decoder) iqPulseBody() (playlist.IQPulse, error) {
	var in playlist.IQPulse
	dur, err := d.i64()
	if err != nil {
		return in, err
	}
	in.DurationSamples = dur
	i, err := d.index()
	if err != nil {
		return in, err
	}
	q, err := d.index()
	if err != nil {
		return in, err
	}
	in.WaveformI = playlist.WaveformRef(i)
	in.WaveformQ = playlist.WaveformRef(q)
	if err := d.f64s(&in.ScaleI, &in.ScaleQ, &in.Phase, &in.ModulationFrequency, &in.PhaseIncrement); err != nil {
		return in, err
	}
	return in, nil
}

func (d *decoder) realEntry() (playlist.RealEntry, error) {
	var entry playlist.RealEntry
	off, err := d.i64()
	if err != nil {
		return entry, err
	}
	entry.OffsetSamples = off
	at := d.off
	form, err := d.u32()
	if err != nil {
		return entry, err
	}
	switch form {
	case entryInline:
		p, err := d.realPulseBody()
		if err != nil {
			return entry, err
		}
		entry.Pulse = &p
	case entryRef:
		r, err := d.index()
		if err != nil {
			return entry, err
		}
		ref := playlist.InstructionRef(r)
		entry.Ref = &ref
	default:
		return entry, d.fail(UnsupportedVariant, at, "unknown multiplex entry form %d", form)
	}
	return entry, nil
}

func (d *decoder) iqEntry() (playlist.IQEntry, error) {
	var entry playlist.IQEntry
	off, err := d.i64()
	if err != nil {
		return entry, err
	}
	entry.OffsetSamples = off
	at := d.off
	form, err := d.u32()
	if err != nil {
		return entry, err
	}
	switch form {
	case entryInline:
		p, err := d.iqPulseBody()
		if err != nil {
			return entry, err
		}
		entry.Pulse = &p
	case entryRef:
		r, err := d.index()
		if err != nil {
			return entry, err
		}
		ref := playlist.InstructionRef(r)
		entry.Ref = &ref
	default:
		return entry, d.fail(UnsupportedVariant, at, "unknown multiplex entry form %d", form)
	}
	return entry, nil
}

func (d *decoder) acquisition() (playlist.Acquisition, error) {
	var a playlist.Acquisition
	label, err := d.str()
	if err != nil {
		return a, err
	}
	a.Label = label
	if a.DelaySamples, err = d.i64(); err != nil {
		return a, err
	}

	at := d.off
	tag, err := d.u32()
	if err != nil {
		return a, err
	}
	switch tag {
	case timeTraceTag:
		dur, err := d.i64()
		if err != nil {
			return a, err
		}
		a.Method = playlist.TimeTrace{DurationSamples: dur}
	case complexIntegrationTag:
		weights, err := d.iqPulseBody()
		if err != nil {
			return a, err
		}
		a.Method = playlist.ComplexIntegration{Weights: weights}
	case thresholdStateDiscriminationTag:
		var m playlist.ThresholdStateDiscrimination
		if m.Weights, err = d.iqPulseBody(); err != nil {
			return a, err
		}
		if err := d.f64s(&m.Threshold); err != nil {
			return a, err
		}
		if m.FeedbackSignalLabel, err = d.str(); err != nil {
			return a, err
		}
		a.Method = m
	default:
		return a, d.fail(UnsupportedVariant, at, "unknown acquisition method tag 0x%04x", tag)
	}
	return a, nil
}

func (d *decoder) schedule() (playlist.Schedule, error) {
	nseg, err := d.count(minSegmentBytes)
	if err != nil {
		return playlist.Schedule{}, err
	}
	segments := make(map[string][]playlist.InstructionRef, nseg)
	for i := 0; i < nseg; i++ {
		at := d.off
		name, err := d.str()
		if err != nil {
			return playlist.Schedule{}, errors.Wrapf(err, "segment %d", i)
		}
		if _, dup := segments[name]; dup {
			return playlist.Schedule{}, d.fail(MalformedEncoding, at, "duplicate segment %q", name)
		}
		n, err := d.count(refBytes)
		if err != nil {
			return playlist.Schedule{}, errors.Wrapf(err, "segment %q", name)
		}
		var refs []playlist.InstructionRef
		for j := 0; j < n; j++ {
			r, err := d.index()
			if err != nil {
				return playlist.Schedule{}, errors.Wrapf(err, "segment %q", name)
			}
			refs = append(refs, playlist.InstructionRef(r))
		}
		segments[name] = refs
	}
	return playlist.Schedule{Segments: segments}, nil
}
