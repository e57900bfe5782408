package compose

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

// decodeDocument unifies the document's playlist field with #Playlist
// and walks the result into a built playlist.
func decodeDocument(ctx *cue.Context, path string, root cue.Value) (*playlist.Playlist, error) {
	doc := root.LookupPath(cue.ParsePath("playlist"))
	if !doc.Exists() {
		return nil, &LoadError{
			Path: path, Pos: root.Pos(), Code: CodeSchema,
			Msg: `document has no top-level "playlist" field`,
		}
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(path, CodeSyntax, err)
	}
	unified := doc.Unify(schema.LookupPath(cue.ParsePath("#Playlist")))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(path, CodeSchema, err)
	}

	d := &decoder{path: path}
	return d.playlist(unified)
}

// decoder walks a schema-validated value. The schema guarantees shape,
// so lookups here only fail on bugs; every failure still comes back as
// a positioned LoadError rather than a panic.
type decoder struct {
	path string
}

func (d *decoder) fail(v cue.Value, code, format string, args ...interface{}) *LoadError {
	return &LoadError{Path: d.path, Pos: v.Pos(), Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) playlist(v cue.Value) (*playlist.Playlist, error) {
	b := playlist.NewBuilder()

	channels := v.LookupPath(cue.ParsePath("channels"))
	if channels.Exists() {
		iter, err := channels.Fields()
		if err != nil {
			return nil, d.fail(channels, CodeDecode, "iterating channels: %v", err)
		}
		for iter.Next() {
			desc, err := d.channel(iter.Value())
			if err != nil {
				return nil, err
			}
			if _, err := b.AddChannel(iter.Label(), desc); err != nil {
				return nil, d.fail(iter.Value(), CodeConflict, "%v", err)
			}
		}
	}

	schedules := v.LookupPath(cue.ParsePath("schedules"))
	if schedules.Exists() {
		iter, err := schedules.List()
		if err != nil {
			return nil, d.fail(schedules, CodeDecode, "iterating schedules: %v", err)
		}
		for iter.Next() {
			segments, err := d.schedule(iter.Value())
			if err != nil {
				return nil, err
			}
			b.AddSchedule(segments)
		}
	}

	return b.Build(), nil
}

func (d *decoder) channel(v cue.Value) (*playlist.ChannelDescriptor, error) {
	desc := &playlist.ChannelDescriptor{}
	var err error

	if desc.ControllerName, err = d.str(v, "controller"); err != nil {
		return nil, err
	}
	if desc.Config, err = d.config(v.LookupPath(cue.ParsePath("config"))); err != nil {
		return nil, err
	}

	err = d.list(v, "waveforms", func(el cue.Value) error {
		w, err := d.waveform(el)
		if err != nil {
			return err
		}
		desc.Waveforms = append(desc.Waveforms, w)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = d.list(v, "instructions", func(el cue.Value) error {
		in, err := d.instruction(el)
		if err != nil {
			return err
		}
		desc.Instructions = append(desc.Instructions, in)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = d.list(v, "acquisitions", func(el cue.Value) error {
		acq, err := d.acquisition(el)
		if err != nil {
			return err
		}
		desc.Acquisitions = append(desc.Acquisitions, acq)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return desc, nil
}

func (d *decoder) config(v cue.Value) (playlist.ChannelConfig, error) {
	kind, err := d.str(v, "kind")
	if err != nil {
		return nil, err
	}
	rate, err := d.num(v, "sample_rate")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Real":
		return playlist.RealConfig{SampleRate: rate}, nil
	case "IQ":
		return playlist.IQConfig{SampleRate: rate}, nil
	case "Readout":
		return playlist.ReadoutConfig{SampleRate: rate}, nil
	default:
		return nil, d.fail(v, CodeDecode, "unknown config kind %q", kind)
	}
}

func (d *decoder) waveform(v cue.Value) (playlist.Waveform, error) {
	kind, err := d.str(v, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "SampleList":
		w := playlist.SampleList{}
		err := d.list(v, "data", func(el cue.Value) error {
			f, err := el.Float64()
			if err != nil {
				return d.fail(el, CodeDecode, "sample: %v", err)
			}
			w.Data = append(w.Data, f)
			return nil
		})
		return w, err
	case "Gaussian":
		return d.shape3(v, func(n int, a, b float64) playlist.Waveform {
			return playlist.Gaussian{NSamples: n, Sigma: a, Center: b}
		}, "sigma", "center")
	case "GaussianDerivative":
		return d.shape3(v, func(n int, a, b float64) playlist.Waveform {
			return playlist.GaussianDerivative{NSamples: n, Sigma: a, Center: b}
		}, "sigma", "center")
	case "Constant":
		n, err := d.count(v, "n_samples")
		if err != nil {
			return nil, err
		}
		amp, err := d.num(v, "amplitude")
		if err != nil {
			return nil, err
		}
		return playlist.Constant{NSamples: n, Amplitude: amp}, nil
	case "GaussianSmoothedSquare":
		return d.shape4(v, func(n int, a, b, c float64) playlist.Waveform {
			return playlist.GaussianSmoothedSquare{NSamples: n, SquareWidth: a, GaussianSigma: b, Center: c}
		}, "square_width", "gaussian_sigma", "center")
	case "TruncatedGaussian":
		return d.shape4(v, func(n int, a, b, c float64) playlist.Waveform {
			return playlist.TruncatedGaussian{NSamples: n, FullWidth: a, Center: b, Sigma: c}
		}, "full_width", "center", "sigma")
	case "TruncatedGaussianDerivative":
		return d.shape4(v, func(n int, a, b, c float64) playlist.Waveform {
			return playlist.TruncatedGaussianDerivative{NSamples: n, FullWidth: a, Center: b, Sigma: c}
		}, "full_width", "center", "sigma")
	case "TruncatedGaussianSmoothedSquare":
		return d.shape4(v, func(n int, a, b, c float64) playlist.Waveform {
			return playlist.TruncatedGaussianSmoothedSquare{NSamples: n, FullWidth: a, RiseTime: b, Center: c}
		}, "full_width", "rise_time", "center")
	case "CosineRiseFall":
		return d.shape4(v, func(n int, a, b, c float64) playlist.Waveform {
			return playlist.CosineRiseFall{NSamples: n, FullWidth: a, RiseTime: b, Center: c}
		}, "full_width", "rise_time", "center")
	default:
		return nil, d.fail(v, CodeDecode, "unknown waveform kind %q", kind)
	}
}

// shape3 and shape4 decode the parametric waveform layouts: a sample
// count plus two or three shape parameters.
func (d *decoder) shape3(v cue.Value, build func(int, float64, float64) playlist.Waveform, fields ...string) (playlist.Waveform, error) {
	n, err := d.count(v, "n_samples")
	if err != nil {
		return nil, err
	}
	a, err := d.num(v, fields[0])
	if err != nil {
		return nil, err
	}
	b, err := d.num(v, fields[1])
	if err != nil {
		return nil, err
	}
	return build(n, a, b), nil
}

func (d *decoder) shape4(v cue.Value, build func(int, float64, float64, float64) playlist.Waveform, fields ...string) (playlist.Waveform, error) {
	n, err := d.count(v, "n_samples")
	if err != nil {
		return nil, err
	}
	a, err := d.num(v, fields[0])
	if err != nil {
		return nil, err
	}
	b, err := d.num(v, fields[1])
	if err != nil {
		return nil, err
	}
	c, err := d.num(v, fields[2])
	if err != nil {
		return nil, err
	}
	return build(n, a, b, c), nil
}

func (d *decoder) instruction(v cue.Value) (playlist.Instruction, error) {
	kind, err := d.str(v, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Wait":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		return playlist.Wait{DurationSamples: dur}, nil

	case "RealPulse":
		return d.realPulse(v)

	case "IQPulse":
		return d.iqPulse(v)

	case "VirtualRZ":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		inc, err := d.num(v, "phase_increment")
		if err != nil {
			return nil, err
		}
		return playlist.VirtualRZ{DurationSamples: dur, PhaseIncrement: inc}, nil

	case "MultiplexedRealPulse":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		in := playlist.MultiplexedRealPulse{DurationSamples: dur}
		err = d.list(v, "entries", func(el cue.Value) error {
			offset, err := d.int(el, "offset")
			if err != nil {
				return err
			}
			entry := playlist.RealEntry{OffsetSamples: offset}
			if pv := el.LookupPath(cue.ParsePath("pulse")); pv.Exists() {
				pulse, err := d.realPulse(pv)
				if err != nil {
					return err
				}
				entry.Pulse = &pulse
			} else {
				ref, err := d.int(el, "ref")
				if err != nil {
					return err
				}
				r := playlist.InstructionRef(ref)
				entry.Ref = &r
			}
			in.Entries = append(in.Entries, entry)
			return nil
		})
		return in, err

	case "MultiplexedIQPulse":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		in := playlist.MultiplexedIQPulse{DurationSamples: dur}
		err = d.list(v, "entries", func(el cue.Value) error {
			offset, err := d.int(el, "offset")
			if err != nil {
				return err
			}
			entry := playlist.IQEntry{OffsetSamples: offset}
			if pv := el.LookupPath(cue.ParsePath("pulse")); pv.Exists() {
				pulse, err := d.iqPulse(pv)
				if err != nil {
					return err
				}
				entry.Pulse = &pulse
			} else {
				ref, err := d.int(el, "ref")
				if err != nil {
					return err
				}
				r := playlist.InstructionRef(ref)
				entry.Ref = &r
			}
			in.Entries = append(in.Entries, entry)
			return nil
		})
		return in, err

	case "ConditionalInstruction":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		condition, err := d.str(v, "condition")
		if err != nil {
			return nil, err
		}
		ifTrue, err := d.int(v, "if_true")
		if err != nil {
			return nil, err
		}
		ifFalse, err := d.int(v, "if_false")
		if err != nil {
			return nil, err
		}
		return playlist.ConditionalInstruction{
			DurationSamples: dur,
			Condition:       condition,
			IfTrue:          playlist.InstructionRef(ifTrue),
			IfFalse:         playlist.InstructionRef(ifFalse),
		}, nil

	case "ReadoutTrigger":
		dur, err := d.int(v, "duration")
		if err != nil {
			return nil, err
		}
		probe, err := d.int(v, "probe")
		if err != nil {
			return nil, err
		}
		in := playlist.ReadoutTrigger{
			DurationSamples: dur,
			ProbePulse:      playlist.InstructionRef(probe),
		}
		err = d.list(v, "acquisitions", func(el cue.Value) error {
			ref, err := el.Int64()
			if err != nil {
				return d.fail(el, CodeDecode, "acquisition reference: %v", err)
			}
			in.Acquisitions = append(in.Acquisitions, playlist.AcquisitionRef(ref))
			return nil
		})
		return in, err

	default:
		return nil, d.fail(v, CodeDecode, "unknown instruction kind %q", kind)
	}
}

func (d *decoder) realPulse(v cue.Value) (playlist.RealPulse, error) {
	in := playlist.RealPulse{}
	var err error
	if in.DurationSamples, err = d.int(v, "duration"); err != nil {
		return in, err
	}
	wf, err := d.int(v, "waveform")
	if err != nil {
		return in, err
	}
	in.Waveform = playlist.WaveformRef(wf)
	if in.Scale, err = d.num(v, "scale"); err != nil {
		return in, err
	}
	return in, nil
}

func (d *decoder) iqPulse(v cue.Value) (playlist.IQPulse, error) {
	in := playlist.IQPulse{}
	var err error
	if in.DurationSamples, err = d.int(v, "duration"); err != nil {
		return in, err
	}
	wi, err := d.int(v, "waveform_i")
	if err != nil {
		return in, err
	}
	wq, err := d.int(v, "waveform_q")
	if err != nil {
		return in, err
	}
	in.WaveformI = playlist.WaveformRef(wi)
	in.WaveformQ = playlist.WaveformRef(wq)
	if in.ScaleI, err = d.num(v, "scale_i"); err != nil {
		return in, err
	}
	if in.ScaleQ, err = d.num(v, "scale_q"); err != nil {
		return in, err
	}
	if in.Phase, err = d.num(v, "phase"); err != nil {
		return in, err
	}
	if in.ModulationFrequency, err = d.num(v, "modulation_frequency"); err != nil {
		return in, err
	}
	if in.PhaseIncrement, err = d.num(v, "phase_increment"); err != nil {
		return in, err
	}
	return in, nil
}

func (d *decoder) acquisition(v cue.Value) (playlist.Acquisition, error) {
	acq := playlist.Acquisition{}
	var err error
	if acq.Label, err = d.str(v, "label"); err != nil {
		return acq, err
	}
	if acq.DelaySamples, err = d.int(v, "delay"); err != nil {
		return acq, err
	}

	mv := v.LookupPath(cue.ParsePath("method"))
	kind, err := d.str(mv, "kind")
	if err != nil {
		return acq, err
	}
	switch kind {
	case "TimeTrace":
		dur, err := d.int(mv, "duration")
		if err != nil {
			return acq, err
		}
		acq.Method = playlist.TimeTrace{DurationSamples: dur}
	case "ComplexIntegration":
		weights, err := d.iqPulse(mv.LookupPath(cue.ParsePath("weights")))
		if err != nil {
			return acq, err
		}
		acq.Method = playlist.ComplexIntegration{Weights: weights}
	case "ThresholdStateDiscrimination":
		m := playlist.ThresholdStateDiscrimination{}
		if m.Weights, err = d.iqPulse(mv.LookupPath(cue.ParsePath("weights"))); err != nil {
			return acq, err
		}
		if m.Threshold, err = d.num(mv, "threshold"); err != nil {
			return acq, err
		}
		if m.FeedbackSignalLabel, err = d.str(mv, "feedback_label"); err != nil {
			return acq, err
		}
		acq.Method = m
	default:
		return acq, d.fail(mv, CodeDecode, "unknown acquisition method kind %q", kind)
	}
	return acq, nil
}

func (d *decoder) schedule(v cue.Value) (map[string][]playlist.InstructionRef, error) {
	segments := make(map[string][]playlist.InstructionRef)
	sv := v.LookupPath(cue.ParsePath("segments"))
	if !sv.Exists() {
		return segments, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, d.fail(sv, CodeDecode, "iterating segments: %v", err)
	}
	for iter.Next() {
		name := iter.Label()
		var refs []playlist.InstructionRef
		list, err := iter.Value().List()
		if err != nil {
			return nil, d.fail(iter.Value(), CodeDecode, "segment %q: %v", name, err)
		}
		for list.Next() {
			ref, err := list.Value().Int64()
			if err != nil {
				return nil, d.fail(list.Value(), CodeDecode, "segment %q reference: %v", name, err)
			}
			refs = append(refs, playlist.InstructionRef(ref))
		}
		segments[name] = refs
	}
	return segments, nil
}

// Field accessors. The schema makes these fields present and typed;
// errors mean the document bypassed unification.

func (d *decoder) str(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	s, err := fv.String()
	if err != nil {
		return "", d.fail(v, CodeDecode, "field %q: %v", name, err)
	}
	return s, nil
}

func (d *decoder) int(v cue.Value, name string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	n, err := fv.Int64()
	if err != nil {
		return 0, d.fail(v, CodeDecode, "field %q: %v", name, err)
	}
	return n, nil
}

func (d *decoder) count(v cue.Value, name string) (int, error) {
	n, err := d.int(v, name)
	return int(n), err
}

func (d *decoder) num(v cue.Value, name string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	f, err := fv.Float64()
	if err != nil {
		return 0, d.fail(v, CodeDecode, "field %q: %v", name, err)
	}
	return f, nil
}

func (d *decoder) list(v cue.Value, name string, each func(cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(name))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return d.fail(lv, CodeDecode, "field %q: %v", name, err)
	}
	for iter.Next() {
		if err := each(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}
