package exec

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/validate"
)

// renderWaveform evaluates one waveform kind on its declared sample
// grid t = 0..n-1. Shape parameters are in sample units; Center is the
// envelope midpoint relative to sample 0.
func renderWaveform(w playlist.Waveform) []float64 {
	n := w.Samples()
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	switch w := w.(type) {
	case playlist.SampleList:
		copy(out, w.Data)
	case playlist.Constant:
		for i := range out {
			out[i] = w.Amplitude
		}
	case playlist.Gaussian:
		for i := range out {
			out[i] = gauss(float64(i)-w.Center, w.Sigma)
		}
	case playlist.GaussianDerivative:
		for i := range out {
			t := float64(i) - w.Center
			out[i] = -t / (w.Sigma * w.Sigma) * gauss(t, w.Sigma)
		}
	case playlist.GaussianSmoothedSquare:
		for i := range out {
			out[i] = smoothedSquare(float64(i)-w.Center, w.SquareWidth, w.GaussianSigma)
		}
	case playlist.TruncatedGaussian:
		// Shifted so the truncation points sit at zero, renormalized to
		// peak 1 at the center.
		edge := gauss(w.FullWidth/2, w.Sigma)
		for i := range out {
			t := float64(i) - w.Center
			if math.Abs(t) > w.FullWidth/2 {
				continue
			}
			out[i] = (gauss(t, w.Sigma) - edge) / (1 - edge)
		}
	case playlist.TruncatedGaussianDerivative:
		edge := gauss(w.FullWidth/2, w.Sigma)
		for i := range out {
			t := float64(i) - w.Center
			if math.Abs(t) > w.FullWidth/2 {
				continue
			}
			out[i] = -t / (w.Sigma * w.Sigma) * gauss(t, w.Sigma) / (1 - edge)
		}
	case playlist.TruncatedGaussianSmoothedSquare:
		// Plateau of FullWidth - 2*RiseTime with erf-smoothed edges of
		// sigma RiseTime/2, truncated to FullWidth and normalized to 1
		// at the center.
		sigma := w.RiseTime / 2
		plateau := w.FullWidth - 2*w.RiseTime
		peak := smoothedSquare(0, plateau, sigma)
		for i := range out {
			t := float64(i) - w.Center
			if math.Abs(t) > w.FullWidth/2 || peak == 0 {
				continue
			}
			out[i] = smoothedSquare(t, plateau, sigma) / peak
		}
	case playlist.CosineRiseFall:
		for i := range out {
			out[i] = cosineFlank(float64(i)-w.Center, w.FullWidth, w.RiseTime)
		}
	}
	return out
}

func gauss(t, sigma float64) float64 {
	u := t / sigma
	return math.Exp(-0.5 * u * u)
}

// smoothedSquare is a unit plateau of the given width with
// Gaussian-blurred edges: the convolution of a square with a Gaussian,
// expressed through erf.
func smoothedSquare(t, width, sigma float64) float64 {
	return 0.5 * (math.Erf((t+width/2)/(math.Sqrt2*sigma)) -
		math.Erf((t-width/2)/(math.Sqrt2*sigma)))
}

// cosineFlank is a flat top with raised-cosine rise and fall flanks of
// riseTime samples each, zero outside fullWidth.
func cosineFlank(t, fullWidth, riseTime float64) float64 {
	half := fullWidth / 2
	a := math.Abs(t)
	switch {
	case a > half:
		return 0
	case a <= half-riseTime:
		return 1
	default:
		u := (half - a) / riseTime
		return 0.5 * (1 - math.Cos(math.Pi*u))
	}
}

// renderReal renders a RealPulse: scale times the waveform envelope on
// the real axis, truncated or zero-padded to the instruction window.
func renderReal(channel string, d *playlist.ChannelDescriptor, in playlist.RealPulse) ([]complex128, error) {
	w, ok := d.Waveform(in.Waveform)
	if !ok {
		return nil, danglingRef(channel, "waveform reference %d", in.Waveform)
	}
	env := renderWaveform(w)
	out := make([]complex128, in.DurationSamples)
	limit := len(out)
	if len(env) < limit {
		limit = len(env)
	}
	for i := 0; i < limit; i++ {
		out[i] = complex(in.Scale*env[i], 0)
	}
	return out, nil
}

// renderIQ renders an IQPulse with the channel's current accumulated
// phase: (scaleI*I(t) + i*scaleQ*Q(t)) rotated by
// exp(i*(phase + accumulated + 2*pi*modulation*t)), with t the sample
// index inside the window and modulation in cycles per sample period.
// The pulse's own phase increment is the caller's concern; rendering
// never mutates channel state.
func renderIQ(channel string, d *playlist.ChannelDescriptor, in playlist.IQPulse, accumulated float64) ([]complex128, error) {
	wi, ok := d.Waveform(in.WaveformI)
	if !ok {
		return nil, danglingRef(channel, "waveform reference %d", in.WaveformI)
	}
	wq, ok := d.Waveform(in.WaveformQ)
	if !ok {
		return nil, danglingRef(channel, "waveform reference %d", in.WaveformQ)
	}
	envI := renderWaveform(wi)
	envQ := renderWaveform(wq)

	out := make([]complex128, in.DurationSamples)
	for i := range out {
		var re, im float64
		if i < len(envI) {
			re = in.ScaleI * envI[i]
		}
		if i < len(envQ) {
			im = in.ScaleQ * envQ[i]
		}
		if re == 0 && im == 0 {
			continue
		}
		angle := in.Phase + accumulated + 2*math.Pi*in.ModulationFrequency*float64(i)
		out[i] = complex(re, im) * cmplx.Exp(complex(0, angle))
	}
	return out, nil
}

// renderMultiplexedReal superposes the components of a multiplexed real
// pulse inside the output window [0, duration): each component renders
// as the plain pulse would, shifted by its signed offset; samples
// landing outside the window are dropped, overlaps sum.
func renderMultiplexedReal(channel string, d *playlist.ChannelDescriptor, in playlist.MultiplexedRealPulse) ([]complex128, error) {
	out := make([]complex128, in.DurationSamples)
	for _, entry := range in.Entries {
		pulse := entry.Pulse
		if pulse == nil {
			target, ok := d.Instruction(*entry.Ref)
			if !ok {
				return nil, danglingRef(channel, "instruction reference %d", *entry.Ref)
			}
			rp, ok := target.(playlist.RealPulse)
			if !ok {
				return nil, wrongKind(channel, "multiplex entry references %s, want RealPulse",
					playlist.InstructionKind(target))
			}
			pulse = &rp
		}
		component, err := renderReal(channel, d, *pulse)
		if err != nil {
			return nil, err
		}
		addShifted(out, component, entry.OffsetSamples)
	}
	return out, nil
}

// renderMultiplexedIQ is renderMultiplexedReal for IQ components.
// Component phase increments are not applied: only top-level playback
// advances the channel accumulator.
func renderMultiplexedIQ(channel string, d *playlist.ChannelDescriptor, in playlist.MultiplexedIQPulse, accumulated float64) ([]complex128, error) {
	out := make([]complex128, in.DurationSamples)
	for _, entry := range in.Entries {
		pulse := entry.Pulse
		if pulse == nil {
			target, ok := d.Instruction(*entry.Ref)
			if !ok {
				return nil, danglingRef(channel, "instruction reference %d", *entry.Ref)
			}
			iq, ok := target.(playlist.IQPulse)
			if !ok {
				return nil, wrongKind(channel, "multiplex entry references %s, want IQPulse",
					playlist.InstructionKind(target))
			}
			pulse = &iq
		}
		component, err := renderIQ(channel, d, *pulse, accumulated)
		if err != nil {
			return nil, err
		}
		addShifted(out, component, entry.OffsetSamples)
	}
	return out, nil
}

// addShifted sums src into dst at a signed offset. Samples landing
// outside dst are dropped; there is no wrap and no clamp.
func addShifted(dst, src []complex128, offset int64) {
	for i := 0; i < len(src); i++ {
		pos := int64(i) + offset
		if pos < 0 || pos >= int64(len(dst)) {
			continue
		}
		dst[pos] += src[i]
	}
}

// fitWindow truncates or zero-pads samples to an instruction window.
func fitWindow(samples []complex128, duration int64) []complex128 {
	if int64(len(samples)) == duration {
		return samples
	}
	out := make([]complex128, duration)
	copy(out, samples)
	return out
}

// captureWindow copies [delay, delay+duration) out of a rendered
// window, zero where the capture extends past it.
func captureWindow(window []complex128, delay, duration int64) []complex128 {
	out := make([]complex128, duration)
	for i := range out {
		pos := delay + int64(i)
		if pos < 0 || pos >= int64(len(window)) {
			continue
		}
		out[i] = window[pos]
	}
	return out
}

// integrate computes sum over t of probe(delay+t) * conj(weights(t))
// across the weights' duration. Probe samples past the window read as
// zero.
func integrate(window []complex128, delay int64, weights []complex128) complex128 {
	var sum complex128
	for i := 0; i < len(weights); i++ {
		pos := delay + int64(i)
		if pos < 0 || pos >= int64(len(window)) {
			continue
		}
		sum += window[pos] * cmplx.Conj(weights[i])
	}
	return sum
}

func danglingRef(channel, format string, args ...interface{}) error {
	return &ReferenceError{
		Code:    validate.OutOfRangeReference,
		Channel: channel,
		Detail:  fmt.Sprintf(format, args...),
	}
}

func wrongKind(channel, format string, args ...interface{}) error {
	return &ReferenceError{
		Code:    validate.MismatchedPulseKind,
		Channel: channel,
		Detail:  fmt.Sprintf(format, args...),
	}
}
