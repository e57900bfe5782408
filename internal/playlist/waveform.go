package playlist

// Waveform is a sealed interface over waveform kinds.
// Only the types in this file implement it.
//
// Every kind declares a sample count via Samples(). For SampleList the
// count is the payload length; parametric kinds carry an explicit count.
// The declared count is the length the renderer produces; an instruction
// referencing the waveform may still truncate or pad during playback.
type Waveform interface {
	waveform() // Sealed - only these types implement it

	// Samples returns the declared sample count.
	Samples() int
}

// SampleList is an explicit list of samples.
type SampleList struct {
	Data []float64
}

func (SampleList) waveform() {}

// Samples returns the payload length.
func (w SampleList) Samples() int { return len(w.Data) }

// Gaussian is a Gaussian envelope.
// Sigma and Center are in samples; Center is relative to sample 0.
type Gaussian struct {
	NSamples int
	Sigma    float64
	Center   float64
}

func (Gaussian) waveform() {}

// Samples returns the declared sample count.
func (w Gaussian) Samples() int { return w.NSamples }

// GaussianDerivative is the first derivative of a Gaussian envelope.
type GaussianDerivative struct {
	NSamples int
	Sigma    float64
	Center   float64
}

func (GaussianDerivative) waveform() {}

// Samples returns the declared sample count.
func (w GaussianDerivative) Samples() int { return w.NSamples }

// Constant is a flat envelope of fixed amplitude.
type Constant struct {
	NSamples  int
	Amplitude float64
}

func (Constant) waveform() {}

// Samples returns the declared sample count.
func (w Constant) Samples() int { return w.NSamples }

// GaussianSmoothedSquare is a square envelope convolved with a Gaussian.
// SquareWidth is the width of the flat top, in samples.
type GaussianSmoothedSquare struct {
	NSamples      int
	SquareWidth   float64
	GaussianSigma float64
	Center        float64
}

func (GaussianSmoothedSquare) waveform() {}

// Samples returns the declared sample count.
func (w GaussianSmoothedSquare) Samples() int { return w.NSamples }

// TruncatedGaussian is a Gaussian envelope truncated to FullWidth samples
// and shifted so the truncation points sit at zero.
type TruncatedGaussian struct {
	NSamples  int
	FullWidth float64
	Center    float64
	Sigma     float64
}

func (TruncatedGaussian) waveform() {}

// Samples returns the declared sample count.
func (w TruncatedGaussian) Samples() int { return w.NSamples }

// TruncatedGaussianDerivative is the derivative of TruncatedGaussian.
type TruncatedGaussianDerivative struct {
	NSamples  int
	FullWidth float64
	Center    float64
	Sigma     float64
}

func (TruncatedGaussianDerivative) waveform() {}

// Samples returns the declared sample count.
func (w TruncatedGaussianDerivative) Samples() int { return w.NSamples }

// TruncatedGaussianSmoothedSquare is a square envelope with Gaussian
// smoothed rise and fall, truncated to FullWidth samples.
type TruncatedGaussianSmoothedSquare struct {
	NSamples  int
	FullWidth float64
	RiseTime  float64
	Center    float64
}

func (TruncatedGaussianSmoothedSquare) waveform() {}

// Samples returns the declared sample count.
func (w TruncatedGaussianSmoothedSquare) Samples() int { return w.NSamples }

// CosineRiseFall is a square envelope with raised-cosine rise and fall
// flanks of RiseTime samples each.
type CosineRiseFall struct {
	NSamples  int
	FullWidth float64
	RiseTime  float64
	Center    float64
}

func (CosineRiseFall) waveform() {}

// Samples returns the declared sample count.
func (w CosineRiseFall) Samples() int { return w.NSamples }

// WaveformKind returns the stable kind name of a waveform variant.
// Used in diagnostics and in the authoring format's kind discriminator.
func WaveformKind(w Waveform) string {
	switch w.(type) {
	case SampleList:
		return "SampleList"
	case Gaussian:
		return "Gaussian"
	case GaussianDerivative:
		return "GaussianDerivative"
	case Constant:
		return "Constant"
	case GaussianSmoothedSquare:
		return "GaussianSmoothedSquare"
	case TruncatedGaussian:
		return "TruncatedGaussian"
	case TruncatedGaussianDerivative:
		return "TruncatedGaussianDerivative"
	case TruncatedGaussianSmoothedSquare:
		return "TruncatedGaussianSmoothedSquare"
	case CosineRiseFall:
		return "CosineRiseFall"
	default:
		return "unknown"
	}
}
