package playlist

// AcquisitionMethod is a sealed interface over readout strategies.
// Only the types in this file implement it.
type AcquisitionMethod interface {
	acquisitionMethod() // Sealed - only these types implement it
}

// TimeTrace captures the raw probe signal for DurationSamples.
type TimeTrace struct {
	DurationSamples int64
}

func (TimeTrace) acquisitionMethod() {}

// ComplexIntegration integrates the probe signal against a weight
// envelope, producing one complex number per firing.
type ComplexIntegration struct {
	Weights IQPulse
}

func (ComplexIntegration) acquisitionMethod() {}

// ThresholdStateDiscrimination integrates like ComplexIntegration and
// compares the real part against Threshold, producing a boolean state.
//
// When FeedbackSignalLabel is non-empty the boolean is also published
// under that label for ConditionalInstruction consumers, possibly on
// other channels. Non-empty labels must be unique across the whole
// playlist.
type ThresholdStateDiscrimination struct {
	Weights             IQPulse
	Threshold           float64
	FeedbackSignalLabel string
}

func (ThresholdStateDiscrimination) acquisitionMethod() {}

// Acquisition is one acquisition-table entry: a readout strategy plus
// the result label it reports under and its delay from the triggering
// event.
//
// Label keys the entry's results in the run output. DelaySamples offsets
// the capture window from the start of the triggering ReadoutTrigger.
type Acquisition struct {
	Label        string
	DelaySamples int64
	Method       AcquisitionMethod
}

// MethodKind returns the stable kind name of an acquisition method.
func MethodKind(m AcquisitionMethod) string {
	switch m.(type) {
	case TimeTrace:
		return "TimeTrace"
	case ComplexIntegration:
		return "ComplexIntegration"
	case ThresholdStateDiscrimination:
		return "ThresholdStateDiscrimination"
	default:
		return "unknown"
	}
}
