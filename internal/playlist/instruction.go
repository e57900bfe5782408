package playlist

// Instruction is a sealed interface over executable channel operations.
// Only the types in this file implement it.
//
// Every variant carries DurationSamples, the playback window in units of
// the owning channel's sample period. Durations are non-negative; the
// validator rejects negative values.
type Instruction interface {
	instruction() // Sealed - only these types implement it

	// Duration returns the instruction's playback window in samples.
	Duration() int64
}

// Wait outputs silence for its duration.
type Wait struct {
	DurationSamples int64
}

func (Wait) instruction() {}

// Duration returns the playback window in samples.
func (in Wait) Duration() int64 { return in.DurationSamples }

// RealPulse plays one waveform scaled by Scale on a real channel.
// The waveform is truncated or zero-padded to DurationSamples.
type RealPulse struct {
	DurationSamples int64
	Waveform        WaveformRef
	Scale           float64
}

func (RealPulse) instruction() {}

// Duration returns the playback window in samples.
func (in RealPulse) Duration() int64 { return in.DurationSamples }

// IQPulse plays an I/Q waveform pair on an IQ or readout channel.
//
// The complex envelope is scale_i*I(t) + i*scale_q*Q(t), rotated by
// Phase plus the channel's accumulated phase, and modulated at
// ModulationFrequency (cycles per sample period, i.e. a fraction of the
// channel sample rate). PhaseIncrement is added to the channel's phase
// accumulator after playback. I and Q waveform lengths are independent;
// each is truncated or zero-padded to DurationSamples.
type IQPulse struct {
	DurationSamples     int64
	WaveformI           WaveformRef
	WaveformQ           WaveformRef
	ScaleI              float64
	ScaleQ              float64
	Phase               float64
	ModulationFrequency float64
	PhaseIncrement      float64
}

func (IQPulse) instruction() {}

// Duration returns the playback window in samples.
func (in IQPulse) Duration() int64 { return in.DurationSamples }

// VirtualRZ advances the channel's phase accumulator by PhaseIncrement
// without emitting samples beyond its (usually zero) duration of silence.
type VirtualRZ struct {
	DurationSamples int64
	PhaseIncrement  float64
}

func (VirtualRZ) instruction() {}

// Duration returns the playback window in samples.
func (in VirtualRZ) Duration() int64 { return in.DurationSamples }

// RealEntry is one component of a MultiplexedRealPulse: either an inline
// pulse or a reference to a RealPulse in the same instruction table,
// never both. OffsetSamples shifts the component relative to the start
// of the multiplexed instruction and may be negative.
type RealEntry struct {
	OffsetSamples int64
	Pulse         *RealPulse
	Ref           *InstructionRef
}

// MultiplexedRealPulse superposes several real components at independent
// signed offsets inside one output window. Overlapping samples sum;
// samples outside [0, DurationSamples) are dropped.
type MultiplexedRealPulse struct {
	DurationSamples int64
	Entries         []RealEntry
}

func (MultiplexedRealPulse) instruction() {}

// Duration returns the playback window in samples.
func (in MultiplexedRealPulse) Duration() int64 { return in.DurationSamples }

// IQEntry is one component of a MultiplexedIQPulse: either an inline
// pulse or a reference to an IQPulse in the same instruction table,
// never both.
type IQEntry struct {
	OffsetSamples int64
	Pulse         *IQPulse
	Ref           *InstructionRef
}

// MultiplexedIQPulse superposes several IQ components at independent
// signed offsets inside one output window, with the same truncation and
// summing rules as MultiplexedRealPulse.
type MultiplexedIQPulse struct {
	DurationSamples int64
	Entries         []IQEntry
}

func (MultiplexedIQPulse) instruction() {}

// Duration returns the playback window in samples.
func (in MultiplexedIQPulse) Duration() int64 { return in.DurationSamples }

// ConditionalInstruction selects between two instruction references at
// execution time based on a feedback signal.
//
// Condition is an opaque label matched against the feedback signal
// labels declared by ThresholdStateDiscrimination acquisitions anywhere
// in the playlist. The chosen branch renders into this instruction's own
// window, truncated or zero-padded to DurationSamples, so schedule
// timing never depends on which branch runs. Branches may themselves be
// conditional; reference cycles are rejected.
type ConditionalInstruction struct {
	DurationSamples int64
	Condition       string
	IfTrue          InstructionRef
	IfFalse         InstructionRef
}

func (ConditionalInstruction) instruction() {}

// Duration returns the playback window in samples.
func (in ConditionalInstruction) Duration() int64 { return in.DurationSamples }

// ReadoutTrigger plays a probe pulse and captures the acquisitions it
// references. ProbePulse must name a pulse instruction in the same
// table; Acquisitions index the owning descriptor's acquisition table.
type ReadoutTrigger struct {
	DurationSamples int64
	ProbePulse      InstructionRef
	Acquisitions    []AcquisitionRef
}

func (ReadoutTrigger) instruction() {}

// Duration returns the playback window in samples.
func (in ReadoutTrigger) Duration() int64 { return in.DurationSamples }

// InstructionKind returns the stable kind name of an instruction
// variant. Used in diagnostics, trace events, and the authoring format.
func InstructionKind(in Instruction) string {
	switch in.(type) {
	case Wait:
		return "Wait"
	case RealPulse:
		return "RealPulse"
	case IQPulse:
		return "IQPulse"
	case VirtualRZ:
		return "VirtualRZ"
	case MultiplexedRealPulse:
		return "MultiplexedRealPulse"
	case MultiplexedIQPulse:
		return "MultiplexedIQPulse"
	case ConditionalInstruction:
		return "ConditionalInstruction"
	case ReadoutTrigger:
		return "ReadoutTrigger"
	default:
		return "unknown"
	}
}
