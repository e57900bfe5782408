package playlist

// ChannelConfig is a sealed interface over channel kinds.
// Only IQConfig, RealConfig, and ReadoutConfig implement it.
//
// The kind determines which instruction variants are legal on the
// channel; the validator enforces the matrix. SampleRate is in samples
// per second and defines the channel's sample period.
type ChannelConfig interface {
	channelConfig() // Sealed - only these types implement it

	// Rate returns the channel sample rate in samples per second.
	Rate() float64
}

// IQConfig marks a drive channel with I/Q upconversion.
type IQConfig struct {
	SampleRate float64
}

func (IQConfig) channelConfig() {}

// Rate returns the sample rate in samples per second.
func (c IQConfig) Rate() float64 { return c.SampleRate }

// RealConfig marks a real-valued (flux or bias) channel.
type RealConfig struct {
	SampleRate float64
}

func (RealConfig) channelConfig() {}

// Rate returns the sample rate in samples per second.
func (c RealConfig) Rate() float64 { return c.SampleRate }

// ReadoutConfig marks a probe/acquisition channel. Readout channels
// accept IQ instructions and are the only channels that may carry
// ReadoutTrigger instructions and a non-empty acquisition table.
type ReadoutConfig struct {
	SampleRate float64
}

func (ReadoutConfig) channelConfig() {}

// Rate returns the sample rate in samples per second.
func (c ReadoutConfig) Rate() float64 { return c.SampleRate }

// ConfigKind returns the stable kind name of a channel configuration.
func ConfigKind(c ChannelConfig) string {
	switch c.(type) {
	case IQConfig:
		return "IQ"
	case RealConfig:
		return "Real"
	case ReadoutConfig:
		return "Readout"
	default:
		return "unknown"
	}
}

// ChannelDescriptor binds one physical channel to its controller, its
// kind configuration, and its three index tables. Descriptors are
// immutable once placed in a Playlist.
type ChannelDescriptor struct {
	ControllerName string
	Config         ChannelConfig
	Instructions   []Instruction
	Waveforms      []Waveform
	Acquisitions   []Acquisition
}

// Instruction resolves an instruction-table reference.
// The boolean is false when the index is out of range.
func (d *ChannelDescriptor) Instruction(ref InstructionRef) (Instruction, bool) {
	if ref < 0 || int(ref) >= len(d.Instructions) {
		return nil, false
	}
	return d.Instructions[ref], true
}

// Waveform resolves a waveform-table reference.
// The boolean is false when the index is out of range.
func (d *ChannelDescriptor) Waveform(ref WaveformRef) (Waveform, bool) {
	if ref < 0 || int(ref) >= len(d.Waveforms) {
		return nil, false
	}
	return d.Waveforms[ref], true
}

// Acquisition resolves an acquisition-table reference.
// The boolean is false when the index is out of range.
func (d *ChannelDescriptor) Acquisition(ref AcquisitionRef) (Acquisition, bool) {
	if ref < 0 || int(ref) >= len(d.Acquisitions) {
		return Acquisition{}, false
	}
	return d.Acquisitions[ref], true
}
