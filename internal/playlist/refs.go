package playlist

// WaveformRef is a zero-based index into the owning descriptor's
// waveform table. Valid only within that descriptor.
type WaveformRef int

// InstructionRef is a zero-based index into the owning descriptor's
// instruction table. Valid only within that descriptor.
type InstructionRef int

// AcquisitionRef is a zero-based index into the owning descriptor's
// acquisition table. Valid only within that descriptor.
type AcquisitionRef int
