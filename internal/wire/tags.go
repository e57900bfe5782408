package wire

// Magic identifies a playlist encoding. The trailing digit is not the
// schema version; that follows as a uint32.
var magic = [4]byte{'P', 'D', 'K', '1'}

// Variant tags. Each sealed union gets its own block so new variants
// extend a block without renumbering the others.
const (
	// Waveform variant tags (0x0100 - 0x01FF)
	sampleListTag                      uint32 = 0x0100
	gaussianTag                        uint32 = 0x0101
	gaussianDerivativeTag              uint32 = 0x0102
	constantTag                        uint32 = 0x0103
	gaussianSmoothedSquareTag          uint32 = 0x0104
	truncatedGaussianTag               uint32 = 0x0105
	truncatedGaussianDerivativeTag     uint32 = 0x0106
	truncatedGaussianSmoothedSquareTag uint32 = 0x0107
	cosineRiseFallTag                  uint32 = 0x0108

	// Instruction variant tags (0x0200 - 0x02FF)
	waitTag                   uint32 = 0x0200
	realPulseTag              uint32 = 0x0201
	iqPulseTag                uint32 = 0x0202
	virtualRZTag              uint32 = 0x0203
	multiplexedRealPulseTag   uint32 = 0x0204
	multiplexedIQPulseTag     uint32 = 0x0205
	conditionalInstructionTag uint32 = 0x0206
	readoutTriggerTag         uint32 = 0x0207

	// AcquisitionMethod variant tags (0x0300 - 0x03FF)
	timeTraceTag                    uint32 = 0x0300
	complexIntegrationTag           uint32 = 0x0301
	thresholdStateDiscriminationTag uint32 = 0x0302

	// ChannelConfiguration variant tags (0x0400 - 0x04FF)
	iqConfigTag      uint32 = 0x0400
	realConfigTag    uint32 = 0x0401
	readoutConfigTag uint32 = 0x0402
)

// Multiplex entry forms: a component is either an inline pulse or a
// reference into the owning instruction table.
const (
	entryInline uint32 = 0
	entryRef    uint32 = 1
)
