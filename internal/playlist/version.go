package playlist

// Version constants for the wire schema and the executor.
const (
	// FormatVersion is the wire schema version carried in the encoding
	// header. Decoders reject encodings with a greater version.
	FormatVersion uint32 = 1

	// EngineVersion is the pulsedeck engine version, recorded on runs.
	EngineVersion = "0.1.0"
)
