// Package wire implements the canonical binary encoding of playlists
// for transmission to remote controllers.
//
// The encoding is length-prefixed and schema-versioned:
//
//	header:   magic "PDK1" | uint32 format version
//	playlist: uint32 channel count | channels (sorted by name) |
//	          uint32 schedule count | schedules
//
// All integers are big-endian fixed width. Strings and lists carry a
// uint32 length prefix. Every Instruction, Waveform, AcquisitionMethod,
// and ChannelConfiguration variant is introduced by a self-describing
// uint32 tag; all references are integer indices.
//
// Channels and schedule segments are written in sorted channel-name
// order, so byte-for-byte-equal logical content encodes to identical
// bytes and Encode/Decode round-trip exactly.
//
// Decoding is all-or-nothing: an unknown variant tag aborts with a
// DecodeError coded UnsupportedVariant, and truncation, trailing
// garbage, a bad magic, or a future format version abort with one coded
// MalformedEncoding. No partial playlist is ever returned.
package wire
