// Package playlist defines the pulse-level instruction playlist IR: the
// contract between a circuit-to-pulse compiler and the per-channel
// controllers that execute compiled programs in lock-step.
//
// A Playlist maps channel names to channel descriptors and carries an
// ordered sequence of Schedules. Each descriptor owns three zero-based,
// dense index tables:
//   - Waveforms: parametric or sampled envelopes, addressed by index
//   - Instructions: executable operations (pulses, waits, rotations,
//     triggers, conditionals), addressed by index
//   - Acquisitions: readout strategies, addressed by index
//
// All references are plain integer indices scoped to the owning
// descriptor. There are no cross-channel references and no pointers, so
// the storage layer is acyclic by construction; logical cycles through
// instruction-to-instruction references are rejected by the validator.
//
// # Sealed Interfaces
//
// Waveform, Instruction, AcquisitionMethod, and ChannelConfig are sealed
// interfaces using the marker method pattern. Only types in this package
// implement them, which keeps every consumer (validator, executor, wire
// codec) an exhaustive type switch: adding a variant is a compile-time,
// all-sites change.
//
// # Immutability
//
// Playlists are constructed once, by a compiler collaborator or by
// Builder, and never mutated afterwards. Revisions are new Playlist
// values. Validation and per-channel execution are therefore safe to run
// concurrently without locks.
package playlist
