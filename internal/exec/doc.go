// Package exec executes validated playlists offline, synthesizing the
// per-channel sample streams a controller rack would emit and capturing
// acquisition results.
//
// Execution walks Schedules in order. Within a schedule every channel
// runs concurrently and independently; the only synchronization point
// is the barrier at the schedule's end, where early channels are
// zero-padded to the schedule duration (the max over channels), staged
// discrimination results commit to their feedback latches, and trace
// events merge in sorted channel order. The result is deterministic:
// equal playlists produce equal streams, results, and traces, whatever
// the goroutine interleaving.
//
// The executor never repairs or reinterprets a playlist. Execute
// validates first and refuses violating playlists outright; rendering
// assumes the validated invariants and treats a reference that fails to
// resolve mid-run as a programming error surfaced via ReferenceError.
package exec
