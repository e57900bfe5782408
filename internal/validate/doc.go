// Package validate checks playlists against the structural and
// referential contract that the executor assumes: schedules name
// declared channels, every index reference resolves inside its owning
// table, instruction kinds match channel kinds, multiplex and
// conditional reference graphs are acyclic, readout triggers mix
// acquisitions legally, and feedback conditions resolve to exactly one
// label measured in an earlier schedule.
//
// Validation is pure and total. It never repairs a playlist and always
// reports the first violation in a fixed check order, so the same
// playlist yields the same *Violation on every run, sequential or
// concurrent, whatever the channel count. Callers branch on
// Violation.Code and use the remaining fields to point at the exact
// table entry.
package validate
