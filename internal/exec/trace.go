package exec

// trace accumulates a run's event log. Channel workers buffer their own
// events during a schedule; the executor appends the buffers here at
// the barrier, in sorted channel order, so Seq is assigned
// single-threaded and the log is deterministic.
type trace struct {
	events []TraceEvent
	seq    int64
}

func (t *trace) append(ev TraceEvent) {
	ev.Seq = t.seq
	t.seq++
	t.events = append(t.events, ev)
}
