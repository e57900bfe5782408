package exec

import "sort"

// stagedLatch is one discrimination result awaiting the schedule
// barrier: the producing channel, the acquisition table index that
// produced it, the feedback label, and the measured state.
type stagedLatch struct {
	channel string
	acq     int
	label   string
	value   bool
}

// latchBoard holds the committed boolean latch per feedback label.
// Latches start false. During a schedule the board is read-only;
// staged results commit at the barrier.
type latchBoard struct {
	values map[string]bool
}

func newLatchBoard() *latchBoard {
	return &latchBoard{values: make(map[string]bool)}
}

// value reads a committed latch. Labels never measured read false.
func (b *latchBoard) value(label string) bool { return b.values[label] }

// commit applies staged results ordered by (channel, acquisition
// index), preserving per-channel staging order for repeated firings, so
// commits are deterministic even though channels stage in parallel. It
// returns the staged slice in commit order for the event log.
func (b *latchBoard) commit(staged []stagedLatch) []stagedLatch {
	sort.SliceStable(staged, func(i, j int) bool {
		if staged[i].channel != staged[j].channel {
			return staged[i].channel < staged[j].channel
		}
		return staged[i].acq < staged[j].acq
	})
	for _, s := range staged {
		b.values[s.label] = s.value
	}
	return staged
}
