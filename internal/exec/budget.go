package exec

// budget tracks rendered samples against an optional cap. Every channel
// renders exactly the barrier duration per schedule, so a schedule's
// cost is known before any goroutine starts and the check never has to
// interrupt one mid-render.
type budget struct {
	limit int64 // 0 or negative means unlimited
	used  int64
}

// charge reserves n more samples. It reports the running total and
// whether the reservation still fits.
func (b *budget) charge(n int64) (int64, bool) {
	b.used += n
	if b.limit > 0 && b.used > b.limit {
		return b.used, false
	}
	return b.used, true
}
