package obs

import "sync/atomic"

// Sequence hands out monotonically increasing event sequence numbers shared
// by every producer of a run.
type Sequence struct {
	next uint64
}

func NewSequence(seed uint64) *Sequence {
	return &Sequence{next: seed}
}

// Next returns the next sequence number.
func (g *Sequence) Next() uint64 {
	if g == nil {
		return 0
	}
	return atomic.AddUint64(&g.next, 1)
}

// Current returns the last number handed out.
func (g *Sequence) Current() uint64 {
	if g == nil {
		return 0
	}
	return atomic.LoadUint64(&g.next)
}
