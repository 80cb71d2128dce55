package schedule

import "sync/atomic"

// Holder publishes the current schedule to concurrent readers. A reload swaps
// the snapshot atomically; in-flight lookups keep the snapshot they loaded.
type Holder struct {
	p atomic.Pointer[Schedule]
}

// NewHolder returns a holder publishing s.
func NewHolder(s *Schedule) *Holder {
	h := &Holder{}
	h.p.Store(s)
	return h
}

// Load returns the current snapshot, or nil if none was published.
func (h *Holder) Load() *Schedule { return h.p.Load() }

// Swap publishes s and returns the previous snapshot.
func (h *Holder) Swap(s *Schedule) *Schedule { return h.p.Swap(s) }
