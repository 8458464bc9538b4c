package monitor

import (
	"sync"
	"time"
)

// RateCounter turns a monotonically increasing counter into a per-second rate.
// The zero value is ready to use.
type RateCounter struct {
	mu     sync.Mutex
	prev   uint64
	prevAt time.Time
	primed bool
}

// Observe records a counter reading and returns the rate since the previous
// one. ok is false when no meaningful rate exists: on the first reading after
// construction or Reset, when the counter went backwards, or when no time
// elapsed. In those cases rate is 0.
//
// The reading always becomes the new baseline, even when ok is false.
func (r *RateCounter) Observe(value uint64, at time.Time) (rate float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, prevAt, primed := r.prev, r.prevAt, r.primed
	r.prev, r.prevAt, r.primed = value, at, true

	if !primed {
		return 0, false
	}
	elapsed := at.Sub(prevAt).Seconds()
	if elapsed <= 0 || value < prev {
		return 0, false
	}
	return float64(value-prev) / elapsed, true
}

// Reset forgets the baseline so the next Observe starts fresh.
func (r *RateCounter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prev, r.prevAt, r.primed = 0, time.Time{}, false
}
