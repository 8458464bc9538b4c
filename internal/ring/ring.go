// Package ring provides a fixed-capacity, concurrency-safe ring buffer used
// for metric history and the dashboard log panel.
package ring

import (
	"fmt"
	"sync"
)

// DefaultCapacity is the default number of samples retained per metric.
const DefaultCapacity = 60

// Ring is a fixed-size circular buffer. When full, a push evicts the oldest
// value. All methods are safe for concurrent use; Snapshot never observes a
// partially applied Push.
type Ring[T any] struct {
	mu    sync.RWMutex
	data  []T
	head  int
	count int
}

// New creates a ring buffer with the given capacity.
// A capacity below 1 is a programming error and panics.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic(fmt.Sprintf("ring: capacity must be at least 1, got %d", capacity))
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push adds a value, overwriting the oldest one when the buffer is full.
func (r *Ring[T]) Push(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[r.head] = value
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Snapshot returns all stored values in chronological order (oldest first).
// The returned slice is a copy and may be modified freely.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLocked(r.count)
}

// Last returns up to count of the most recent values, oldest first.
// Returns nil when count <= 0 or the buffer is empty.
func (r *Ring[T]) Last(count int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLocked(count)
}

// Latest returns the most recently pushed value and whether one exists.
func (r *Ring[T]) Latest() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.head - 1 + len(r.data)) % len(r.data)
	return r.data[idx], true
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Reset discards all stored values. Capacity is unchanged.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.count = 0
}

// lastLocked must be called with r.mu held.
func (r *Ring[T]) lastLocked(count int) []T {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	size := len(r.data)
	result := make([]T, count)

	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + size) % size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%size]
	}
	return result
}
