package monitor

import (
	"fmt"
	"sync"

	"github.com/rileyhilliard/procmon/internal/logger"
)

type pending[T any] struct {
	consumer *Consumer[T]
	payload  T
}

// CallbackQueue hands payloads from a poller goroutine to the UI goroutine.
//
// Enqueue may be called from any goroutine. Drain must only be called from the
// goroutine that owns UI state. Items are delivered first in, first out, and
// each item at most once.
type CallbackQueue[T any] struct {
	mu       sync.Mutex
	items    []pending[T]
	registry *Registry[T]
	log      logger.Logger
}

// NewCallbackQueue creates a queue. When registry is non-nil, items whose
// consumer is no longer registered at drain time are dropped.
func NewCallbackQueue[T any](registry *Registry[T], log logger.Logger) *CallbackQueue[T] {
	if log == nil {
		log = logger.Noop()
	}
	return &CallbackQueue[T]{registry: registry, log: log}
}

// Enqueue schedules payload for delivery to c on the next Drain.
func (q *CallbackQueue[T]) Enqueue(c *Consumer[T], payload T) {
	if c == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, pending[T]{consumer: c, payload: payload})
	q.mu.Unlock()
}

// Discard removes every queued item addressed to c.
func (q *CallbackQueue[T]) Discard(c *Consumer[T]) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if it.consumer == c {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	// Clear the tail so dropped payloads can be collected.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = pending[T]{}
	}
	q.items = kept
	return removed
}

// Len returns the number of queued items.
func (q *CallbackQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain delivers the items queued at the time of the call and returns how many
// consumers were invoked. Items enqueued while draining wait for the next
// call. A consumer that returns an error or panics is logged and the
// remaining items are still delivered.
func (q *CallbackQueue[T]) Drain() int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	delivered := 0
	for _, it := range items {
		if q.registry != nil && !q.registry.Has(it.consumer) {
			q.log.Debug("dropping update for unregistered consumer %s", it.consumer.name)
			continue
		}
		delivered++
		if err := invoke(it); err != nil {
			q.log.Warn("consumer %s failed: %v", it.consumer.name, err)
		}
	}
	return delivered
}

func invoke[T any](it pending[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if it.consumer.fn == nil {
		return nil
	}
	return it.consumer.fn(it.payload)
}
