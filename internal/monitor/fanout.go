package monitor

import (
	"context"

	"github.com/rileyhilliard/procmon/internal/logger"
)

// fanout couples a consumer registry with its callback queue. Both monitors
// embed one, which gives them Register, Unregister, Drain and Pending.
type fanout[T any] struct {
	registry *Registry[T]
	queue    *CallbackQueue[T]
	clone    func(T) T
}

func newFanout[T any](clone func(T) T, log logger.Logger) fanout[T] {
	registry := NewRegistry[T]()
	return fanout[T]{
		registry: registry,
		queue:    NewCallbackQueue(registry, log),
		clone:    clone,
	}
}

// Register adds a consumer. Registering the same handle twice is a no-op that
// returns false.
func (f *fanout[T]) Register(c *Consumer[T]) bool {
	return f.registry.Register(c)
}

// Unregister removes a consumer and discards anything already queued for it.
// It returns false if the consumer was not registered.
func (f *fanout[T]) Unregister(c *Consumer[T]) bool {
	ok := f.registry.Unregister(c)
	f.queue.Discard(c)
	return ok
}

// Drain delivers queued updates. Call it only from the UI goroutine.
func (f *fanout[T]) Drain() int {
	return f.queue.Drain()
}

// Pending returns the number of queued updates.
func (f *fanout[T]) Pending() int {
	return f.queue.Len()
}

// publish queues a private copy of v for every registered consumer. Nothing
// is queued once ctx is cancelled, so a loop that outlived Stop stays silent.
func (f *fanout[T]) publish(ctx context.Context, v T) {
	for _, c := range f.registry.Consumers() {
		if ctx.Err() != nil {
			return
		}
		f.queue.Enqueue(c, f.clone(v))
	}
}
