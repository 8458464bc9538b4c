package monitor

import "sync"

// Consumer is a registered callback that receives payloads on the UI
// goroutine. Identity is the handle itself: registering the same handle twice
// is a no-op, and two handles wrapping the same function are distinct.
type Consumer[T any] struct {
	name string
	fn   func(T) error
}

// NewConsumer wraps fn in a consumer handle. name is used in log messages.
func NewConsumer[T any](name string, fn func(T) error) *Consumer[T] {
	return &Consumer[T]{name: name, fn: fn}
}

// Name returns the consumer's display name.
func (c *Consumer[T]) Name() string {
	return c.name
}

// Registry is the set of consumers a monitor publishes to.
type Registry[T any] struct {
	mu      sync.RWMutex
	members map[*Consumer[T]]struct{}
	order   []*Consumer[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{members: make(map[*Consumer[T]]struct{})}
}

// Register adds c. It returns false if c is nil or already registered.
func (r *Registry[T]) Register(c *Consumer[T]) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; ok {
		return false
	}
	r.members[c] = struct{}{}
	r.order = append(r.order, c)
	return true
}

// Unregister removes c. It returns false if c was not registered.
func (r *Registry[T]) Unregister(c *Consumer[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	for i, member := range r.order {
		if member == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether c is currently registered.
func (r *Registry[T]) Has(c *Consumer[T]) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[c]
	return ok
}

// Consumers returns a copy of the registered consumers in registration order.
func (r *Registry[T]) Consumers() []*Consumer[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Consumer[T], len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered consumers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
