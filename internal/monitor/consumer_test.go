package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry[int]()
	c := NewConsumer("table", func(int) error { return nil })

	assert.True(t, r.Register(c))
	assert.False(t, r.Register(c), "second register is a no-op")
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Has(c))
}

func TestRegistry_UnregisterAbsentIsSafe(t *testing.T) {
	r := NewRegistry[int]()
	c := NewConsumer("table", func(int) error { return nil })

	assert.False(t, r.Unregister(c))
	assert.False(t, r.Unregister(nil))

	require.True(t, r.Register(c))
	assert.True(t, r.Unregister(c))
	assert.False(t, r.Unregister(c))
	assert.False(t, r.Has(c))
	assert.Zero(t, r.Len())
}

func TestRegistry_NilConsumer(t *testing.T) {
	r := NewRegistry[int]()
	assert.False(t, r.Register(nil))
	assert.Zero(t, r.Len())
}

func TestRegistry_HandlesWithSameFunctionAreDistinct(t *testing.T) {
	fn := func(int) error { return nil }
	a := NewConsumer("a", fn)
	b := NewConsumer("b", fn)

	r := NewRegistry[int]()
	assert.True(t, r.Register(a))
	assert.True(t, r.Register(b))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConsumersKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry[int]()
	a := NewConsumer("a", func(int) error { return nil })
	b := NewConsumer("b", func(int) error { return nil })
	c := NewConsumer("c", func(int) error { return nil })

	r.Register(a)
	r.Register(b)
	r.Register(c)
	r.Unregister(b)

	got := r.Consumers()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name())
	assert.Equal(t, "c", got[1].Name())

	got[0] = nil
	assert.Equal(t, "a", r.Consumers()[0].Name(), "Consumers returns a copy")
}
