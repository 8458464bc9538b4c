package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PanicsOnInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -60} {
		assert.Panics(t, func() { New[float64](capacity) }, "capacity %d", capacity)
	}
}

func TestRing_PushUnderCapacity(t *testing.T) {
	r := New[float64](10)

	for i := 0; i < 5; i++ {
		r.Push(float64(i * 10))
	}

	assert.Equal(t, 5, r.Len())
	assert.Equal(t, 10, r.Cap())
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, r.Snapshot())
}

func TestRing_EvictsOldest(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)

	assert.Equal(t, []int{2, 3, 4}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
}

func TestRing_SnapshotIsLastCPushes(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
	}{
		{"one over", 5, 6},
		{"double", 4, 8},
		{"many wraps", 7, 100},
		{"capacity one", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New[int](tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				r.Push(i)
			}

			snap := r.Snapshot()
			require.Len(t, snap, tt.capacity)
			for i, v := range snap {
				assert.Equal(t, tt.pushes-tt.capacity+i, v)
			}
		})
	}
}

func TestRing_SnapshotDoesNotMutate(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	r.Push(2)

	snap := r.Snapshot()
	snap[0] = 99

	assert.Equal(t, []int{1, 2}, r.Snapshot())
	assert.Equal(t, 2, r.Len())
}

func TestRing_Last(t *testing.T) {
	r := New[float64](10)
	assert.Nil(t, r.Last(5), "empty buffer")

	for i := 0; i < 7; i++ {
		r.Push(float64(i * 10))
	}

	assert.Equal(t, []float64{40, 50, 60}, r.Last(3))
	assert.Len(t, r.Last(20), 7)
	assert.Nil(t, r.Last(0))
	assert.Nil(t, r.Last(-1))
}

func TestRing_Latest(t *testing.T) {
	r := New[string](2)

	_, ok := r.Latest()
	assert.False(t, ok)

	r.Push("a")
	r.Push("b")
	r.Push("c")

	v, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestRing_Reset(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	r.Push(2)

	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Snapshot())
	assert.Equal(t, 3, r.Cap())

	r.Push(7)
	assert.Equal(t, []int{7}, r.Snapshot())
}

func TestRing_StructValues(t *testing.T) {
	type pair struct{ a, b float64 }
	r := New[pair](2)
	r.Push(pair{1, 2})
	r.Push(pair{3, 4})
	r.Push(pair{5, 6})

	assert.Equal(t, []pair{{3, 4}, {5, 6}}, r.Snapshot())
}

func TestRing_ConcurrentPushAndSnapshot(t *testing.T) {
	r := New[int](50)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			r.Push(i)
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				snap := r.Snapshot()
				// A single writer pushes increasing values, so any consistent
				// snapshot is strictly increasing by one.
				for k := 1; k < len(snap); k++ {
					if snap[k] != snap[k-1]+1 {
						t.Errorf("torn snapshot: %v", snap)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, r.Len())
	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, 4999, latest)
}
