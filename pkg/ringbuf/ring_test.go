// SPDX-License-Identifier: MIT
package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingFillsInOrder(t *testing.T) {
	r := New[int](4)
	for i := 1; i <= 3; i++ {
		_, evicted := r.Push(i)
		require.False(t, evicted, "push %d should not evict below capacity", i)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 4, r.Cap())
	assert.Equal(t, []int{1, 2, 3}, r.Items())
}

func TestRingEvictsOldestFirst(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 3; i++ {
		r.Push(i)
	}

	old, evicted := r.Push(4)
	require.True(t, evicted)
	assert.Equal(t, 1, old, "the oldest element must be evicted")
	assert.Equal(t, []int{2, 3, 4}, r.Items(), "remaining order must be preserved")

	old, _ = r.Push(5)
	assert.Equal(t, 2, old)
	assert.Equal(t, []int{3, 4, 5}, r.Items())
}

func TestRingNeverExceedsCapacity(t *testing.T) {
	r := New[int](50)
	for i := 0; i < 1000; i++ {
		r.Push(i)
		require.LessOrEqual(t, r.Len(), 50)
	}

	items := r.Items()
	require.Len(t, items, 50)
	assert.Equal(t, 950, items[0])
	assert.Equal(t, 999, items[49])
}

func TestRingAtAndLast(t *testing.T) {
	r := New[string](2)
	_, ok := r.Last()
	assert.False(t, ok)

	r.Push("a")
	r.Push("b")
	r.Push("c")

	assert.Equal(t, "b", r.At(0))
	assert.Equal(t, "c", r.At(1))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "c", last)

	assert.Panics(t, func() { r.At(2) })
	assert.Panics(t, func() { r.At(-1) })
}

func TestRingReset(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	r.Push(2)
	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Items())

	r.Push(7)
	assert.Equal(t, []int{7}, r.Items())
}

func TestRingMinimumCapacity(t *testing.T) {
	r := New[int](0)
	assert.Equal(t, 1, r.Cap())
	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{2}, r.Items())
}

func TestRingAppendToNoAllocs(t *testing.T) {
	r := New[float64](100)
	for i := 0; i < 150; i++ {
		r.Push(float64(i))
	}
	dst := make([]float64, 0, 100)

	allocs := testing.AllocsPerRun(100, func() {
		dst = r.AppendTo(dst[:0])
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in AppendTo, got %.1f", allocs)
	}
}
