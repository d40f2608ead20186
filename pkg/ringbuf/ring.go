// SPDX-License-Identifier: MIT
/*
Package ringbuf provides a fixed-capacity FIFO ring used for bounded sliding
windows such as the Doppler frequency trace.

Push never grows the backing array: once the ring is full, pushing evicts
exactly the oldest element and keeps the order of the rest.

Usage:

	r := ringbuf.New[float64](3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)  // evicts 1
	r.Items()  // [2 3 4]

The ring is not safe for concurrent use; callers serialise access.
*/
package ringbuf

// Ring is a fixed-capacity FIFO. The zero value is unusable; use New.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest element
	size int
}

// New returns an empty ring holding at most capacity elements.
// A capacity below 1 is raised to 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. When the ring is full the oldest element is evicted and
// returned with ok set to true.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return evicted, false
	}

	evicted = r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return evicted, true
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th element counting from the oldest. It panics when i is
// out of range, like a slice index.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("ringbuf: index out of range")
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the newest element.
func (r *Ring[T]) Last() (v T, ok bool) {
	if r.size == 0 {
		return v, false
	}
	return r.At(r.size - 1), true
}

// Items copies the elements, oldest first, into a new slice.
func (r *Ring[T]) Items() []T {
	return r.AppendTo(make([]T, 0, r.size))
}

// AppendTo appends the elements, oldest first, to dst. Reusing dst across
// frames keeps the hot path free of allocations.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.size; i++ {
		dst = append(dst, r.buf[(r.head+i)%len(r.buf)])
	}
	return dst
}

// Reset empties the ring without releasing its storage.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.size = 0
}
