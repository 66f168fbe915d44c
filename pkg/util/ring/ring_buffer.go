// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ring

// Buffer is a FIFO queue maintained over a ring buffer. The chunk partitioner
// stages claimed elements in it, so a worker reuses the same memory for every
// chunk it claims.
//
// Note: it is backed by a slice (unlike container/ring which is backed by a
// linked list).
type Buffer[T any] struct {
	buffer []T
	head   int // the index of the front of the buffer
	tail   int // the index of the first position after the end of the buffer

	// Indicates whether the buffer is empty. Necessary to distinguish
	// between an empty buffer and a buffer that uses all of its capacity.
	nonEmpty bool
}

// MakeBuffer returns a Buffer with room for n elements.
func MakeBuffer[T any](n int) Buffer[T] {
	return Buffer[T]{buffer: make([]T, n)}
}

// Len returns the number of elements in the Buffer.
func (r *Buffer[T]) Len() int {
	if !r.nonEmpty {
		return 0
	}
	if r.head < r.tail {
		return r.tail - r.head
	} else if r.head == r.tail {
		return len(r.buffer)
	}
	return len(r.buffer) + r.tail - r.head
}

// Cap returns the capacity of the Buffer.
func (r *Buffer[T]) Cap() int {
	return len(r.buffer)
}

// GetFirst returns the element at the front of the Buffer.
func (r *Buffer[T]) GetFirst() T {
	if !r.nonEmpty {
		panic("getting first from empty ring buffer")
	}
	return r.buffer[r.head]
}

func (r *Buffer[T]) grow(n int) {
	newBuffer := make([]T, n)
	l := r.Len()
	if r.head < r.tail {
		copy(newBuffer[:l], r.buffer[r.head:r.tail])
	} else if r.nonEmpty {
		copy(newBuffer[:len(r.buffer)-r.head], r.buffer[r.head:])
		copy(newBuffer[len(r.buffer)-r.head:l], r.buffer[:r.tail])
	}
	r.head = 0
	r.tail = l % n
	r.buffer = newBuffer
}

// AddLast adds element to the end of the Buffer, doubling the underlying
// slice if necessary.
func (r *Buffer[T]) AddLast(element T) {
	if r.Len() == len(r.buffer) {
		n := 2 * len(r.buffer)
		if n == 0 {
			n = 1
		}
		r.grow(n)
	}
	r.buffer[r.tail] = element
	r.tail = (r.tail + 1) % len(r.buffer)
	r.nonEmpty = true
}

// RemoveFirst removes and returns the element at the front of the Buffer.
func (r *Buffer[T]) RemoveFirst() T {
	if r.Len() == 0 {
		panic("removing first from empty ring buffer")
	}
	var zero T
	e := r.buffer[r.head]
	r.buffer[r.head] = zero
	r.head = (r.head + 1) % len(r.buffer)
	if r.head == r.tail {
		r.nonEmpty = false
	}
	return e
}

// Reset makes Buffer treat its underlying memory as if it were empty. Stale
// elements are cleared so that they can be garbage collected.
func (r *Buffer[T]) Reset() {
	clear(r.buffer)
	r.head = 0
	r.tail = 0
	r.nonEmpty = false
}
