// Package spsc implements a single-producer/single-consumer lock-free
// ring. It carries pointer-sized payloads (interface values holding
// pointers, in Go's case) between exactly one producer goroutine and
// exactly one consumer goroutine with no locks and no allocation once
// constructed.
package spsc

import "sync/atomic"

// Fifo is a fixed-capacity ring buffer of T. The zero value is not
// usable; construct with New.
//
// Memory ordering: Push stores the payload into the slot, then
// release-stores the write index; Pop acquire-loads the write index,
// then reads the slot. Go's atomic operations provide the necessary
// happens-before edge (the store in Push happens-before the Store to
// writeIndex, which happens-before the matching Load in Pop observes it,
// which happens-before the read of the slot) — the same guarantee the
// teacher's DESIGN NOTES call out as "release-store the write index and
// acquire-load it on read".
type Fifo[T any] struct {
	buf        []T
	mask       uint64
	writeIndex atomic.Uint64
	readIndex  atomic.Uint64
}

// New constructs a Fifo with the given capacity, rounded up to the next
// power of two (so index wraparound is a cheap mask instead of a modulo
// and compare). Capacity must be at least 1.
func New[T any](capacity int) *Fifo[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Fifo[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

// Push enqueues p. It returns false without blocking if the fifo is
// full.
func (f *Fifo[T]) Push(p T) bool {
	w := f.writeIndex.Load()
	r := f.readIndex.Load()
	if w-r >= uint64(len(f.buf)) {
		return false
	}
	f.buf[w&f.mask] = p
	f.writeIndex.Store(w + 1)
	return true
}

// Pop dequeues the oldest element. ok is false if the fifo was empty, in
// which case the returned value is the zero value of T.
func (f *Fifo[T]) Pop() (value T, ok bool) {
	r := f.readIndex.Load()
	w := f.writeIndex.Load()
	if r == w {
		return value, false
	}
	value = f.buf[r&f.mask]
	var zero T
	f.buf[r&f.mask] = zero // drop the reference promptly
	f.readIndex.Store(r + 1)
	return value, true
}

// Empty reports whether the fifo currently has nothing to pop, as seen
// by either side.
func (f *Fifo[T]) Empty() bool {
	return f.readIndex.Load() == f.writeIndex.Load()
}

// Cap returns the usable capacity (the number of elements Push can
// accept before returning false, assuming no concurrent Pop).
func (f *Fifo[T]) Cap() int {
	return len(f.buf)
}
