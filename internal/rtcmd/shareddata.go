package rtcmd

// SharedData is the single-cell specialization of the command pattern:
// Write, called from the NRT thread, enqueues a command that assigns
// the new value into the RT-visible slot; Read, called from the RT
// thread, returns the current slot unconditionally (never blocks,
// never allocates).
//
// Write also assigns directly into the NRT-visible shadow, so two
// consecutive NRT Writes observe the last-written value even before the
// RT thread has gotten around to executing the first one; the queued
// command's own Cleanup does nothing.
type SharedData[T any] struct {
	queue  *Queue
	rtSlot T
	shadow T
}

// NewSharedData constructs a SharedData cell bound to queue, with an
// initial value visible to both sides immediately (no command required
// for the initial value, matching construction-time initialization in
// the teacher's pattern).
func NewSharedData[T any](queue *Queue, initial T) *SharedData[T] {
	return &SharedData[T]{queue: queue, rtSlot: initial, shadow: initial}
}

// Read returns the current RT-visible value. Call only from the RT
// thread.
func (s *SharedData[T]) Read() T {
	return s.rtSlot
}

// Write enqueues a command that will assign v into the RT-visible slot.
// Call only from the NRT thread. Non-blocking except for the bounded
// spin documented on Queue.Push.
func (s *SharedData[T]) Write(v T) {
	s.shadow = v
	s.queue.Push(&writeCommand[T]{target: s, value: v})
}

// ReadNRT returns the most recently Written value, as seen from the NRT
// thread — i.e. it does not wait for the RT thread to have applied it.
// Useful for NRT-side logic that wants read-your-writes semantics.
func (s *SharedData[T]) ReadNRT() T {
	return s.shadow
}

type writeCommand[T any] struct {
	target *SharedData[T]
	value  T
}

func (c *writeCommand[T]) Execute() {
	c.target.rtSlot = c.value
}

func (c *writeCommand[T]) Cleanup() {}
