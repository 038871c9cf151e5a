// Package rtcmd implements a lock-free control plane: a bidirectional
// CommandQueue carrying mutations from the non-realtime (NRT) thread to
// the realtime (RT) thread and disposing of retired objects back on the
// NRT thread, plus a SharedData cell built on top of it.
//
// Grounded on original_source/apf/commandqueue.h.
package rtcmd

import (
	"fmt"
	"time"

	"github.com/doismellburning/ssrender/internal/spsc"
	"github.com/doismellburning/ssrender/internal/xerr"
)

// Command is anything that can be pushed through a Queue. Execute runs
// exactly once, on the RT thread (or inline on the NRT thread if the
// queue has been deactivated). Cleanup runs exactly once, always on the
// NRT thread, strictly after Execute has returned.
type Command interface {
	Execute()
	Cleanup()
}

// noop is the sentinel Wait pushes when called with a nil command: a
// command whose sole purpose is to come back out the other side so Wait
// knows every command queued before it has finished.
type noop struct{}

func (noop) Execute() {}
func (noop) Cleanup() {}

// Queue is a bidirectional Command channel: NRT pushes onto the in-queue,
// RT drains it, executes each command, and pushes it onto the
// out-queue; NRT drains the out-queue and cleans commands up.
//
// Exactly one RT thread and one NRT thread are ever allowed to touch a
// given Queue, matching the SPSC contract of the two spsc.Fifo queues it
// is built from.
type Queue struct {
	in     *spsc.Fifo[Command]
	out    *spsc.Fifo[Command]
	active bool
}

// NewQueue constructs an active Queue with the given fifo capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		in:     spsc.New[Command](capacity),
		out:    spsc.New[Command](capacity),
		active: true,
	}
}

// Push is called from the NRT thread. It first drains and cleans up any
// commands already sitting in the out-queue, then enqueues cmd. If the
// in-queue is momentarily full it spins with short sleeps (bounded,
// because the RT thread drains the in-queue every audio period). If the
// queue has been Deactivated, cmd instead runs synchronously, inline,
// right here, and is placed directly on the out-queue for the next
// Push/Wait to clean up.
func (q *Queue) Push(cmd Command) {
	q.drainOut()

	if !q.active {
		cmd.Execute()
		q.out.Push(cmd)
		return
	}

	for !q.in.Push(cmd) {
		time.Sleep(50 * time.Microsecond)
	}
}

// Wait blocks until cmd (or, if cmd is nil, a fresh NoOp sentinel) has
// been processed and comes back out the out-queue, cleaning up every
// command it pops along the way — including ones unrelated to cmd, so
// that waiting with no argument blocks until all prior commands are
// finished.
func (q *Queue) Wait(cmd Command) {
	if cmd == nil {
		cmd = noop{}
	}
	q.Push(cmd)

	for {
		c, ok := q.out.Pop()
		if !ok {
			time.Sleep(50 * time.Microsecond)
			continue
		}
		c.Cleanup()
		if c == cmd {
			return
		}
	}
}

// drainOut cleans up every command currently sitting in the out-queue,
// without blocking.
func (q *Queue) drainOut() {
	for {
		c, ok := q.out.Pop()
		if !ok {
			return
		}
		c.Cleanup()
	}
}

// DrainOut is drainOut exposed for the NRT-side teardown sequence
// (Processor.Deactivate), where nothing else is draining the out-queue
// anymore.
func (q *Queue) DrainOut() {
	q.drainOut()
}

// ProcessCommands runs on the RT thread. It drains the in-queue,
// executes each command, and pushes it to the out-queue. An out-queue
// overflow here is an extremely unlikely programming error (the queue
// is sized generously and NRT drains it every Push) — we log it via
// the caller-supplied sink rather than silently dropping it, and do not
// allocate or block to handle it.
func (q *Queue) ProcessCommands(onOverflow func(error)) {
	for {
		cmd, ok := q.in.Pop()
		if !ok {
			return
		}
		cmd.Execute()
		if !q.out.Push(cmd) {
			if onOverflow != nil {
				onOverflow(fmt.Errorf("rtcmd: out-queue overflow, command leaked: %w", xerr.ErrCapacity))
			}
		}
	}
}

// Deactivate disables the queue so that subsequent Push calls execute
// inline on the NRT thread instead of being handed to the RT thread.
// Used around teardown, once the caller knows the RT thread is no
// longer running. It fails with xerr.ErrState if the in-queue is
// non-empty, since that would silently skip commands the RT thread
// never got a chance to run.
func (q *Queue) Deactivate() error {
	if !q.in.Empty() {
		return fmt.Errorf("rtcmd: deactivate with non-empty in-queue: %w", xerr.ErrState)
	}
	q.active = false
	return nil
}

// Reactivate re-enables normal RT-thread dispatch.
func (q *Queue) Reactivate() {
	q.active = true
}

// Active reports whether the queue currently dispatches to the RT
// thread (true) or executes inline (false).
func (q *Queue) Active() bool {
	return q.active
}
