// Package rtlist implements a realtime-safe list: a doubly-linked list
// whose mutations are all expressed as rtcmd commands, so the
// non-realtime thread can insert and remove items without ever
// blocking the realtime thread, and RT-side iteration never observes a
// half-mutated list.
//
// Grounded on original_source/apf/rtlist.h.
package rtlist

import (
	"container/list"

	"github.com/doismellburning/ssrender/internal/rtcmd"
)

// List is an RtList<T>. The zero value is not usable; construct with
// New.
type List[T any] struct {
	queue *rtcmd.Queue
	l     list.List // RT-visible list; mutated only inside command Execute
}

// New constructs an empty List bound to queue. queue must be the same
// Queue instance used to drive the MimoProcessor this list belongs to,
// since NRT mutations to the list become visible on the RT thread only
// once that queue's ProcessCommands has run.
func New[T any](queue *rtcmd.Queue) *List[T] {
	lst := &List[T]{queue: queue}
	lst.l.Init()
	return lst
}

// Add enqueues a command that appends item to the back of the list. NRT
// only.
func (l *List[T]) Add(item T) {
	l.queue.Push(&addCommand[T]{list: l, items: []T{item}})
}

// AddRange enqueues a command that appends every item in items, in
// order, to the back of the list. NRT only.
func (l *List[T]) AddRange(items []T) {
	cp := append([]T(nil), items...)
	l.queue.Push(&addCommand[T]{list: l, items: cp})
}

// Rem enqueues a command that removes the first list element equal to
// item (compared with the supplied equality function) and destroys it
// via onRemoved, on the NRT thread, once the RT thread has processed the
// removal. NRT only.
func (l *List[T]) Rem(item T, equal func(a, b T) bool, onRemoved func(T)) {
	l.queue.Push(&remCommand[T]{list: l, target: item, equal: equal, onRemoved: onRemoved})
}

// Clear enqueues a command that empties the list, destroying every
// element via onRemoved on the NRT thread once the RT thread has
// processed the clear. NRT only.
func (l *List[T]) Clear(onRemoved func(T)) {
	l.queue.Push(&clearCommand[T]{list: l, onRemoved: onRemoved})
}

// Splice enqueues a command that moves every element of other onto the
// back of l, emptying other. NRT only; other must share l's queue —
// cross-queue splicing would let one processor's command stream mutate
// a list owned by another's RT thread.
func (l *List[T]) Splice(other *List[T]) {
	if other.queue != l.queue {
		panic("rtlist: Splice requires both lists to share a command queue")
	}
	l.queue.Push(&spliceCommand[T]{dst: l, src: other})
}

// Len returns the current RT-visible length. RT only (but harmless to
// call from NRT for diagnostics; it does not mutate anything).
func (l *List[T]) Len() int {
	return l.l.Len()
}

// Empty reports whether the RT-visible list currently has no elements.
func (l *List[T]) Empty() bool {
	return l.l.Len() == 0
}

// Each calls fn once for every RT-visible element, in list order. RT
// only. fn must not mutate l.
func (l *List[T]) Each(fn func(T)) {
	for e := l.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(T))
	}
}

// Drain destroys every item currently in the RT-visible list by calling
// onRemoved on each, from the NRT thread, bypassing the command queue.
// Used only by the owning MimoProcessor's shutdown path: on process
// shutdown, any items still in an RtList are destroyed from the
// non-RT thread rather than through the normal command path.
func (l *List[T]) Drain(onRemoved func(T)) {
	for e := l.l.Front(); e != nil; {
		next := e.Next()
		if onRemoved != nil {
			onRemoved(e.Value.(T))
		}
		l.l.Remove(e)
		e = next
	}
}

type addCommand[T any] struct {
	list  *List[T]
	items []T
}

func (c *addCommand[T]) Execute() {
	for _, item := range c.items {
		c.list.l.PushBack(item)
	}
}

func (c *addCommand[T]) Cleanup() {}

type remCommand[T any] struct {
	list      *List[T]
	target    T
	equal     func(a, b T) bool
	onRemoved func(T)
	removed   T
	found     bool
}

func (c *remCommand[T]) Execute() {
	for e := c.list.l.Front(); e != nil; e = e.Next() {
		v := e.Value.(T)
		if c.equal(v, c.target) {
			c.list.l.Remove(e)
			c.removed = v
			c.found = true
			return
		}
	}
}

func (c *remCommand[T]) Cleanup() {
	if c.found && c.onRemoved != nil {
		c.onRemoved(c.removed)
	}
}

type spliceCommand[T any] struct {
	dst, src *List[T]
}

func (c *spliceCommand[T]) Execute() {
	c.dst.l.PushBackList(&c.src.l)
	c.src.l.Init()
}

func (c *spliceCommand[T]) Cleanup() {}

type clearCommand[T any] struct {
	list      *List[T]
	onRemoved func(T)
	removed   []T
}

func (c *clearCommand[T]) Execute() {
	for e := c.list.l.Front(); e != nil; e = e.Next() {
		c.removed = append(c.removed, e.Value.(T))
	}
	c.list.l.Init()
}

func (c *clearCommand[T]) Cleanup() {
	if c.onRemoved == nil {
		return
	}
	for _, v := range c.removed {
		c.onRemoved(v)
	}
}
