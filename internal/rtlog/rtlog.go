// Package rtlog gives the realtime thread a way to report anomalies,
// to be logged through a host-supplied sink, without ever blocking the
// RT thread itself. Formatting a message that has arguments allocates
// its string.
//
// Mirrors the teacher's single process-wide logger convention
// (text_color_set + dw_printf from a single global stream in
// src/audio.go and friends) but replaces the global C stream with
// charmbracelet/log's structured logger, and replaces direct calls from
// the RT thread with a small lock-free ring — RT code calls
// Warnf/Errorf, which never block; the host forwards queued messages to
// the real logger by calling Drain, which runs synchronously in the
// caller's goroutine.
package rtlog

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const ringCapacity = 256

type entry struct {
	level level
	msg   string
}

type level int

const (
	levelWarn level = iota
	levelError
)

// Ring is a fixed-capacity, allocation-free-at-steady-state single
// producer (RT thread) / single consumer (drain goroutine) log ring.
// It intentionally drops entries rather than blocking when full, which
// is the correct behavior for a logging path: a lost diagnostic is
// preferable to a stalled audio callback.
type Ring struct {
	buf        [ringCapacity]entry
	writeIndex atomic.Uint64
	readIndex  atomic.Uint64
}

// NewRing constructs an empty ring.
func NewRing() *Ring {
	return &Ring{}
}

func (r *Ring) push(e entry) {
	w := r.writeIndex.Load()
	read := r.readIndex.Load()
	if w-read >= ringCapacity {
		// Full: drop the newest entry rather than overwrite or block.
		return
	}
	r.buf[w%ringCapacity] = e
	r.writeIndex.Store(w + 1)
}

// Warnf queues a warning-level message. Safe to call from the RT thread.
func (r *Ring) Warnf(format string, args ...any) {
	r.push(entry{level: levelWarn, msg: sprintf(format, args...)})
}

// Errorf queues an error-level message. Safe to call from the RT thread.
func (r *Ring) Errorf(format string, args ...any) {
	r.push(entry{level: levelError, msg: sprintf(format, args...)})
}

// Drain forwards all currently queued entries to the given logger. It
// never blocks; call it periodically (e.g. once per MimoProcessor query
// cycle, or from a dedicated goroutine on a ticker) from the non-RT
// side.
func (r *Ring) Drain(logger *log.Logger) {
	for {
		read := r.readIndex.Load()
		w := r.writeIndex.Load()
		if read == w {
			return
		}
		e := r.buf[read%ringCapacity]
		switch e.level {
		case levelWarn:
			logger.Warn(e.msg)
		case levelError:
			logger.Error(e.msg)
		}
		r.readIndex.Store(read + 1)
	}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
