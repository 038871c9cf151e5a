// Package xerr defines the core's sentinel error kinds. Every
// fallible constructor or setter in this module wraps one of these with
// fmt.Errorf("...: %w", ...) rather than inventing ad-hoc error strings,
// so callers can branch with errors.Is regardless of which component
// raised the error.
package xerr

import "errors"

var (
	// ErrConfiguration covers invalid block size, missing required
	// files, channel-count mismatches, and sample-rate mismatches.
	// Raised during construction; the core is never built.
	ErrConfiguration = errors.New("configuration error")

	// ErrCapacity covers a full command FIFO. The non-RT side never
	// sees it: its Push retries until there is room. The RT side wraps
	// it only when its out-queue overflows, and reports the leaked
	// command through the Processor's overflow callback.
	ErrCapacity = errors.New("capacity error")

	// ErrValidity covers an out-of-range delay-line read. It is never
	// returned to a caller that can't act on it — the core substitutes
	// a safe value and logs. It exists as a sentinel so internal code
	// can still test for it.
	ErrValidity = errors.New("validity error")

	// ErrState covers a programming-level defect, such as deactivating
	// a command queue with commands still in flight.
	ErrState = errors.New("state error")

	// ErrFatal covers host audio interface failure or worker thread
	// creation failure. The core transitions to a stopped state.
	ErrFatal = errors.New("fatal runtime error")
)
