// Package delayline implements a non-causal BlockDelayLine, used by the
// WFS renderer to read a source's history at a geometry-dependent
// delay.
//
// Grounded on the ring/iterator idiom of original_source/apf/convolver.h
// and the teacher's own ring-buffer style (src/dlq.go, src/tq.go).
package delayline

// BlockDelayLine is a ring of blocks supporting block-aligned writes and
// sample-accurate reads at a caller-supplied delay, including delays
// that are "negative" relative to the nominal current time — those are
// made real by internally biasing every read by initialDelay, so a
// caller-visible delay of -initialDelay resolves to the newest sample
// and a caller-visible delay of +maxDelay resolves to the oldest
// sample the line can still answer for.
type BlockDelayLine struct {
	blockSize   int
	maxDelay    int
	initialDelay int
	capacity    int // samples; a multiple of blockSize
	ring        []float64
	writeCount  int64 // total samples ever written (monotonic)
}

// New constructs a BlockDelayLine able to answer reads for any
// caller-visible delay d with -initialDelay <= d <= maxDelay, once
// enough blocks have been written.
func New(blockSize, maxDelay, initialDelay int) *BlockDelayLine {
	if blockSize <= 0 {
		panic("delayline: blockSize must be positive")
	}
	span := maxDelay + initialDelay + blockSize
	capacity := roundUpToMultiple(span, blockSize)
	return &BlockDelayLine{
		blockSize:    blockSize,
		maxDelay:     maxDelay,
		initialDelay: initialDelay,
		capacity:     capacity,
		ring:         make([]float64, capacity),
	}
}

func roundUpToMultiple(n, m int) int {
	if n%m == 0 {
		return n
	}
	return (n/m + 1) * m
}

// WriteBlock advances the write head by one block and copies src
// (length blockSize) into the ring.
func (d *BlockDelayLine) WriteBlock(src []float64) {
	if len(src) != d.blockSize {
		panic("delayline: WriteBlock length mismatch")
	}
	start := int(d.writeCount % int64(d.capacity))
	n := copy(d.ring[start:], src)
	if n < len(src) {
		copy(d.ring, src[n:])
	}
	d.writeCount += int64(d.blockSize)
}

// DelayIsValid reports whether ReadBlock(delay) would return a block
// entirely within data already written and not yet overwritten. If it
// returns false, ReadBlock itself still returns a block (zero-filled
// where out of range) — the delay line itself never faults — so
// callers should check DelayIsValid first and log/substitute if they
// want to avoid silently reading stale or absent data.
func (d *BlockDelayLine) DelayIsValid(delay int) bool {
	if delay < -d.initialDelay || delay > d.maxDelay {
		return false
	}
	effective := int64(d.initialDelay + delay)
	endAbs := d.writeCount - 1 - effective
	startAbs := endAbs - int64(d.blockSize) + 1
	if endAbs >= d.writeCount {
		return false
	}
	if startAbs < d.writeCount-int64(d.capacity) {
		return false
	}
	return startAbs >= 0
}

// ReadBlock returns blockSize samples ending `delay` (caller-visible,
// possibly negative) samples before the newest written sample, written
// into dst (which must have length blockSize). Samples that fall before
// the start of the stream or that have already been overwritten are
// returned as zero.
func (d *BlockDelayLine) ReadBlock(delay int, dst []float64) {
	if len(dst) != d.blockSize {
		panic("delayline: ReadBlock length mismatch")
	}
	effective := int64(d.initialDelay + delay)
	endAbs := d.writeCount - 1 - effective
	startAbs := endAbs - int64(d.blockSize) + 1

	for i := 0; i < d.blockSize; i++ {
		abs := startAbs + int64(i)
		if abs < 0 || abs >= d.writeCount || abs < d.writeCount-int64(d.capacity) {
			dst[i] = 0
			continue
		}
		dst[i] = d.ring[abs%int64(d.capacity)]
	}
}

// MaxDelay returns the largest caller-visible (past) delay supported.
func (d *BlockDelayLine) MaxDelay() int {
	return d.maxDelay
}

// InitialDelay returns the largest caller-visible "future" delay
// magnitude supported (i.e. the smallest delay is -InitialDelay()).
func (d *BlockDelayLine) InitialDelay() int {
	return d.initialDelay
}
