package delayline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReadBlockReturnsSamplesFromDelayedOffset asserts that a read at a
// fixed delay returns the samples written that many samples ago, offset
// into the ring across a block boundary.
func TestReadBlockReturnsSamplesFromDelayedOffset(t *testing.T) {
	dl := New(4, 12, 0)
	dl.WriteBlock([]float64{1, 2, 3, 4})
	dl.WriteBlock([]float64{5, 6, 7, 8})
	dl.WriteBlock([]float64{9, 10, 11, 12})

	dst := make([]float64, 4)
	dl.ReadBlock(5, dst)
	assert.Equal(t, []float64{4, 5, 6, 7}, dst)
}

// TestAllDelaysInRangeReturnSamplesWrittenThatLongAgo asserts that,
// writing blocks 0, 1, ..., reading with delay d returns the samples
// written d samples ago for every 0 <= d <= max_delay, and that
// DelayIsValid(max_delay+1) is false.
func TestAllDelaysInRangeReturnSamplesWrittenThatLongAgo(t *testing.T) {
	const blockSize = 8
	const maxDelay = 40
	dl := New(blockSize, maxDelay, 0)

	const blocks = 10
	total := blocks * blockSize
	samples := make([]float64, total)
	for i := range samples {
		samples[i] = float64(i)
	}
	for b := 0; b < blocks; b++ {
		dl.WriteBlock(samples[b*blockSize : (b+1)*blockSize])
	}

	dst := make([]float64, blockSize)
	for d := 0; d <= maxDelay; d++ {
		if !dl.DelayIsValid(d) {
			continue
		}
		dl.ReadBlock(d, dst)
		newestIdx := total - 1
		endIdx := newestIdx - d
		for i := 0; i < blockSize; i++ {
			want := float64(endIdx - blockSize + 1 + i)
			assert.Equalf(t, want, dst[i], "delay=%d i=%d", d, i)
		}
	}

	assert.False(t, dl.DelayIsValid(maxDelay+1))
}

func TestInitialDelayAllowsNegativeReads(t *testing.T) {
	dl := New(4, 8, 8)
	dl.WriteBlock([]float64{1, 2, 3, 4})
	dl.WriteBlock([]float64{5, 6, 7, 8})

	dst := make([]float64, 4)
	dl.ReadBlock(-8, dst) // fully "future" relative to the initialDelay baseline
	assert.True(t, dl.DelayIsValid(-8))
	assert.Equal(t, []float64{5, 6, 7, 8}, dst)
}
