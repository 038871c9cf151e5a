package convolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// naiveConvolve computes y[n] = sum_i x[n-i]*h[i] for the full history of
// x fed so far, used as a reference independent of the partitioned
// implementation under test.
type naiveConvolve struct {
	h   []float64
	buf []float64 // all samples seen so far, oldest first
}

func (n *naiveConvolve) feed(block []float64) []float64 {
	n.buf = append(n.buf, block...)
	out := make([]float64, len(block))
	base := len(n.buf) - len(block)
	for i := range block {
		t := base + i
		var sum float64
		for j, hv := range n.h {
			if t-j >= 0 {
				sum += n.buf[t-j] * hv
			}
		}
		out[i] = sum
	}
	return out
}

func runConvolver(t *testing.T, blockSize int, ir []float64, blocks [][]float64) [][]float64 {
	t.Helper()
	p := PartitionCount(len(ir), blockSize)
	in := NewInput(blockSize, p)
	flt := NewStaticFilter(blockSize, ir)
	out := NewOutput(in, flt)

	results := make([][]float64, len(blocks))
	for i, b := range blocks {
		in.AddBlock(b)
		res := out.Convolve(1.0)
		results[i] = append([]float64(nil), res...)
	}
	return results
}

// TestIdentityFilterReproducesInputVerbatim asserts that a single-tap
// dirac filter reproduces the input verbatim, block for block, with
// zero added delay.
func TestIdentityFilterReproducesInputVerbatim(t *testing.T) {
	const blockSize = 8
	ir := make([]float64, blockSize)
	ir[0] = 1

	blocks := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{9, 10, 11, 12, 13, 14, 15, 16},
		{0, 0, 0, 0, 0, 0, 0, 0},
	}

	got := runConvolver(t, blockSize, ir, blocks)
	for i, b := range blocks {
		for j := range b {
			assert.InDelta(t, b[j], got[i][j], 1e-9, "block=%d i=%d", i, j)
		}
	}
}

// TestConvolveIsLinear asserts that convolving a linear combination of
// two signals equals the same combination of the two
// separately-convolved outputs, for a fixed filter.
func TestConvolveIsLinear(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const blockSize = 8
		nBlocks := rapid.IntRange(1, 6).Draw(t, "nBlocks")
		ir := make([]float64, blockSize*2)
		for i := range ir {
			ir[i] = rapid.Float64Range(-1, 1).Draw(t, "ir")
		}

		a := make([][]float64, nBlocks)
		b := make([][]float64, nBlocks)
		sum := make([][]float64, nBlocks)
		alpha := rapid.Float64Range(-2, 2).Draw(t, "alpha")
		beta := rapid.Float64Range(-2, 2).Draw(t, "beta")
		for i := 0; i < nBlocks; i++ {
			a[i] = make([]float64, blockSize)
			b[i] = make([]float64, blockSize)
			sum[i] = make([]float64, blockSize)
			for j := 0; j < blockSize; j++ {
				a[i][j] = rapid.Float64Range(-1, 1).Draw(t, "a")
				b[i][j] = rapid.Float64Range(-1, 1).Draw(t, "b")
				sum[i][j] = alpha*a[i][j] + beta*b[i][j]
			}
		}

		outA := runConvolver(t, blockSize, ir, a)
		outB := runConvolver(t, blockSize, ir, b)
		outSum := runConvolver(t, blockSize, ir, sum)

		for i := 0; i < nBlocks; i++ {
			for j := 0; j < blockSize; j++ {
				want := alpha*outA[i][j] + beta*outB[i][j]
				assert.InDelta(t, want, outSum[i][j], 1e-6)
			}
		}
	})
}

// TestDynamicFilterSwapTakesPartitionCountMinusOneRotations asserts that
// a filter swapped in via SetFilterFromTime becomes fully audible only
// after PartitionCount()-1 further RotateQueues calls; before that, the
// output still reflects (at least in part) the previous filter.
func TestDynamicFilterSwapTakesPartitionCountMinusOneRotations(t *testing.T) {
	const blockSize = 8
	const partitions = 3
	irOld := make([]float64, blockSize*partitions)
	irOld[0] = 1 // identity
	irNew := make([]float64, blockSize*partitions)
	irNew[blockSize*(partitions-1)] = 1 // delayed-by-(P-1)-blocks dirac, lives only in the last partition

	in := NewInput(blockSize, partitions)
	flt := NewDynamicFilter(blockSize, partitions)
	flt.SetFilterFromTime(irOld)
	out := NewOutput(in, flt)

	block := make([]float64, blockSize)
	block[0] = 1

	// Settle on irOld first.
	in.AddBlock(block)
	out.Convolve(1.0)
	for i := 0; i < partitions; i++ {
		flt.RotateQueues()
	}
	assert.True(t, flt.QueuesEmpty())

	// Now swap to irNew, whose only nonzero contribution lives in the
	// last partition (index partitions-1, queue depth = partitions).
	flt.SetFilterFromTime(irNew)
	assert.False(t, flt.QueuesEmpty())

	// Immediately after the swap, partition partitions-1 still shows
	// the old (all-zero beyond partition 0) filter, so zero-block
	// signal blocks still produce zero output from irNew's tap.
	in.AddBlock(make([]float64, blockSize))
	out.Convolve(1.0)

	for i := 0; i < partitions-2; i++ {
		flt.RotateQueues()
	}
	// After PartitionCount()-2 rotations, one rotate short of fully
	// settled: not yet showing irNew's tap at the front of the last queue.
	assert.False(t, flt.QueuesEmpty())

	flt.RotateQueues()
	assert.True(t, flt.QueuesEmpty())
}

// TestQueuesEmptyStaysStableAcrossRotation asserts that once QueuesEmpty
// reports true, further RotateQueues calls are no-ops: QueuesEmpty stays
// true and Convolve's output (for the same input state) does not
// change.
func TestQueuesEmptyStaysStableAcrossRotation(t *testing.T) {
	const blockSize = 4
	const partitions = 4
	ir := make([]float64, blockSize*partitions)
	ir[0] = 2

	in := NewInput(blockSize, partitions)
	flt := NewDynamicFilter(blockSize, partitions)
	flt.SetFilterFromTime(ir)

	for i := 0; i < partitions; i++ {
		flt.RotateQueues()
	}
	assert.True(t, flt.QueuesEmpty())

	out := NewOutput(in, flt)
	in.AddBlock([]float64{1, 2, 3, 4})
	before := append([]float64(nil), out.Convolve(1.0)...)

	for i := 0; i < 5; i++ {
		flt.RotateQueues()
		assert.True(t, flt.QueuesEmpty())
	}

	after := out.Convolve(1.0)
	assert.Equal(t, before, after)
}

func TestPartitionCount(t *testing.T) {
	assert.Equal(t, 1, PartitionCount(1, 8))
	assert.Equal(t, 1, PartitionCount(8, 8))
	assert.Equal(t, 2, PartitionCount(9, 8))
	assert.Equal(t, 2, PartitionCount(16, 8))
	assert.Equal(t, 3, PartitionCount(17, 8))
}
