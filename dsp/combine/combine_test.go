package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestFadeInOutSumsToUnity asserts that two contributions, one fading
// out a constant-unit signal and one fading in a constant-unit signal,
// with a 4-sample raised-cosine fade, sum to exactly 1 at every sample.
func TestFadeInOutSumsToUnity(t *testing.T) {
	c := New(4)
	ones := []float64{1, 1, 1, 1}

	dst := make([]float64, 4)
	c.Combine(dst, []Contribution{
		{Mode: FadeOut, Prev: ones},
		{Mode: FadeIn, Curr: ones},
	})

	for i, v := range dst {
		assert.InDeltaf(t, 1, v, 1e-9, "sample %d", i)
	}
}

// TestCombineFadeMatchesRaisedCosine asserts that with a single
// fade_out and a single fade_in contribution, the output is exactly the
// raised-cosine crossfade of the two, sample for sample.
func TestCombineFadeMatchesRaisedCosine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		blockSize := rapid.IntRange(2, 64).Draw(t, "blockSize")
		c := New(blockSize)

		prev := make([]float64, blockSize)
		curr := make([]float64, blockSize)
		for i := range prev {
			prev[i] = rapid.Float64Range(-1, 1).Draw(t, "prev")
			curr[i] = rapid.Float64Range(-1, 1).Draw(t, "curr")
		}

		dst := make([]float64, blockSize)
		c.Combine(dst, []Contribution{
			{Mode: FadeOut, Prev: prev},
			{Mode: FadeIn, Curr: curr},
		})

		for i := range dst {
			want := prev[i]*c.fadeOut[i] + curr[i]*c.fadeIn[i]
			assert.InDelta(t, want, dst[i], 1e-9)
		}
	})
}

func TestNothingLeavesOutputZeroed(t *testing.T) {
	c := New(8)
	dst := make([]float64, 8)
	for i := range dst {
		dst[i] = 42 // pre-existing garbage must be cleared
	}
	c.Combine(dst, []Contribution{{Mode: Nothing}})
	for _, v := range dst {
		assert.Equal(t, 0.0, v)
	}
}

func TestConstantCopiesCurrentBlock(t *testing.T) {
	c := New(4)
	dst := make([]float64, 4)
	c.Combine(dst, []Contribution{{Mode: Constant, Curr: []float64{1, 2, 3, 4}}})
	assert.Equal(t, []float64{1, 2, 3, 4}, dst)
}

func TestTransformAppliesBeforeWeighting(t *testing.T) {
	c := New(4)
	dst := make([]float64, 4)
	negate := func(_ int, v float64) float64 { return -v }
	c.Combine(dst, []Contribution{{Mode: Constant, Curr: []float64{1, 2, 3, 4}, Transform: negate}})
	assert.Equal(t, []float64{-1, -2, -3, -4}, dst)
}

func TestFadeTablesAreComplementary(t *testing.T) {
	for _, n := range []int{1, 2, 3, 8, 17, 64} {
		c := New(n)
		for i := 0; i < n; i++ {
			assert.InDelta(t, 1.0, c.fadeIn[i]+c.fadeOut[i], 1e-9)
		}
	}
}
