// Package combine implements the per-output channel-combining step:
// mixing every SourceChannel contribution targeting one Output into
// that Output's block, using one of four modes per contribution per
// block.
//
// Grounded on original_source/apf/apf/math.h's raised_cosine functor
// (used here for the crossfade table) and the combine_channels
// description in original_source/apf/examples/simpleprocessor.h.
package combine

import "math"

// Mode is the per-contribution-per-block mixing mode, chosen by the
// caller (typically a renderer's Output logic) by comparing a
// SourceChannel's current and previous parameters.
type Mode int

const (
	// Nothing means the contribution produces no output this block
	// (e.g. a muted or not-yet-activated source).
	Nothing Mode = iota
	// Constant means the contribution is unchanged since last block:
	// copy (or transform-and-add) its current block into the output.
	Constant
	// Change means a parameter changed smoothly: crossfade between the
	// previous-block rendering and the current-block rendering.
	Change
	// FadeIn means the contribution just became active: fade up from
	// silence to the current block.
	FadeIn
	// FadeOut means the contribution just became inactive: fade down
	// from the previous block to silence.
	FadeOut
)

// Contribution is one SourceChannel's input to a Combiner.Combine call.
type Contribution struct {
	Mode Mode
	// Curr is the current-block rendering; required for Constant,
	// Change and FadeIn.
	Curr []float64
	// Prev is the previous-block rendering; required for Change and
	// FadeOut.
	Prev []float64
	// Transform, if non-nil, is applied to each sample of Curr (for
	// Constant/FadeIn) or Prev (for FadeOut) before it is weighted and
	// accumulated — a transform-and-add variant, used where a renderer
	// needs a per-sample gain or sign flip applied as part of the
	// combine step rather than as a separate pass.
	Transform func(i int, v float64) float64
}

// Combiner holds the precomputed raised-cosine fade tables for one
// block size.
type Combiner struct {
	blockSize int
	fadeOut   []float64 // 1 -> 0
	fadeIn    []float64 // 0 -> 1, the exact complement of fadeOut
}

// New builds a Combiner for the given block size.
func New(blockSize int) *Combiner {
	if blockSize <= 0 {
		panic("combine: blockSize must be positive")
	}
	c := &Combiner{
		blockSize: blockSize,
		fadeOut:   make([]float64, blockSize),
		fadeIn:    make([]float64, blockSize),
	}
	if blockSize == 1 {
		c.fadeOut[0] = 0
		c.fadeIn[0] = 1
		return c
	}
	period := 2 * float64(blockSize-1)
	for i := 0; i < blockSize; i++ {
		c.fadeOut[i] = raisedCosine(float64(i), period)
		c.fadeIn[i] = 1 - c.fadeOut[i]
	}
	return c
}

// raisedCosine mirrors apf::math::raised_cosine: 0.5*cos(2*pi*in/period)+0.5.
func raisedCosine(in, period float64) float64 {
	return 0.5*math.Cos(in*2*math.Pi/period) + 0.5
}

// Combine accumulates every contribution into dst (length blockSize),
// which it zero-initializes first; dst is left at all-zero if and only
// if no contribution produced any output.
func (c *Combiner) Combine(dst []float64, contributions []Contribution) {
	if len(dst) != c.blockSize {
		panic("combine: dst length mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, ct := range contributions {
		switch ct.Mode {
		case Nothing:
			continue
		case Constant:
			for i := range dst {
				dst[i] += sample(ct.Transform, i, ct.Curr[i])
			}
		case FadeIn:
			for i := range dst {
				dst[i] += sample(ct.Transform, i, ct.Curr[i]) * c.fadeIn[i]
			}
		case FadeOut:
			for i := range dst {
				dst[i] += sample(ct.Transform, i, ct.Prev[i]) * c.fadeOut[i]
			}
		case Change:
			for i := range dst {
				prev := sample(ct.Transform, i, ct.Prev[i])
				curr := sample(ct.Transform, i, ct.Curr[i])
				dst[i] += prev*c.fadeOut[i] + curr*c.fadeIn[i]
			}
		}
	}
}

func sample(transform func(int, float64) float64, i int, v float64) float64 {
	if transform == nil {
		return v
	}
	return transform(i, v)
}

// BlockSize returns the block size this Combiner's fade tables were
// built for.
func (c *Combiner) BlockSize() int {
	return c.blockSize
}
