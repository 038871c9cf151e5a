// Package earconv holds the convolution plumbing shared by the
// head-related renderers (binaural and BRS): picking an IR pair by
// angle from a loaded HRTF/BRIR set, driving one
// dynamic-filter convolver per ear, and blending toward a neutral
// "dirac+delay" filter as a source approaches the head.
//
// Grounded on original_source/src/binauralrenderer.h (HRIR loading,
// per-angle lookup, SourceChannel-per-ear convolution).
package earconv

import "github.com/doismellburning/ssrender/dsp/convolver"

// Pair is one set of impulse responses for a given angle: the
// time-domain IRs for the left and right ear, already at the target
// sample rate.
type Pair struct {
	Left, Right []float64
}

// Set holds one impulse response Pair per whole-degree angle bin
// (0..359), loaded once at renderer construction, plus a neutral (near-
// field) fallback Pair used when a source is very close to the
// listener.
type Set struct {
	angles  map[int]Pair
	neutral Pair
}

// NewSet constructs an empty Set.
func NewSet() *Set {
	return &Set{angles: make(map[int]Pair)}
}

// Add registers the IR pair for a given angle, in degrees, normalized
// into [0, 360).
func (s *Set) Add(angleDeg int, pair Pair) {
	s.angles[normalizeDeg(angleDeg)] = pair
}

// SetNeutral registers the fallback pair used for a source collocated
// with the listener (distance below some near-field threshold): a
// "dirac+delay" IR pair, typically a unit impulse at a small onward
// delay in each ear.
func (s *Set) SetNeutral(pair Pair) {
	s.neutral = pair
}

func normalizeDeg(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Nearest returns the Pair for the closest registered angle to angleDeg
// (wrapping at 0/360), or false if the Set has no angles registered.
func (s *Set) Nearest(angleDeg int) (Pair, bool) {
	if len(s.angles) == 0 {
		return Pair{}, false
	}
	target := normalizeDeg(angleDeg)
	best := -1
	bestDist := 361
	for a := range s.angles {
		d := angularDistance(a, target)
		if d < bestDist {
			bestDist = d
			best = a
		}
	}
	return s.angles[best], true
}

func angularDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Blend linearly interpolates between the Set's neutral pair and pair,
// by factor in [0, 1] (0 = fully neutral, 1 = fully pair): as a source
// approaches the head it blends toward a dirac+delay filter. The IRs
// may differ in length; the shorter is zero-padded to the longer.
func (s *Set) Blend(pair Pair, factor float64) Pair {
	if factor >= 1 {
		return pair
	}
	if factor <= 0 {
		return s.neutral
	}
	return Pair{
		Left:  blendSlice(s.neutral.Left, pair.Left, factor),
		Right: blendSlice(s.neutral.Right, pair.Right, factor),
	}
}

func blendSlice(neutral, target []float64, factor float64) []float64 {
	n := len(target)
	if len(neutral) > n {
		n = len(neutral)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var a, b float64
		if i < len(neutral) {
			a = neutral[i]
		}
		if i < len(target) {
			b = target[i]
		}
		out[i] = a*(1-factor) + b*factor
	}
	return out
}

// NeutralDirac builds a single-channel "dirac+delay" IR: a unit impulse
// delayed by delaySamples, used to populate a Set's neutral pair when no
// dedicated near-field measurement is available.
func NeutralDirac(length, delaySamples int) []float64 {
	ir := make([]float64, length)
	if delaySamples >= 0 && delaySamples < length {
		ir[delaySamples] = 1
	}
	return ir
}

// Channel is one ear's dynamic-filter convolver: it owns its own Input
// (so left and right ears of the same source see independent FFT
// history, matching the teacher's per-SourceChannel Convolver::Output
// design) and Filter.
type Channel struct {
	input  *convolver.Input
	filter *convolver.Filter
	output *convolver.Output
}

// NewChannel builds a Channel with the given block size and partition
// count (derived from the loaded IR length via
// convolver.PartitionCount).
func NewChannel(blockSize, partitions int) *Channel {
	in := convolver.NewInput(blockSize, partitions)
	filt := convolver.NewDynamicFilter(blockSize, partitions)
	return &Channel{input: in, filter: filt, output: convolver.NewOutput(in, filt)}
}

// Feed writes one block of the (mono) source signal into this ear's
// Input.
func (c *Channel) Feed(block []float64) {
	c.input.AddBlock(block)
}

// SetIR swaps in a new impulse response, via the Filter's time-aligned
// queue; its first partition applies immediately, and it takes full
// effect only after PartitionCount()-1 further RotateQueues calls.
func (c *Channel) SetIR(ir []float64) {
	c.filter.SetFilterFromTime(ir)
}

// RotateQueues advances the filter's per-partition queues by one block.
func (c *Channel) RotateQueues() {
	c.filter.RotateQueues()
}

// QueuesEmpty reports whether a pending SetIR has fully propagated.
func (c *Channel) QueuesEmpty() bool {
	return c.filter.QueuesEmpty()
}

// ConvolveRaw runs one block of convolution at unit weight, returning
// the Channel's owned output buffer (valid until the next ConvolveRaw
// call). Weighting is applied separately by the caller so that a single
// convolution can serve both the previous and current block's weighted
// crossfade in combine's `change` mode.
func (c *Channel) ConvolveRaw() []float64 {
	return c.output.Convolve(1.0)
}
