// Package binaural implements a headphone binaural renderer: each
// source is convolved, per ear, against the head-related impulse
// response for its listener-relative azimuth, picked from a loaded Set
// and blended toward a neutral near-field filter as the source
// approaches the listener.
//
// Grounded on original_source/src/binauralrenderer.h: one SourceChannel
// (here, earconv.Channel) per ear per source, an angle-indexed IR table,
// and per-block weighting-factor-driven crossfades into the combined
// stereo output.
package binaural

import (
	"math"

	"github.com/doismellburning/ssrender/dsp/combine"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/engine/renderer"
	"github.com/doismellburning/ssrender/geometry"
	"github.com/doismellburning/ssrender/internal/rtcmd"
	"github.com/doismellburning/ssrender/internal/rtlist"
	"github.com/doismellburning/ssrender/render/earconv"
)

// Source is one binaural source: a pair of earconv.Channels (one per
// ear), a listener-relative pose and control parameters held in
// SharedData cells, and the per-block state needed to compute this
// source's combine.Contribution for each ear.
type Source struct {
	blockSize  int
	set        *earconv.Set
	nearRadius float64

	pose             *rtcmd.SharedData[geometry.DirectionalPoint]
	params           *rtcmd.SharedData[renderer.Params]
	masterVolume     *rtcmd.SharedData[float64]
	masterCorrection *rtcmd.SharedData[float64]

	left, right *earconv.Channel

	inputBlock []float64

	haveAngle              bool
	prevAngle              int
	prevWeight, currWeight float64

	leftPrev, leftCurr   []float64
	rightPrev, rightCurr []float64

	// LeftContrib and RightContrib hold the result of the most recent
	// Process call; Renderer.Process reads them once every source in
	// the scheduled list has run.
	LeftContrib, RightContrib combine.Contribution
}

// NewSource builds a Source. initialPose and initialParams are visible
// to the RT thread immediately, matching the construction-time
// initialization SharedData cells use elsewhere in this codebase.
func NewSource(
	proc *mimo.Processor,
	blockSize, partitions int,
	set *earconv.Set,
	nearRadius float64,
	initialPose geometry.DirectionalPoint,
	initialParams renderer.Params,
	masterVolume, masterCorrection *rtcmd.SharedData[float64],
) *Source {
	return &Source{
		blockSize:        blockSize,
		set:              set,
		nearRadius:       nearRadius,
		pose:             rtcmd.NewSharedData(proc.Commands(), initialPose),
		params:           rtcmd.NewSharedData(proc.Commands(), initialParams),
		masterVolume:     masterVolume,
		masterCorrection: masterCorrection,
		left:             earconv.NewChannel(blockSize, partitions),
		right:            earconv.NewChannel(blockSize, partitions),
		inputBlock:       make([]float64, blockSize),
		leftPrev:         make([]float64, blockSize),
		leftCurr:         make([]float64, blockSize),
		rightPrev:        make([]float64, blockSize),
		rightCurr:        make([]float64, blockSize),
	}
}

// SetPose updates the source's listener-relative position and
// orientation. NRT only.
func (s *Source) SetPose(p geometry.DirectionalPoint) {
	s.pose.Write(p)
}

// SetParams updates the source's gain/mute/processing-enabled state.
// NRT only.
func (s *Source) SetParams(p renderer.Params) {
	s.params.Write(p)
}

// Feed stages this period's input block. Called once per period, from
// the RT thread, before the Processor's scheduled list (and so this
// Source's Process) runs.
func (s *Source) Feed(block []float64) {
	copy(s.inputBlock, block)
}

// Process runs one block: selects (and, if the angle changed, swaps in)
// the IR pair for the source's current listener-relative azimuth,
// convolves the staged input through both ears, and computes this
// block's weighted contribution to the combined stereo output.
func (s *Source) Process() {
	pose := s.pose.Read()
	params := s.params.Read()

	angleDeg := normalizeDeg(int(math.Round(pose.RelativeAngle().Degrees())))
	distance := pose.Position.Norm()

	angleChanged := !s.haveAngle || angleDeg != s.prevAngle
	s.haveAngle = true
	s.prevAngle = angleDeg

	irChanged := false
	factor := 1.0
	if s.nearRadius > 0 && distance < s.nearRadius {
		factor = distance / s.nearRadius
	}
	if pair, ok := s.set.Nearest(angleDeg); ok && (angleChanged || factor < 1) {
		blended := s.set.Blend(pair, factor)
		s.left.SetIR(blended.Left)
		s.right.SetIR(blended.Right)
		irChanged = true
	}

	s.left.RotateQueues()
	s.right.RotateQueues()

	s.left.Feed(s.inputBlock)
	s.right.Feed(s.inputBlock)

	s.prevWeight = s.currWeight
	s.currWeight = renderer.WeightingFactor(params, s.masterVolume.Read(), s.masterCorrection.Read())

	rawL := s.left.ConvolveRaw()
	for i, v := range rawL {
		s.leftPrev[i] = v * s.prevWeight
		s.leftCurr[i] = v * s.currWeight
	}
	rawR := s.right.ConvolveRaw()
	for i, v := range rawR {
		s.rightPrev[i] = v * s.prevWeight
		s.rightCurr[i] = v * s.currWeight
	}

	queuesEmpty := s.left.QueuesEmpty() && s.right.QueuesEmpty()
	mode := renderer.DetermineMode(s.prevWeight, s.currWeight, irChanged, queuesEmpty)

	s.LeftContrib = combine.Contribution{Mode: mode, Prev: s.leftPrev, Curr: s.leftCurr}
	s.RightContrib = combine.Contribution{Mode: mode, Prev: s.rightPrev, Curr: s.rightCurr}
}

func normalizeDeg(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Renderer is the binaural RendererBase specialization: it schedules
// Sources across the Processor's worker pool and combines their ear
// contributions into the two-channel headphone output every block.
type Renderer struct {
	proc      *mimo.Processor
	base      *renderer.Base[*Source]
	scheduled *rtlist.List[mimo.Item]
	order     *rtlist.List[*Source] // RT-visible, iterated by Process to combine output

	blockSize int
	combiner  *combine.Combiner

	leftContribs, rightContribs []combine.Contribution
}

// NewRenderer constructs a Renderer bound to proc.
func NewRenderer(proc *mimo.Processor, blockSize int) *Renderer {
	return &Renderer{
		proc:      proc,
		base:      renderer.NewBase[*Source](proc),
		scheduled: proc.RegisterList(),
		order:     rtlist.New[*Source](proc.Commands()),
		blockSize: blockSize,
		combiner:  combine.New(blockSize),
	}
}

// MasterVolume and MasterCorrection expose the Renderer's scene-wide
// SharedData cells, for host/OSC wiring.
func (r *Renderer) MasterVolume() *rtcmd.SharedData[float64]     { return r.base.MasterVolume }
func (r *Renderer) MasterCorrection() *rtcmd.SharedData[float64] { return r.base.MasterCorrection }

// AddSource builds and registers a new Source. NRT only.
func (r *Renderer) AddSource(
	partitions int,
	set *earconv.Set,
	nearRadius float64,
	initialPose geometry.DirectionalPoint,
	initialParams renderer.Params,
) (renderer.SourceID, *Source) {
	src := NewSource(r.proc, r.blockSize, partitions, set, nearRadius, initialPose, initialParams,
		r.base.MasterVolume, r.base.MasterCorrection)
	id := r.base.AddSource(src)
	r.scheduled.Add(mimo.Item(src))
	r.order.Add(src)
	return id, src
}

// RemSource removes and tears down the source registered under id. NRT
// only.
func (r *Renderer) RemSource(id renderer.SourceID) bool {
	src, ok := r.base.RemSource(id)
	if !ok {
		return false
	}
	r.scheduled.Rem(mimo.Item(src), func(a, b mimo.Item) bool { return a == b }, func(mimo.Item) {})
	r.order.Rem(src, func(a, b *Source) bool { return a == b }, func(*Source) {})
	return true
}

// Process combines every live source's per-ear contribution into left
// and right, each of length blockSize. Called as the Processor's
// process callback, after the scheduled source list's barrier.
func (r *Renderer) Process(left, right []float64) {
	r.leftContribs = r.leftContribs[:0]
	r.rightContribs = r.rightContribs[:0]
	r.order.Each(func(s *Source) {
		r.leftContribs = append(r.leftContribs, s.LeftContrib)
		r.rightContribs = append(r.rightContribs, s.RightContrib)
	})
	r.combiner.Combine(left, r.leftContribs)
	r.combiner.Combine(right, r.rightContribs)
}
