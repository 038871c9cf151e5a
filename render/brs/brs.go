// Package brs implements binaural room synthesis (BRS): identical
// ear-convolution machinery to render/binaural, but the IR pair is
// selected by the listener's own head orientation rather than by
// listener-relative source azimuth — the loaded BRIR set represents a
// single room recorded from a fixed source position, scanned as the
// listener's head turns.
//
// Grounded on original_source/src/binauralrenderer.h, the same
// SourceChannel-per-ear shape BRS reuses in the original implementation.
package brs

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

// Source is one BRS source: an input stream convolved through both ears
// against the BRIR pair indexed by the shared listener orientation.
// Most BRS setups register exactly one Source (the room recording), but
// nothing here assumes that.
type Source struct {
	blockSize int
	set       *earconv.Set

	listenerOrientation *rtcmd.SharedData[geometry.Orientation]
	params               *rtcmd.SharedData[renderer.Params]
	masterVolume         *rtcmd.SharedData[float64]
	masterCorrection     *rtcmd.SharedData[float64]

	left, right *earconv.Channel

	inputBlock []float64

	haveAngle              bool
	prevAngle              int
	prevWeight, currWeight float64

	leftPrev, leftCurr   []float64
	rightPrev, rightCurr []float64

	LeftContrib, RightContrib combine.Contribution
}

// NewSource builds a Source.
func NewSource(
	proc *mimo.Processor,
	blockSize, partitions int,
	set *earconv.Set,
	listenerOrientation *rtcmd.SharedData[geometry.Orientation],
	initialParams renderer.Params,
	masterVolume, masterCorrection *rtcmd.SharedData[float64],
) *Source {
	return &Source{
		blockSize:            blockSize,
		set:                  set,
		listenerOrientation:  listenerOrientation,
		params:               rtcmd.NewSharedData(proc.Commands(), initialParams),
		masterVolume:         masterVolume,
		masterCorrection:     masterCorrection,
		left:                 earconv.NewChannel(blockSize, partitions),
		right:                earconv.NewChannel(blockSize, partitions),
		inputBlock:           make([]float64, blockSize),
		leftPrev:             make([]float64, blockSize),
		leftCurr:             make([]float64, blockSize),
		rightPrev:            make([]float64, blockSize),
		rightCurr:            make([]float64, blockSize),
	}
}

// SetParams updates the source's gain/mute/processing-enabled state.
// NRT only.
func (s *Source) SetParams(p renderer.Params) {
	s.params.Write(p)
}

// Feed stages this period's input block.
func (s *Source) Feed(block []float64) {
	copy(s.inputBlock, block)
}

// Process runs one block: selects the BRIR pair for the current
// listener orientation (scanning the opposite way the head turns, so a
// head turn to the right picks the IR recorded to the source's left),
// convolves, and computes this block's contribution.
func (s *Source) Process() {
	orientation := s.listenerOrientation.Read()
	params := s.params.Read()

	angleDeg := normalizeDeg(int(math.Round(-orientation.Degrees())))
	angleChanged := !s.haveAngle || angleDeg != s.prevAngle
	s.haveAngle = true
	s.prevAngle = angleDeg

	irChanged := false
	if pair, ok := s.set.Nearest(angleDeg); ok && angleChanged {
		s.left.SetIR(pair.Left)
		s.right.SetIR(pair.Right)
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

// Renderer is the BRS RendererBase specialization. It carries one
// additional scene-wide cell beyond renderer.Base: the listener's
// current head orientation, shared by every Source's IR selection.
type Renderer struct {
	proc      *mimo.Processor
	base      *renderer.Base[*Source]
	scheduled *rtlist.List[mimo.Item]
	order     *rtlist.List[*Source]

	listenerOrientation *rtcmd.SharedData[geometry.Orientation]

	blockSize int
	combiner  *combine.Combiner

	leftContribs, rightContribs []combine.Contribution
}

// NewRenderer constructs a Renderer bound to proc.
func NewRenderer(proc *mimo.Processor, blockSize int) *Renderer {
	return &Renderer{
		proc:                proc,
		base:                renderer.NewBase[*Source](proc),
		scheduled:           proc.RegisterList(),
		order:               rtlist.New[*Source](proc.Commands()),
		listenerOrientation: rtcmd.NewSharedData(proc.Commands(), geometry.Orientation(0)),
		blockSize:           blockSize,
		combiner:            combine.New(blockSize),
	}
}

// MasterVolume and MasterCorrection expose the Renderer's scene-wide
// SharedData cells, for host/OSC wiring.
func (r *Renderer) MasterVolume() *rtcmd.SharedData[float64]     { return r.base.MasterVolume }
func (r *Renderer) MasterCorrection() *rtcmd.SharedData[float64] { return r.base.MasterCorrection }

// SetListenerOrientation updates the head orientation every registered
// Source scans its BRIR set by. NRT only.
func (r *Renderer) SetListenerOrientation(o geometry.Orientation) {
	r.listenerOrientation.Write(o)
}

// AddSource builds and registers a new Source. NRT only.
func (r *Renderer) AddSource(
	partitions int,
	set *earconv.Set,
	initialParams renderer.Params,
) (renderer.SourceID, *Source) {
	src := NewSource(r.proc, r.blockSize, partitions, set, r.listenerOrientation, initialParams,
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
// and right.
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
