// Package generic implements a generic matrix-of-FIRs renderer: each
// source carries one static FIR per loudspeaker (a full IR matrix, one
// column per output), convolved against the source's input and
// crossfade-combined at each output.
//
// Grounded on original_source/src/genericrenderer.h: one
// apf::StaticConvolver per (source, loudspeaker) pair sharing the
// source's FFT'd input history, with the crossfade driven by convolving
// twice per block (once at the old weighting factor, once at the new
// one) rather than scaling a single convolution afterward — this
// renderer follows that exact shape instead of the binaural/BRS
// renderers' single-convolution-scaled-twice trick, since it's what the
// original genericrenderer.h actually does.
package generic

import (
	"github.com/doismellburning/ssrender/dsp/combine"
	"github.com/doismellburning/ssrender/dsp/convolver"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/engine/renderer"
	"github.com/doismellburning/ssrender/internal/rtcmd"
	"github.com/doismellburning/ssrender/internal/rtlist"
)

type channel struct {
	output               *convolver.Output
	prevBlock, currBlock []float64
	contrib              combine.Contribution
}

// Source is one generic-renderer source: a shared FFT'd input history
// and one static-filter Output per loudspeaker.
type Source struct {
	blockSize int

	params           *rtcmd.SharedData[renderer.Params]
	masterVolume     *rtcmd.SharedData[float64]
	masterCorrection *rtcmd.SharedData[float64]

	input    *convolver.Input
	channels []channel

	inputBlock             []float64
	prevWeight, currWeight float64
}

// newSource builds a Source whose irMatrix[i] is the impulse response
// driving loudspeaker i; all irMatrix rows must share the sample rate
// of the engine (checked by the host's file loader, outside this
// package).
func newSource(r *Renderer, irMatrix [][]float64, initialParams renderer.Params) *Source {
	blockSize := r.blockSize
	maxPartitions := 1
	for _, ir := range irMatrix {
		if p := convolver.PartitionCount(len(ir), blockSize); p > maxPartitions {
			maxPartitions = p
		}
	}
	in := convolver.NewInput(blockSize, maxPartitions)
	s := &Source{
		blockSize:        blockSize,
		params:           rtcmd.NewSharedData(r.proc.Commands(), initialParams),
		masterVolume:     r.base.MasterVolume,
		masterCorrection: r.base.MasterCorrection,
		input:            in,
		channels:         make([]channel, len(irMatrix)),
		inputBlock:       make([]float64, blockSize),
	}
	for i, ir := range irMatrix {
		filt := convolver.NewStaticFilter(blockSize, ir)
		s.channels[i] = channel{
			output:    convolver.NewOutput(in, filt),
			prevBlock: make([]float64, blockSize),
			currBlock: make([]float64, blockSize),
		}
	}
	return s
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

// Process feeds the shared input history once, then convolves every
// loudspeaker channel at both the previous and current weighting
// factor, per original_source/src/genericrenderer.h's select/convolve
// split.
func (s *Source) Process() {
	params := s.params.Read()

	s.input.AddBlock(s.inputBlock)

	s.prevWeight = s.currWeight
	s.currWeight = renderer.WeightingFactor(params, s.masterVolume.Read(), s.masterCorrection.Read())

	for i := range s.channels {
		ch := &s.channels[i]
		if s.prevWeight == 0 && s.currWeight == 0 {
			ch.contrib = combine.Contribution{Mode: combine.Nothing}
			continue
		}

		copy(ch.prevBlock, ch.output.Convolve(s.prevWeight))
		copy(ch.currBlock, ch.output.Convolve(s.currWeight))

		mode := renderer.DetermineMode(s.prevWeight, s.currWeight, false, true)
		ch.contrib = combine.Contribution{Mode: mode, Prev: ch.prevBlock, Curr: ch.currBlock}
	}
}

// Renderer is the generic RendererBase specialization.
type Renderer struct {
	proc      *mimo.Processor
	base      *renderer.Base[*Source]
	scheduled *rtlist.List[mimo.Item]
	order     *rtlist.List[*Source]

	blockSize    int
	loudspeakers int

	combiner        *combine.Combiner
	contribsScratch [][]combine.Contribution
}

// NewRenderer constructs a Renderer for loudspeakers output channels.
func NewRenderer(proc *mimo.Processor, blockSize, loudspeakers int) *Renderer {
	r := &Renderer{
		proc:            proc,
		base:            renderer.NewBase[*Source](proc),
		blockSize:       blockSize,
		loudspeakers:    loudspeakers,
		combiner:        combine.New(blockSize),
		contribsScratch: make([][]combine.Contribution, loudspeakers),
	}
	r.scheduled = proc.RegisterList()
	r.order = rtlist.New[*Source](proc.Commands())
	return r
}

// MasterVolume and MasterCorrection expose the Renderer's scene-wide
// SharedData cells, for host/OSC wiring.
func (r *Renderer) MasterVolume() *rtcmd.SharedData[float64]     { return r.base.MasterVolume }
func (r *Renderer) MasterCorrection() *rtcmd.SharedData[float64] { return r.base.MasterCorrection }

// AddSource builds and registers a new Source. irMatrix must have
// exactly one row per loudspeaker, one per output channel of the
// generic renderer's IR file. NRT only.
func (r *Renderer) AddSource(irMatrix [][]float64, initialParams renderer.Params) (renderer.SourceID, *Source) {
	src := newSource(r, irMatrix, initialParams)
	id := r.base.AddSource(src)
	r.scheduled.Add(mimo.Item(src))
	r.order.Add(src)
	return id, src
}

// RemSource removes the source registered under id. NRT only.
func (r *Renderer) RemSource(id renderer.SourceID) bool {
	src, ok := r.base.RemSource(id)
	if !ok {
		return false
	}
	r.scheduled.Rem(mimo.Item(src), func(a, b mimo.Item) bool { return a == b }, func(mimo.Item) {})
	r.order.Rem(src, func(a, b *Source) bool { return a == b }, func(*Source) {})
	return true
}

// Process combines every live source's contribution into each
// loudspeaker's output block.
func (r *Renderer) Process(outputs [][]float64) {
	n := r.loudspeakers
	for i := 0; i < n; i++ {
		r.contribsScratch[i] = r.contribsScratch[i][:0]
	}
	r.order.Each(func(s *Source) {
		for i := 0; i < n; i++ {
			r.contribsScratch[i] = append(r.contribsScratch[i], s.channels[i].contrib)
		}
	})
	for i := 0; i < n; i++ {
		r.combiner.Combine(outputs[i], r.contribsScratch[i])
	}
}
