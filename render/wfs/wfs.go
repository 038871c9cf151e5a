// Package wfs implements wave field synthesis: per (source, loudspeaker)
// pair, compute a geometric delay, a
// loudspeaker-selection weight (including the focused-source sign flip),
// a 1/r distance weight and the loudspeaker's tapering weight; the
// source signal is pre-filtered once and written into a non-causal
// delay line that every loudspeaker reads back at its own computed
// delay; outputs crossfade-combine every source's contribution.
//
// Grounded on original_source/src/wfsrenderer.h. Only the WEIGHTING_OLD
// code path is ported — WEIGHTING_DELFT existed behind a commented-out
// #define in the original and was never the compiled behavior.
package wfs

import (
	"math"

	"github.com/doismellburning/ssrender/dsp/combine"
	"github.com/doismellburning/ssrender/dsp/convolver"
	"github.com/doismellburning/ssrender/dsp/delayline"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/engine/renderer"
	"github.com/doismellburning/ssrender/geometry"
	"github.com/doismellburning/ssrender/internal/rtcmd"
	"github.com/doismellburning/ssrender/internal/rtlist"
	"github.com/doismellburning/ssrender/internal/rtlog"
)

// speedOfSound is used to convert a geometric path-length difference
// into a delay in seconds.
const speedOfSound = 343.0

// safetyRadius bounds the 1/sqrt(distance) and 1/distance weighting
// terms away from a division by zero very close to a loudspeaker.
const safetyRadius = 0.01

// Model is a source's propagation model.
type Model int

const (
	// Point is a point source: spherical wavefronts, distance-attenuated.
	Point Model = iota
	// Plane is a plane wave: parallel wavefronts, no distance attenuation.
	Plane
)

// Loudspeaker is one fixed reproduction-setup loudspeaker.
type Loudspeaker struct {
	Position    geometry.Position
	Orientation geometry.Orientation
	// Weight is the tapering weight applied to this loudspeaker's
	// contribution (1 = full, 0 = muted by the taper window).
	Weight    float64
	Subwoofer bool
}

type wfsChannel struct {
	prevWeight, currWeight float64
	prevDelay, currDelay   int
	prevBlock, currBlock   []float64
	contrib                combine.Contribution
}

// Source is one WFS source: a pre-filter convolver feeding a non-causal
// delay line, plus one wfsChannel of crossfade state per loudspeaker.
type Source struct {
	r *Renderer

	model Model
	pose  *rtcmd.SharedData[geometry.DirectionalPoint]

	params           *rtcmd.SharedData[renderer.Params]
	masterVolume     *rtcmd.SharedData[float64]
	masterCorrection *rtcmd.SharedData[float64]

	preFilterInput  *convolver.Input
	preFilterOutput *convolver.Output
	delayLine       *delayline.BlockDelayLine

	inputBlock []float64
	channels   []wfsChannel
}

func newSource(r *Renderer, model Model, initialPose geometry.DirectionalPoint, initialParams renderer.Params) *Source {
	blockSize := r.blockSize
	in := convolver.NewInput(blockSize, r.preFilterPartitions)
	s := &Source{
		r:                r,
		model:            model,
		pose:             rtcmd.NewSharedData(r.proc.Commands(), initialPose),
		params:           rtcmd.NewSharedData(r.proc.Commands(), initialParams),
		masterVolume:     r.base.MasterVolume,
		masterCorrection: r.base.MasterCorrection,
		preFilterInput:   in,
		preFilterOutput:  convolver.NewOutput(in, r.preFilter),
		delayLine:        delayline.New(blockSize, r.maxDelay, r.initialDelay),
		inputBlock:       make([]float64, blockSize),
		channels:         make([]wfsChannel, len(r.loudspeakers)),
	}
	for i := range s.channels {
		s.channels[i].prevBlock = make([]float64, blockSize)
		s.channels[i].currBlock = make([]float64, blockSize)
	}
	return s
}

// SetPose updates the source's position and orientation. NRT only.
func (s *Source) SetPose(p geometry.DirectionalPoint) { s.pose.Write(p) }

// SetParams updates the source's gain/mute/processing-enabled state.
// NRT only.
func (s *Source) SetParams(p renderer.Params) { s.params.Write(p) }

// Feed stages this period's input block.
func (s *Source) Feed(block []float64) {
	copy(s.inputBlock, block)
}

// Process pre-filters and delay-line-writes the staged input, then
// computes every loudspeaker's crossfade contribution for this block.
func (s *Source) Process() {
	pose := s.pose.Read()
	params := s.params.Read()

	s.preFilterInput.AddBlock(s.inputBlock)
	filtered := s.preFilterOutput.Convolve(1.0)
	s.delayLine.WriteBlock(filtered)

	focused := s.isFocused(pose)
	gain := renderer.WeightingFactor(params, s.masterVolume.Read(), s.masterCorrection.Read())

	for i := range s.channels {
		ch := &s.channels[i]
		ch.prevWeight, ch.prevDelay = ch.currWeight, ch.currDelay

		weight, delayMeters := s.r.selectWeightAndDelay(s.r.loudspeakers[i], s.model, focused, pose, gain)
		delaySamples := int(math.Round(delayMeters / speedOfSound * s.r.sampleRate))

		if !s.delayLine.DelayIsValid(delaySamples) {
			s.r.log.Warnf("wfs: loudspeaker %d wants delay %d samples, out of range; muting this period", i, delaySamples)
			weight = 0
			delaySamples = 0
		}
		ch.currWeight, ch.currDelay = weight, delaySamples

		s.delayLine.ReadBlock(ch.prevDelay, ch.prevBlock)
		for j := range ch.prevBlock {
			ch.prevBlock[j] *= ch.prevWeight
		}
		s.delayLine.ReadBlock(ch.currDelay, ch.currBlock)
		for j := range ch.currBlock {
			ch.currBlock[j] *= ch.currWeight
		}

		delayChanged := ch.prevDelay != ch.currDelay
		mode := renderer.DetermineMode(ch.prevWeight, ch.currWeight, delayChanged, true)
		ch.contrib = combine.Contribution{Mode: mode, Prev: ch.prevBlock, Curr: ch.currBlock}
	}
}

// isFocused reports whether, for a point source, every non-subwoofer
// loudspeaker faces toward the source (a "focused" source sits between
// the listener and at least one loudspeaker, so none of them turn their
// back to it); plane waves are never focused.
func (s *Source) isFocused(pose geometry.DirectionalPoint) bool {
	if s.model == Plane {
		return false
	}
	ref := geometry.NewDirectionalPoint(s.r.referencePosition.Read(), s.r.referenceOrientation.Read())
	const halfPi = math.Pi / 2
	for _, ls := range s.r.loudspeakers {
		if ls.Subwoofer {
			continue
		}
		lsDP := geometry.NewDirectionalPoint(ls.Position, ls.Orientation).Transform(ref)
		a := wrap2pi(vectorOrientationAngle(lsDP.Position.Sub(pose.Position), lsDP.Orientation))
		if a < halfPi || a > 3*halfPi {
			return false
		}
	}
	return true
}

func vectorOrientationAngle(v geometry.Position, o geometry.Orientation) float64 {
	return v.Angle().Radians() - o.Radians()
}

func wrap2pi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}

// Renderer is the WFS RendererBase specialization: a fixed loudspeaker
// array, scene reference state, a shared pre-filter, and the usual
// source scheduling/combination plumbing.
type Renderer struct {
	proc      *mimo.Processor
	base      *renderer.Base[*Source]
	scheduled *rtlist.List[mimo.Item]
	order     *rtlist.List[*Source]

	loudspeakers []Loudspeaker
	blockSize    int
	sampleRate   float64

	preFilter            *convolver.Filter
	preFilterPartitions  int
	maxDelay, initialDelay int

	referencePosition          *rtcmd.SharedData[geometry.Position]
	referenceOrientation       *rtcmd.SharedData[geometry.Orientation]
	referenceOffset            *rtcmd.SharedData[geometry.DirectionalPoint]
	amplitudeReferenceDistance *rtcmd.SharedData[float64]

	combiner        *combine.Combiner
	contribsScratch [][]combine.Contribution

	log *rtlog.Ring
}

// NewRenderer constructs a Renderer over a fixed loudspeaker array,
// loading preFilterIR as the shared static pre-filter every source
// convolves through before its delay line.
func NewRenderer(proc *mimo.Processor, blockSize int, sampleRate float64, loudspeakers []Loudspeaker, preFilterIR []float64, maxDelay, initialDelay int) *Renderer {
	partitions := convolver.PartitionCount(len(preFilterIR), blockSize)
	r := &Renderer{
		proc:                       proc,
		base:                       renderer.NewBase[*Source](proc),
		loudspeakers:               loudspeakers,
		blockSize:                  blockSize,
		sampleRate:                 sampleRate,
		preFilter:                  convolver.NewStaticFilter(blockSize, preFilterIR),
		preFilterPartitions:        partitions,
		maxDelay:                   maxDelay,
		initialDelay:               initialDelay,
		referencePosition:          rtcmd.NewSharedData(proc.Commands(), geometry.NewPosition(0, 0)),
		referenceOrientation:       rtcmd.NewSharedData(proc.Commands(), geometry.Orientation(0)),
		referenceOffset:            rtcmd.NewSharedData(proc.Commands(), geometry.DirectionalPoint{}),
		amplitudeReferenceDistance: rtcmd.NewSharedData(proc.Commands(), 3.0),
		combiner:                   combine.New(blockSize),
		contribsScratch:            make([][]combine.Contribution, len(loudspeakers)),
		log:                        rtlog.NewRing(),
	}
	r.scheduled = proc.RegisterList()
	r.order = rtlist.New[*Source](proc.Commands())
	return r
}

// Log returns the Renderer's anomaly ring. Per-period runtime
// anomalies (an out-of-range loudspeaker delay, say) are pushed here
// rather than logged directly from the RT thread; the host drains it
// periodically (e.g. once per query cycle) via its own *log.Logger.
func (r *Renderer) Log() *rtlog.Ring { return r.log }

// MasterVolume and MasterCorrection expose the Renderer's scene-wide
// SharedData cells, for host/OSC wiring.
func (r *Renderer) MasterVolume() *rtcmd.SharedData[float64]     { return r.base.MasterVolume }
func (r *Renderer) MasterCorrection() *rtcmd.SharedData[float64] { return r.base.MasterCorrection }

// SetReference updates the scene reference position/orientation. NRT
// only.
func (r *Renderer) SetReference(p geometry.Position, o geometry.Orientation) {
	r.referencePosition.Write(p)
	r.referenceOrientation.Write(o)
}

// SetReferenceOffset updates the reference offset. NRT only.
func (r *Renderer) SetReferenceOffset(dp geometry.DirectionalPoint) {
	r.referenceOffset.Write(dp)
}

// SetAmplitudeReferenceDistance updates the distance used to normalize
// plane-wave amplitude. NRT only.
func (r *Renderer) SetAmplitudeReferenceDistance(d float64) {
	r.amplitudeReferenceDistance.Write(d)
}

// AddSource builds and registers a new Source. NRT only.
func (r *Renderer) AddSource(model Model, initialPose geometry.DirectionalPoint, initialParams renderer.Params) (renderer.SourceID, *Source) {
	src := newSource(r, model, initialPose, initialParams)
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
// loudspeaker's output block. outputs must have length
// len(loudspeakers), each of length blockSize.
func (r *Renderer) Process(outputs [][]float64) {
	n := len(r.loudspeakers)
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

// selectWeightAndDelay computes the loudspeaker-selection weight and
// geometric delay (in meters) for one (source, loudspeaker) pair, per
// original_source/src/wfsrenderer.h's RenderFunction::select.
func (r *Renderer) selectWeightAndDelay(ls Loudspeaker, model Model, focused bool, pose geometry.DirectionalPoint, sourceGain float64) (weight, delay float64) {
	ref := geometry.NewDirectionalPoint(r.referencePosition.Read(), r.referenceOrientation.Read())
	refOffset := r.referenceOffset.Read().Transform(ref)
	lsDP := geometry.NewDirectionalPoint(ls.Position, ls.Orientation).Transform(ref)

	referenceDistance := lsDP.Position.Sub(refOffset.Position).Norm()
	srcPos := pose.Position

	weight = 1
	delay = 0

	switch model {
	case Point:
		if ls.Subwoofer {
			delay = srcPos.Sub(refOffset.Position).Norm() - referenceDistance
			if math.Abs(delay) < safetyRadius {
				weight = 1 / math.Sqrt(safetyRadius)
			} else {
				weight = 1 / math.Sqrt(math.Abs(delay))
			}
			break
		}

		v := lsDP.Position.Sub(srcPos)
		delay = v.Norm()
		denom := math.Sqrt(math.Max(delay, safetyRadius))
		cosAngle := 1.0
		if delay > 0 {
			cosAngle = v.Dot(lsDP.Orientation.Unit()) / delay
		}
		weight = cosAngle / denom

		switch {
		case weight < 0:
			if focused {
				lhs := lsDP.Position.Sub(srcPos)
				rhs := refOffset.Position.Sub(srcPos)
				if lhs.Dot(rhs) < 0 {
					delay = -delay
					weight = -weight
				} else {
					weight = 0
				}
			} else {
				weight = 0
			}
		case weight > 0:
			if focused {
				weight = 0
			}
		default:
			weight = 0
		}

	case Plane:
		if ls.Subwoofer {
			weight = 1
			delay = geometry.NewDirectionalPoint(srcPos, pose.Orientation).PlaneToPointDistance(refOffset.Position) - referenceDistance
			break
		}
		weight = math.Cos(pose.Orientation.Sub(lsDP.Orientation).Radians())
		if weight < 0 {
			weight = 0
		} else {
			delay = geometry.NewDirectionalPoint(srcPos, pose.Orientation).PlaneToPointDistance(lsDP.Position)
		}
	}

	if model == Plane {
		weight *= 0.5 / r.amplitudeReferenceDistance.Read()
	} else {
		sourceDistance := math.Max(srcPos.Sub(refOffset.Position).Norm(), 0.5)
		weight *= 0.5 / sourceDistance
	}

	weight *= sourceGain
	weight *= ls.Weight

	return weight, delay
}
