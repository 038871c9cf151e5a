// Package renderer implements the renderer-independent parts of
// RendererBase: a source-indexing map guarded by a non-RT mutex,
// scene-state SharedData cells for master volume and correction, the
// weighting-factor formula, crossfade-mode selection, and a
// master-level meter.
//
// Grounded on original_source/src/controller.h (add_source/rem_source
// source-indexing discipline) and apf/mimoprocessor.h's RendererBase.
// The pointer graph apf uses (Input <-> Source <-> SourceChannel <->
// Output) is dissolved here into arenas plus integer handles: Base's
// source map is keyed by SourceID, not by pointer, and concrete
// renderers own their own Source/Output/SourceChannel structs directly
// rather than through cross-pointers.
//
// The source map here is NRT-only, matching apf's add_source
// ("locks a non-RT mutex..."): the RT audio thread never touches
// Base's mutex. Per-block, RT-side parameter reads and
// weighting-factor computation happen inside each concrete Source's own
// Process() method, against state it owns directly (typically an
// rtcmd.SharedData[Params] cell) — never against this map.
package renderer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/doismellburning/ssrender/dsp/combine"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/internal/rtcmd"
)

// SourceID identifies one source within a Base's arena.
type SourceID int64

// Params is the set of per-source control parameters that feed the
// weighting-factor computation.
type Params struct {
	Gain              float64
	Mute              bool
	ProcessingEnabled bool
}

// WeightingFactor computes weighting_factor = gain * masterVolume *
// masterCorrection * (mute?0:1) * (processingEnabled?1:0).
func WeightingFactor(p Params, masterVolume, masterCorrection float64) float64 {
	if p.Mute || !p.ProcessingEnabled {
		return 0
	}
	return p.Gain * masterVolume * masterCorrection
}

// DetermineMode picks the combine.Mode for a contribution whose
// weighting factor went from prevWeight to currWeight, given whether
// any other parameter feeding the contribution changed this block and
// whether its filter queues (if any) are already empty: if all are
// equal and queues are empty, constant; if only the weighting changes,
// change; if previous weight was zero, fade_in; if new weight is zero,
// fade_out; if both are zero, nothing.
func DetermineMode(prevWeight, currWeight float64, otherParamsChanged, queuesEmpty bool) combine.Mode {
	switch {
	case prevWeight == 0 && currWeight == 0:
		return combine.Nothing
	case prevWeight == 0:
		return combine.FadeIn
	case currWeight == 0:
		return combine.FadeOut
	case !otherParamsChanged && queuesEmpty && prevWeight == currWeight:
		return combine.Constant
	default:
		return combine.Change
	}
}

// Base is the renderer-independent half of RendererBase<Derived>. S is
// the concrete renderer's Source payload type (e.g. a struct holding a
// convolver Output, a geometry cell, and an rtcmd.SharedData[Params]).
type Base[S any] struct {
	// Processor is the MimoProcessor this renderer schedules against.
	Processor *mimo.Processor

	// MasterVolume and MasterCorrection are scene-wide SharedData
	// cells: written from the NRT side (OSC/config), read from the RT
	// side inside each Source's Process().
	MasterVolume     *rtcmd.SharedData[float64]
	MasterCorrection *rtcmd.SharedData[float64]

	mu      sync.Mutex // NRT-only
	sources map[SourceID]S
	nextID  SourceID

	meterBits atomic.Uint64 // math.Float64bits of the master peak level
}

// NewBase constructs a Base bound to proc, with unity master volume and
// correction.
func NewBase[S any](proc *mimo.Processor) *Base[S] {
	return &Base[S]{
		Processor:        proc,
		MasterVolume:     rtcmd.NewSharedData(proc.Commands(), 1.0),
		MasterCorrection: rtcmd.NewSharedData(proc.Commands(), 1.0),
		sources:          make(map[SourceID]S),
	}
}

// AddSource allocates a new SourceID and stores data under it. The
// concrete renderer should have already built data's Input/SourceChannel
// wiring (and connected it to every existing Output) before calling
// this.
func (b *Base[S]) AddSource(data S) SourceID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.sources[id] = data
	return id
}

// RemSource removes and returns the source stored under id. ok is
// false if id was never registered or was already removed.
func (b *Base[S]) RemSource(id SourceID) (data S, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok = b.sources[id]
	if ok {
		delete(b.sources, id)
	}
	return data, ok
}

// Source looks up the payload stored under id.
func (b *Base[S]) Source(id SourceID) (data S, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok = b.sources[id]
	return data, ok
}

// Len returns the number of currently registered sources.
func (b *Base[S]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sources)
}

// Each calls fn once per currently registered source (NRT only — used
// for control-plane queries, e.g. listing sources for an OSC client;
// never call this from the RT audio path).
func (b *Base[S]) Each(fn func(id SourceID, data S)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, data := range b.sources {
		fn(id, data)
	}
}

// ReportLevel is called from the RT thread, at most once per block,
// with the current master peak level.
func (b *Base[S]) ReportLevel(level float64) {
	b.meterBits.Store(math.Float64bits(level))
}

// Level returns the most recently reported master peak level. Safe to
// call from the NRT thread at any time; lock-free.
func (b *Base[S]) Level() float64 {
	return math.Float64frombits(b.meterBits.Load())
}
