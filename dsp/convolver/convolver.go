// Package convolver implements a uniformly partitioned frequency-domain
// convolver: an Input stage that FFTs overlapping signal blocks, a
// Filter (Static or Dynamic) holding one partition spectrum per block
// of impulse response with queued, time-aligned filter swaps, and an
// Output stage that multiply-accumulates Input partitions against
// Filter partitions and inverse-FFTs the result.
//
// Grounded on original_source/apf/convolver.h. One simplification:
// rather than the bespoke interleaved-groups-of-8 real float layout
// that existed purely to target eight-wide SIMD multiply-add, partition
// spectra here are plain []complex128 half-complex bins (DC and Nyquist
// bins included, both with zero imaginary part). That packing was
// always an implementation detail of the original convolver, not
// exposed outside it — Go's compiler does not benefit from the
// hand-packed layout the way the teacher's SIMD kernel did, so the
// idiomatic choice is the plain complex slice; the observable
// multiply-accumulate behavior is identical.
package convolver

import (
	"github.com/doismellburning/ssrender/dsp/fft"
)

// PartitionCount returns P = ceil(filterLen / blockSize), the number of
// partitions a Filter of the given length is split into.
func PartitionCount(filterLen, blockSize int) int {
	if filterLen <= 0 {
		return 1
	}
	return (filterLen + blockSize - 1) / blockSize
}

// partition is one half-complex spectrum: blockSize+1 complex bins plus
// a zero flag, mirroring apf's FftNode: if zero is true the consumer
// must treat the buffer as all-zeros regardless of contents.
type partition struct {
	bins []complex128
	zero bool
}

func newPartition(blockSize int) *partition {
	return &partition{bins: make([]complex128, blockSize+1), zero: true}
}

// Input is the signal side of the convolver: it FFTs each incoming
// block against the previous one (50% overlap) and retains a history
// of the last `capacity` partition spectra so that
// Outputs with up to `capacity` filter partitions can read them.
type Input struct {
	blockSize int
	capacity  int
	engine    *fft.Engine
	history   []*partition // ring, length capacity
	head      int          // index of the newest partition in history
	prevBlock []float64    // last raw block written, length blockSize
	frame     []float64    // scratch, length 2*blockSize
}

// NewInput constructs an Input able to serve up to `capacity` partitions
// of history (capacity should be the largest partition count of any
// Filter that will be convolved against this Input).
func NewInput(blockSize, capacity int) *Input {
	if capacity < 1 {
		capacity = 1
	}
	in := &Input{
		blockSize: blockSize,
		capacity:  capacity,
		engine:    fft.New(2 * blockSize),
		history:   make([]*partition, capacity),
		prevBlock: make([]float64, blockSize),
		frame:     make([]float64, 2*blockSize),
	}
	for i := range in.history {
		in.history[i] = newPartition(blockSize)
	}
	in.head = capacity - 1
	return in
}

// AddBlock feeds one new block (length blockSize) of input signal.
func (in *Input) AddBlock(src []float64) {
	if len(src) != in.blockSize {
		panic("convolver: AddBlock length mismatch")
	}
	copy(in.frame[:in.blockSize], in.prevBlock)
	copy(in.frame[in.blockSize:], src)

	zero := allZero(in.prevBlock) && allZero(src)

	in.head = (in.head + 1) % in.capacity
	p := in.history[in.head]
	p.zero = zero
	if !zero {
		in.engine.RealForward(in.frame, p.bins)
	}

	copy(in.prevBlock, src)
}

// partitionAt returns the partition spectrum k blocks old (k=0 is the
// block just added).
func (in *Input) partitionAt(k int) *partition {
	idx := ((in.head-k)%in.capacity + in.capacity) % in.capacity
	return in.history[idx]
}

func allZero(s []float64) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// filterQueue is one partition slot of a Filter: a pipeline of `depth`
// spectra, slot 0 the one currently convolved against ("front",
// currently audible), slot depth-1 the most recently written one
// ("back"). RotateQueues shifts every slot toward the front by one;
// pendingShifts counts how many shifts remain before the queue is fully
// settled on its latest value, tracked explicitly rather than inferred
// from an implicit last-slot convention.
type filterQueue struct {
	slots         []*partition
	pendingShifts int
}

func newFilterQueue(depth, blockSize int) *filterQueue {
	q := &filterQueue{slots: make([]*partition, depth)}
	initial := newPartition(blockSize)
	for i := range q.slots {
		q.slots[i] = initial
	}
	return q
}

func (q *filterQueue) set(p *partition) {
	depth := len(q.slots)
	q.slots[depth-1] = p
	q.pendingShifts = depth - 1
}

func (q *filterQueue) rotate() {
	if q.pendingShifts <= 0 {
		return
	}
	for i := 0; i < len(q.slots)-1; i++ {
		q.slots[i] = q.slots[i+1]
	}
	q.pendingShifts--
}

func (q *filterQueue) front() *partition {
	return q.slots[0]
}

func (q *filterQueue) empty() bool {
	return q.pendingShifts <= 0
}

// Filter holds one partition spectrum per block of impulse response,
// each behind a filterQueue so that a newly set filter comes into
// effect progressively: partition k (the contribution delayed by k
// blocks) becomes audible k blocks after SetFilter, so that after P-1
// calls to RotateQueues every partition is showing the new filter.
type Filter struct {
	blockSize      int
	partitionCount int
	queues         []*filterQueue
	engine         *fft.Engine
	dynamic        bool
}

// NewStaticFilter builds a Filter whose partitions never change after
// construction (every queue has depth 1, so SetFilter on construction
// takes effect immediately and there is nothing to rotate).
func NewStaticFilter(blockSize int, timeDomainIR []float64) *Filter {
	f := newFilter(blockSize, PartitionCount(len(timeDomainIR), blockSize), false)
	f.SetFilterFromTime(timeDomainIR)
	return f
}

// NewDynamicFilter builds a Filter with `partitionCount` partitions,
// each with queue depth k+1 for partition k, so that SetFilter calls
// take effect progressively over time as RotateQueues advances each
// queue.
func NewDynamicFilter(blockSize, partitionCount int) *Filter {
	return newFilter(blockSize, partitionCount, true)
}

func newFilter(blockSize, partitionCount int, dynamic bool) *Filter {
	f := &Filter{
		blockSize:      blockSize,
		partitionCount: partitionCount,
		engine:         fft.New(2 * blockSize),
		dynamic:        dynamic,
	}
	f.queues = make([]*filterQueue, partitionCount)
	for k := range f.queues {
		depth := 1
		if dynamic {
			depth = k + 1
		}
		f.queues[k] = newFilterQueue(depth, blockSize)
	}
	return f
}

// SetFilterFromTime computes partitionCount partition spectra from a
// time-domain impulse response (zero-padded as needed) and writes them
// to the back of each queue. For a Static filter this is typically
// called once, at construction; for a Dynamic filter it can be called
// repeatedly, and partitions come into effect progressively as
// RotateQueues is called.
func (f *Filter) SetFilterFromTime(ir []float64) {
	buf := make([]float64, 2*f.blockSize)
	for k := 0; k < f.partitionCount; k++ {
		start := k * f.blockSize
		end := start + f.blockSize
		for i := range buf {
			buf[i] = 0
		}
		zero := true
		if start < len(ir) {
			n := copy(buf[:f.blockSize], ir[start:min(end, len(ir))])
			for i := 0; i < n; i++ {
				if buf[i] != 0 {
					zero = false
				}
			}
		}
		p := newPartition(f.blockSize)
		p.zero = zero
		if !zero {
			f.engine.RealForward(buf, p.bins)
		}
		f.queues[k].set(p)
	}
}

// SetFilterFromFreq writes pre-computed partition spectra (e.g. produced
// by another convolver instance and exchanged as pre-packed
// half-complex partitions) directly to the back of each queue.
func (f *Filter) SetFilterFromFreq(bins [][]complex128) {
	for k := 0; k < f.partitionCount && k < len(bins); k++ {
		p := &partition{bins: bins[k]}
		p.zero = allZeroComplex(bins[k])
		f.queues[k].set(p)
	}
}

func allZeroComplex(bins []complex128) bool {
	for _, b := range bins {
		if b != 0 {
			return false
		}
	}
	return true
}

// RotateQueues advances every queue by one slot, but only for queues
// with a pending write.
func (f *Filter) RotateQueues() {
	for _, q := range f.queues {
		q.rotate()
	}
}

// QueuesEmpty reports whether every queue has fully settled on its
// latest value, i.e. a further RotateQueues call would be a no-op.
func (f *Filter) QueuesEmpty() bool {
	for _, q := range f.queues {
		if !q.empty() {
			return false
		}
	}
	return true
}

// PartitionCount returns the number of partitions this filter has.
func (f *Filter) PartitionCount() int {
	return f.partitionCount
}

// Output reads from one Input against one Filter and produces the
// convolved block.
type Output struct {
	blockSize int
	input     *Input
	filter    *Filter
	engine    *fft.Engine
	accum     []complex128
	timeBuf   []float64
}

// NewOutput binds input and filter, which must share the same block
// size and have filter.PartitionCount() <= input.capacity.
func NewOutput(input *Input, filter *Filter) *Output {
	blockSize := input.blockSize
	return &Output{
		blockSize: blockSize,
		input:     input,
		filter:    filter,
		engine:    fft.New(2 * blockSize),
		accum:     make([]complex128, blockSize+1),
		timeBuf:   make([]float64, 2*blockSize),
	}
}

// Convolve runs one block of partitioned convolution, scaling the
// result by weight (the SourceChannel's current weighting factor), and
// returns the resulting block (owned by the Output; valid until the
// next Convolve call).
func (o *Output) Convolve(weight float64) []float64 {
	for i := range o.accum {
		o.accum[i] = 0
	}

	anyNonZero := false
	p := o.filter.partitionCount
	for k := 0; k < p; k++ {
		sig := o.input.partitionAt(k)
		flt := o.filter.queues[k].front()
		if sig.zero || flt.zero {
			continue
		}
		anyNonZero = true
		for i := range o.accum {
			o.accum[i] += sig.bins[i] * flt.bins[i]
		}
	}

	if !anyNonZero {
		for i := range o.timeBuf[o.blockSize:] {
			o.timeBuf[o.blockSize+i] = 0
		}
		return o.timeBuf[o.blockSize:]
	}

	o.engine.RealInverse(o.accum, o.timeBuf)
	scale := weight / float64(2*o.blockSize)
	out := o.timeBuf[o.blockSize:]
	for i := range out {
		out[i] *= scale
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
