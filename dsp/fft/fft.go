// Package fft implements the small power-of-two real FFT the convolver
// needs. Block sizes are always a power of two, so a straightforward
// iterative radix-2 Cooley-Tukey transform is sufficient — there is no
// need for a general mixed-radix implementation.
//
// No FFT library appears anywhere in the retrieved example corpus (the
// one reference implementation that uses one, other_examples'
// CWBudde-algo-dsp partitioned convolver, depends on a module
// (github.com/cwbudde/algo-fft) that was not itself retrieved as a
// teacher or dependency), so this is hand-rolled against
// original_source/apf/convolver.h's description of the transform step.
package fft

import "math"

// Engine is a cached FFT plan for a fixed transform length n, mirroring
// the teacher's DESIGN NOTES ("FFTW plans ... cached per block size").
// n must be a power of two.
type Engine struct {
	n        int
	twiddles []complex128 // precomputed e^{-2πi k/n} for k in [0, n/2)
	revBits  []int        // bit-reversal permutation table
	scratch  []complex128 // reused across Forward/Inverse calls — not safe for concurrent use
}

// New constructs an Engine for transforms of length n, which must be a
// power of two and at least 2.
func New(n int) *Engine {
	if n < 2 || n&(n-1) != 0 {
		panic("fft: length must be a power of two >= 2")
	}
	e := &Engine{n: n}
	e.twiddles = make([]complex128, n/2)
	for k := range e.twiddles {
		theta := -2 * math.Pi * float64(k) / float64(n)
		s, c := math.Sincos(theta)
		e.twiddles[k] = complex(c, s)
	}
	e.revBits = make([]int, n)
	bits := bitsFor(n)
	for i := range e.revBits {
		e.revBits[i] = reverseBits(i, bits)
	}
	e.scratch = make([]complex128, n)
	return e
}

// Len returns the transform length n.
func (e *Engine) Len() int {
	return e.n
}

// complexFFT runs an in-place iterative radix-2 FFT (forward, i.e.
// exponent e^{-2πi}) on buf, which must have length e.n.
func (e *Engine) complexFFT(buf []complex128) {
	n := e.n
	for i, ri := range e.revBits {
		if ri > i {
			buf[i], buf[ri] = buf[ri], buf[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		stride := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				w := e.twiddles[k*stride]
				a := buf[start+k]
				b := buf[start+k+half] * w
				buf[start+k] = a + b
				buf[start+k+half] = a - b
			}
		}
	}
}

// RealForward transforms the real-valued time-domain block (length e.n)
// into its half-complex spectrum, n/2+1 complex bins (bin 0 is DC, bin
// n/2 is Nyquist; both have zero imaginary part).
func (e *Engine) RealForward(timeDomain []float64, bins []complex128) {
	n := e.n
	scratch := e.scratch
	for i, v := range timeDomain {
		scratch[i] = complex(v, 0)
	}
	e.complexFFT(scratch)
	copy(bins, scratch[:n/2+1])
}

// RealInverse transforms a half-complex spectrum (n/2+1 bins) back into
// a real-valued time-domain block of length e.n, without the 1/n
// scaling — callers scale explicitly, typically by weight /
// (2*block_size) to fold in both the inverse-transform normalization
// and the source's weighting factor in one pass.
func (e *Engine) RealInverse(bins []complex128, timeDomain []float64) {
	n := e.n
	scratch := e.scratch
	copy(scratch, bins[:n/2+1])
	for k := 1; k < n/2; k++ {
		scratch[n-k] = cmplx128Conj(bins[k])
	}
	// Inverse FFT: conjugate, forward FFT, conjugate and scale by n —
	// but since we deliberately skip the 1/n scaling (callers do it),
	// we skip the final division here too.
	for i := range scratch {
		scratch[i] = cmplx128Conj(scratch[i])
	}
	e.complexFFT(scratch)
	for i := range timeDomain {
		timeDomain[i] = real(cmplx128Conj(scratch[i]))
	}
}

func cmplx128Conj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func bitsFor(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}

func reverseBits(x, bits int) int {
	r := 0
	for i := 0; i < bits; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}
