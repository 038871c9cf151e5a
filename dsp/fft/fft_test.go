package fft

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealForwardInverseRoundTrip(t *testing.T) {
	const n = 16
	e := New(n)

	time := make([]float64, n)
	for i := range time {
		time[i] = math.Sin(2 * math.Pi * float64(i) / n)
	}

	bins := make([]complex128, n/2+1)
	e.RealForward(time, bins)

	out := make([]float64, n)
	e.RealInverse(bins, out)

	for i := range out {
		assert.InDelta(t, time[i]*n, out[i], 1e-9)
	}
}

func TestDiracSpectrumIsFlat(t *testing.T) {
	const n = 8
	e := New(n)

	time := make([]float64, n)
	time[0] = 1

	bins := make([]complex128, n/2+1)
	e.RealForward(time, bins)

	for _, b := range bins {
		assert.InDelta(t, 1, real(b), 1e-9)
		assert.InDelta(t, 0, imag(b), 1e-9)
	}
}
