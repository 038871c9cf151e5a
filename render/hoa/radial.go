package hoa

import (
	"math"

	"github.com/doismellburning/ssrender/dsp/biquad"
)

// speedOfSound, shared with the wfs package's copy, is kept local here
// rather than factored into geometry: the two renderers are grounded on
// different teacher files, and original_source/src/ssr_global.h doesn't
// tie them together beyond both using "ssr::c".
const speedOfSound = 343.0

// reverseBesselCoefficients returns the m+1 coefficients (index i is
// the coefficient of x^i) of the reverse Bessel polynomial of degree m:
// coeff[i] = (m+i)! / ((m-i)! * i! * 2^i). Its roots are the poles of
// the order-m near-field-compensation radial filter: a stable,
// maximally-flat-delay all-pole approximation of the circular
// propagation model used throughout NFC-HOA, the same construction
// original_source/src/hoacoefficients.h names but whose source was not
// retrieved alongside nfchoarenderer.h — reconstructed here from the
// well-known closed form (Ahrens, "Analytic Methods of Sound Field
// Synthesis", §2.4's near-field compensation filters).
func reverseBesselCoefficients(m int) []float64 {
	coeffs := make([]float64, m+1)
	for i := 0; i <= m; i++ {
		coeffs[i] = fact(m+i) / (fact(m-i) * fact(i) * math.Pow(2, float64(i)))
	}
	return coeffs
}

func fact(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// polyRoots finds the complex roots of the polynomial with the given
// real coefficients (coeffs[i] is the coefficient of x^i) via the
// Durand-Kerner (Weierstrass) iteration, adequate for the modest
// degrees (ambisonics order, typically well under 32) a loudspeaker
// array's mode count ever reaches.
func polyRoots(coeffs []float64) []complex128 {
	deg := len(coeffs) - 1
	if deg <= 0 {
		return nil
	}
	norm := make([]float64, deg+1)
	lead := coeffs[deg]
	for i := range coeffs {
		norm[i] = coeffs[i] / lead
	}

	roots := make([]complex128, deg)
	for i := range roots {
		theta := 2 * math.Pi * float64(i) / float64(deg)
		roots[i] = complex(0.4+0.9*math.Cos(theta), 0.9*math.Sin(theta))
	}

	evaluate := func(x complex128) complex128 {
		v := complex(0, 0)
		for i := deg; i >= 0; i-- {
			v = v*x + complex(norm[i], 0)
		}
		return v
	}

	for iter := 0; iter < 500; iter++ {
		maxDelta := 0.0
		for i := range roots {
			denom := complex(1, 0)
			for j := range roots {
				if j != i {
					denom *= roots[i] - roots[j]
				}
			}
			delta := evaluate(roots[i]) / denom
			roots[i] -= delta
			if d := cmplxAbs(delta); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < 1e-12 {
			break
		}
	}
	return roots
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// besselRootsCache memoizes the roots of the degree-m reverse Bessel
// polynomial: they depend only on the mode order, not on distance or
// array radius, so every Mode of every Source sharing an order reuses
// the same roots, scaled differently per mode by radialSections.
var besselRootsCache = map[int][]complex128{}

func besselRoots(m int) []complex128 {
	if r, ok := besselRootsCache[m]; ok {
		return r
	}
	r := polyRoots(reverseBesselCoefficients(m))
	besselRootsCache[m] = r
	return r
}

// radialSections builds the cascade of biquad.Section values realizing
// the order-m NFC-HOA radial filter
//
//	H_m(s) = (arrayRadius/distance)^m * θ_m(s*arrayRadius/c) / θ_m(s*distance/c)
//
// where θ_m is the reverse Bessel polynomial of degree m: a stable
// all-pole (for distance >= arrayRadius) compensation filter whose
// zeros are θ_m's roots scaled by c/arrayRadius and whose poles are the
// same roots scaled by c/distance, discretized via the bilinear
// transform. ceil(m/2) sections are produced: conjugate root pairs
// become one second-order section each, and a leftover real root (odd
// m) becomes a one-pole/one-zero analog section (b2 = a2 = 0) before
// discretization.
func radialSections(m int, distance, arrayRadius, sampleRate float64) []biquad.Section {
	if m == 0 {
		return []biquad.Section{{B0: 1}}
	}

	roots := besselRoots(m)
	zeroScale := speedOfSound / arrayRadius
	poleScale := speedOfSound / distance

	pairs := pairConjugates(roots)
	sections := make([]biquad.Section, 0, len(pairs))
	c := 2 * sampleRate

	for _, pr := range pairs {
		zero1 := pr[0] * complex(zeroScale, 0)
		var zero2 complex128
		pole1 := pr[0] * complex(poleScale, 0)
		var pole2 complex128
		real1 := len(pr) == 1

		var b2, b1, b0, a2, a1, a0 float64
		if real1 {
			zr := real(zero1)
			pr0 := real(pole1)
			b2, b1, b0 = 0, 1, -zr
			a2, a1, a0 = 0, 1, -pr0
		} else {
			zero2 = pr[1] * complex(zeroScale, 0)
			pole2 = pr[1] * complex(poleScale, 0)
			// (s - z1)(s - z2) = s^2 - (z1+z2)s + z1*z2, real-valued
			// since z2 = conj(z1).
			b2, b1, b0 = 1, -2*real(zero1), cmplxAbs(zero1)*cmplxAbs(zero2)
			a2, a1, a0 = 1, -2*real(pole1), cmplxAbs(pole1)*cmplxAbs(pole2)
		}

		sections = append(sections, bilinearBiquad(b2, b1, b0, a2, a1, a0, c))
	}
	return sections
}

// pairConjugates groups roots into complex-conjugate pairs (each
// represented as a two-element slice) or, for an unpaired real root, a
// one-element slice. Reverse Bessel polynomial roots always come in
// such pairs, plus at most one real root when the degree is odd.
func pairConjugates(roots []complex128) [][]complex128 {
	used := make([]bool, len(roots))
	var pairs [][]complex128
	for i := range roots {
		if used[i] {
			continue
		}
		if math.Abs(imag(roots[i])) < 1e-9 {
			used[i] = true
			pairs = append(pairs, []complex128{roots[i]})
			continue
		}
		for j := i + 1; j < len(roots); j++ {
			if used[j] {
				continue
			}
			if math.Abs(real(roots[j])-real(roots[i])) < 1e-6 &&
				math.Abs(imag(roots[j])+imag(roots[i])) < 1e-6 {
				used[i], used[j] = true, true
				pairs = append(pairs, []complex128{roots[i], roots[j]})
				break
			}
		}
	}
	return pairs
}

// bilinearBiquad converts a continuous-time second-order section
// H(s) = (b2 s^2 + b1 s + b0) / (a2 s^2 + a1 s + a0) to a discrete-time
// Section via the substitution s = c*(1-z^-1)/(1+z^-1), c = 2*sampleRate
// (no frequency prewarping: the NFC-HOA radial filters are broadband
// shelving responses, not narrowband resonances, so the small warping
// error near Nyquist is immaterial — matching the "preliminary
// implementation" caveat original_source/src/nfchoarenderer.h itself
// prints at load time).
func bilinearBiquad(b2, b1, b0, a2, a1, a0, c float64) biquad.Section {
	cc := c * c
	bigB0 := b2*cc + b1*c + b0
	bigB1 := 2 * (b0 - b2*cc)
	bigB2 := b2*cc - b1*c + b0
	bigA0 := a2*cc + a1*c + a0
	bigA1 := 2 * (a0 - a2*cc)
	bigA2 := a2*cc - a1*c + a0

	return biquad.Section{
		B0: bigB0 / bigA0,
		B1: bigB1 / bigA0,
		B2: bigB2 / bigA0,
		A1: bigA1 / bigA0,
		A2: bigA2 / bigA0,
	}
}
