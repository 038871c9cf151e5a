// Package biquad implements a cascade of direct-form-II-transposed
// second-order IIR sections, with sample-by-sample linear coefficient
// interpolation across a block.
//
// Grounded on original_source/src/nfchoarenderer.h's Mode::_process,
// which runs a cascaded apf::BiQuad filter (apf::Cascade<BiQuad>)
// against a source's samples, interpolating the cascade's coefficients
// sample-by-sample across a block whenever they change (via
// interpolate_coefficients) and running the block unchanged otherwise.
package biquad

// Section holds one second-order section's coefficients in direct
// form II transposed, normalized so the leading denominator
// coefficient is 1.
type Section struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// identitySection passes its input through unchanged.
func identitySection() Section {
	return Section{B0: 1}
}

// Cascade is a fixed-length chain of Sections sharing no state across
// distinct Cascades; each section keeps its own two-element delay
// line (z1, z2).
type Cascade struct {
	sections []Section
	z1, z2   []float64
}

// New builds a Cascade of n identity sections (n must match the
// longest coefficient set ever installed via SetSections or
// ProcessInterpolated).
func New(n int) *Cascade {
	c := &Cascade{
		sections: make([]Section, n),
		z1:       make([]float64, n),
		z2:       make([]float64, n),
	}
	for i := range c.sections {
		c.sections[i] = identitySection()
	}
	return c
}

// SetSections replaces the cascade's coefficients without touching
// delay-line state (used when the caller already knows no audible
// discontinuity will result, e.g. at construction).
func (c *Cascade) SetSections(sections []Section) {
	copy(c.sections, sections)
}

// Process runs in through the cascade using its current coefficients,
// unchanged across the block.
func (c *Cascade) Process(in, out []float64) {
	for i, x := range in {
		out[i] = c.runSample(x)
	}
}

// ProcessInterpolated runs in through the cascade, linearly
// interpolating each section's coefficients from `from` to `to` across
// the block (sample 0 uses `from`, the last sample is one step short of
// `to`), then leaves the cascade holding `to` as its current
// coefficients. This mirrors Mode::_process's interpolate_coefficients
// functor: coefficients change smoothly within the block that triggers
// a recompute, rather than stepping abruptly at block boundaries.
func (c *Cascade) ProcessInterpolated(in, out []float64, from, to []Section) {
	n := len(in)
	for i, x := range in {
		t := float64(i) / float64(n)
		for s := range c.sections {
			c.sections[s] = lerpSection(from[s], to[s], t)
		}
		out[i] = c.runSample(x)
	}
	copy(c.sections, to)
}

func lerpSection(a, b Section, t float64) Section {
	return Section{
		B0: a.B0 + t*(b.B0-a.B0),
		B1: a.B1 + t*(b.B1-a.B1),
		B2: a.B2 + t*(b.B2-a.B2),
		A1: a.A1 + t*(b.A1-a.A1),
		A2: a.A2 + t*(b.A2-a.A2),
	}
}

// runSample pushes x through every section in series, direct form II
// transposed: y = b0*x + z1; z1' = b1*x - a1*y + z2; z2' = b2*x - a2*y.
func (c *Cascade) runSample(x float64) float64 {
	for i := range c.sections {
		s := c.sections[i]
		y := s.B0*x + c.z1[i]
		c.z1[i] = s.B1*x - s.A1*y + c.z2[i]
		c.z2[i] = s.B2*x - s.A2*y
		x = y
	}
	return x
}

// Len returns the number of sections in the cascade.
func (c *Cascade) Len() int {
	return len(c.sections)
}
