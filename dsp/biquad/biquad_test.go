package biquad

import "testing"

func TestIdentityCascadePassesSignalThrough(t *testing.T) {
	c := New(2)
	in := []float64{0.1, -0.2, 0.3, 0.4}
	out := make([]float64, len(in))
	c.Process(in, out)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestSingleSampleDelaySection(t *testing.T) {
	c := New(1)
	c.SetSections([]Section{{B0: 0, B1: 1, B2: 0, A1: 0, A2: 0}})

	in := []float64{1, 2, 3, 4}
	out := make([]float64, len(in))
	c.Process(in, out)

	want := []float64{0, 1, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestProcessInterpolatedEndsOnTargetCoefficients(t *testing.T) {
	c := New(1)
	from := []Section{identitySection()}
	to := []Section{{B0: 0, B1: 1, B2: 0, A1: 0, A2: 0}}

	in := make([]float64, 32)
	for i := range in {
		in[i] = 1
	}
	out := make([]float64, len(in))
	c.ProcessInterpolated(in, out, from, to)

	if c.sections[0] != to[0] {
		t.Fatalf("cascade did not settle on target coefficients: got %+v", c.sections[0])
	}
}
