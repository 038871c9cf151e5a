package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionDistance(t *testing.T) {
	a := NewPosition(0, 0)
	b := NewPosition(3, 4)
	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
}

func TestAngleOfCardinalPositions(t *testing.T) {
	assert.InDelta(t, 0.0, NewPosition(1, 0).Angle().Radians(), 1e-9)
	assert.InDelta(t, math.Pi/2, NewPosition(0, 1).Angle().Radians(), 1e-9)
}

func TestRotateRoundTrip(t *testing.T) {
	p := NewPosition(2, 0)
	o := OrientationFromDegrees(90)
	rotated := p.Rotate(o)
	assert.InDelta(t, 0, rotated.X, 1e-9)
	assert.InDelta(t, 2, rotated.Y, 1e-9)
}

func TestTransformIsListenerRelative(t *testing.T) {
	listener := NewDirectionalPoint(NewPosition(1, 1), OrientationFromDegrees(90))
	source := NewDirectionalPoint(NewPosition(1, 2), OrientationFromDegrees(0))

	rel := source.Transform(listener)

	// The source is one meter "ahead" in world Y, which after rotating
	// -90 degrees (undoing the listener's heading) becomes +X in the
	// listener's frame.
	assert.InDelta(t, 1, rel.Position.X, 1e-9)
	assert.InDelta(t, 0, rel.Position.Y, 1e-9)
}

func TestOrientationNormalizedWraps(t *testing.T) {
	o := OrientationFromDegrees(270)
	assert.InDelta(t, -90, o.Normalized().Degrees(), 1e-6)
}
