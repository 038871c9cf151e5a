// Package geometry implements the flat 2D scene geometry shared by every
// renderer: positions, orientations and the listener-relative transform
// that all per-source processing is evaluated in.
//
// Grounded on SoundScapeRenderer's position.h/orientation.h/
// directionalpoint.h: a Position is a plain Cartesian point, an
// Orientation is a single azimuth angle (elevation is out of scope for
// every renderer this engine hosts), and a DirectionalPoint pairs the two
// the way a source or a listener does.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Position is a point in the horizontal plane, in meters.
type Position struct {
	r2.Point
}

// NewPosition builds a Position from Cartesian coordinates.
func NewPosition(x, y float64) Position {
	return Position{r2.Point{X: x, Y: y}}
}

// Add returns p + q.
func (p Position) Add(q Position) Position {
	return Position{p.Point.Add(q.Point)}
}

// Sub returns p - q.
func (p Position) Sub(q Position) Position {
	return Position{p.Point.Sub(q.Point)}
}

// Scale returns p scaled by f.
func (p Position) Scale(f float64) Position {
	return Position{p.Point.Mul(f)}
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return p.Sub(q).Norm()
}

// Norm returns the distance from the origin.
func (p Position) Norm() float64 {
	return p.Point.Norm()
}

// Dot returns the Euclidean inner product of p and q.
func (p Position) Dot(q Position) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Angle returns the polar angle of p around the origin, zero pointing
// along +X, increasing counter-clockwise toward +Y.
func (p Position) Angle() Orientation {
	return Orientation(math.Atan2(p.Y, p.X))
}

// Rotate returns p rotated by o around the origin.
func (p Position) Rotate(o Orientation) Position {
	sin, cos := math.Sincos(o.Radians())
	return NewPosition(
		p.X*cos-p.Y*sin,
		p.X*sin+p.Y*cos,
	)
}

// Orientation is a heading angle in the horizontal plane.
type Orientation s1.Angle

// OrientationFromRadians builds an Orientation from a radian value.
func OrientationFromRadians(rad float64) Orientation {
	return Orientation(s1.Angle(rad))
}

// OrientationFromDegrees builds an Orientation from a degree value.
func OrientationFromDegrees(deg float64) Orientation {
	return Orientation(s1.Angle(deg) * s1.Degree)
}

// Radians returns the angle in radians.
func (o Orientation) Radians() float64 {
	return s1.Angle(o).Radians()
}

// Degrees returns the angle in degrees.
func (o Orientation) Degrees() float64 {
	return s1.Angle(o).Degrees()
}

// Normalized returns o wrapped to [-π, π).
func (o Orientation) Normalized() Orientation {
	rad := math.Mod(o.Radians()+math.Pi, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return OrientationFromRadians(rad - math.Pi)
}

// Add returns o + p, normalized.
func (o Orientation) Add(p Orientation) Orientation {
	return OrientationFromRadians(o.Radians() + p.Radians()).Normalized()
}

// Sub returns o - p, normalized.
func (o Orientation) Sub(p Orientation) Orientation {
	return OrientationFromRadians(o.Radians() - p.Radians()).Normalized()
}

// Unit returns the unit vector this orientation points along.
func (o Orientation) Unit() Position {
	sin, cos := math.Sincos(o.Radians())
	return NewPosition(cos, sin)
}

// DirectionalPoint is a Position with an associated heading, used for both
// sources (propagation direction for plane waves) and the listener
// reference.
type DirectionalPoint struct {
	Position    Position
	Orientation Orientation
}

// NewDirectionalPoint builds a DirectionalPoint.
func NewDirectionalPoint(p Position, o Orientation) DirectionalPoint {
	return DirectionalPoint{Position: p, Orientation: o}
}

// Transform maps dp from world coordinates into the frame of reference,
// i.e. the coordinates a listener sitting at reference, facing
// reference.Orientation, would observe. Every renderer evaluates
// azimuth, distance and delay in this listener-relative frame, never in
// world coordinates.
func (dp DirectionalPoint) Transform(reference DirectionalPoint) DirectionalPoint {
	relative := dp.Position.Sub(reference.Position).Rotate(-reference.Orientation)
	return DirectionalPoint{
		Position:    relative,
		Orientation: dp.Orientation.Sub(reference.Orientation),
	}
}

// RelativeAngle returns the azimuth of dp.Position as seen from the
// reference frame's origin, in (-π, π], zero straight ahead, positive to
// the listener's left (counter-clockwise), matching the convention used
// by HRIR/BRIR azimuth indexing in the binaural/BRS renderers.
func (dp DirectionalPoint) RelativeAngle() Orientation {
	return dp.Position.Angle()
}

// PlaneToPointDistance returns the signed distance, along dp's
// orientation, from the wavefront currently passing through dp.Position
// to p: the projection of (p - dp.Position) onto dp.Orientation's unit
// vector. Used by the WFS renderer to compute a plane wave's arrival
// delay at a loudspeaker or at the reference position.
func (dp DirectionalPoint) PlaneToPointDistance(p Position) float64 {
	return p.Sub(dp.Position).Dot(dp.Orientation.Unit())
}
