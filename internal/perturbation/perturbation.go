// Package perturbation rotates pointer positions around an origin to produce
// the visual feedback shown to the subject.
package perturbation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/verte-zerg/tuireach/internal/geometry"
)

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Rotate rotates raw around origin by angleRad, counter-clockwise in a Y-up
// frame. On a Y-down screen the same angle appears clockwise.
func Rotate(raw, origin geometry.Point, angleRad float64) geometry.Point {
	return geometry.FromVec(r2.Rotate(raw.Vec(), angleRad, origin.Vec()))
}

// Transform maps raw pointer positions to feedback positions.
type Transform struct {
	Origin   geometry.Point
	AngleRad float64
	Enabled  bool
}

// NewTransform builds a transform for an angle in screen degrees, where a
// positive value appears counter-clockwise on a Y-down display.
func NewTransform(origin geometry.Point, degrees float64, enabled bool) Transform {
	return Transform{
		Origin:   origin,
		AngleRad: DegToRad(degrees),
		Enabled:  enabled,
	}
}

// Apply returns the feedback position for raw. A disabled transform is the
// identity.
func (t Transform) Apply(raw geometry.Point) geometry.Point {
	if !t.Enabled {
		return raw
	}
	return Rotate(raw, t.Origin, -t.AngleRad)
}
