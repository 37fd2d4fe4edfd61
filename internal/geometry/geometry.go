// Package geometry provides points, markers and the collision predicates used
// to gate trials.
package geometry

import "gonum.org/v1/gonum/spatial/r2"

// Point is a position in display pixels. Y grows downward.
type Point struct {
	X float64
	Y float64
}

// FromVec converts a gonum vector to a Point.
func FromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Vec converts p to a gonum vector.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return FromVec(r2.Add(p.Vec(), q.Vec()))
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return FromVec(r2.Sub(p.Vec(), q.Vec()))
}

// Size is the extent of the display in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Center returns the middle of the display.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.Vec(), b.Vec()))
}

// Clamp limits p to [0, Width] x [0, Height].
func Clamp(p Point, s Size) Point {
	return Point{
		X: clampFloat(p.X, 0, s.Width),
		Y: clampFloat(p.Y, 0, s.Height),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
