package geometry

import "math"

// Shape selects how a marker is drawn.
type Shape int

const (
	Ellipse Shape = iota + 1
	Rectangle
)

func (s Shape) String() string {
	switch s {
	case Ellipse:
		return "ellipse"
	case Rectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

// ColorTag names the role of a marker; the renderer picks the actual color.
type ColorTag int

const (
	ColorOrigin ColorTag = iota + 1
	ColorTarget
	ColorFeedback
	ColorRawCursor
	ColorSyncOn
	ColorSyncOff
)

// Marker is a drawable region centered on a point.
type Marker struct {
	Center     Point
	HalfWidth  float64
	HalfHeight float64
	Shape      Shape
	Color      ColorTag
}

// Circle builds a circular ellipse marker.
func Circle(center Point, radius float64, color ColorTag) Marker {
	return Marker{
		Center:     center,
		HalfWidth:  radius,
		HalfHeight: radius,
		Shape:      Ellipse,
		Color:      color,
	}
}

// Radius is the collision radius of the marker (its half width).
func (m Marker) Radius() float64 {
	return m.HalfWidth
}

// Overlaps reports whether the two markers touch edge to edge.
// A nil marker never overlaps anything.
func Overlaps(a, b *Marker) bool {
	if a == nil || b == nil {
		return false
	}
	return Distance(a.Center, b.Center) <= a.Radius()+b.Radius()
}

// OverlapsCenter reports whether the center of a has landed well inside b:
// within half of b's radius. Only b's radius is used, so the argument order
// matters: a is the moving marker, b the region being acquired.
func OverlapsCenter(a, b *Marker) bool {
	if a == nil || b == nil {
		return false
	}
	return Distance(a.Center, b.Center) <= b.Radius()/2
}

// Contains reports whether p lies inside the marker's drawn area.
func Contains(m *Marker, p Point) bool {
	if m == nil || m.HalfWidth <= 0 || m.HalfHeight <= 0 {
		return false
	}
	dx := p.X - m.Center.X
	dy := p.Y - m.Center.Y
	switch m.Shape {
	case Ellipse:
		nx := dx / m.HalfWidth
		ny := dy / m.HalfHeight
		return nx*nx+ny*ny <= 1
	case Rectangle:
		return math.Abs(dx) <= m.HalfWidth && math.Abs(dy) <= m.HalfHeight
	default:
		return false
	}
}
