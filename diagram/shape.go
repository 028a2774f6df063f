package diagram

import (
	"fmt"
	"math"
)

// Shape is the closed set of node outlines known to the router.
// Only the types in this file implement it.
type Shape interface {
	isShape()
}

// Box is a plain rectangular node.
type Box struct{}

// Ellipse is inscribed in the node rectangle.
type Ellipse struct{}

// Sector is a fan-shaped region centered on the node rectangle.
// Angles are in degrees, clockwise from the positive X axis.
type Sector struct {
	StartDeg float64
	SweepDeg float64
}

func (Box) isShape()     {}
func (Ellipse) isShape() {}
func (Sector) isShape()  {}

// ShapeName returns the name used in fixtures and logs.
func ShapeName(s Shape) string {
	switch s.(type) {
	case nil, Box:
		return "box"
	case Ellipse:
		return "ellipse"
	case Sector:
		return "sector"
	default:
		panic(fmt.Sprintf("diagram: unhandled shape %T", s))
	}
}

// ShapeBounds returns the axis-aligned bounding box of the node's outline.
// Routing treats every shape as this box.
func ShapeBounds(n Node) Rect {
	r := n.Rect()
	switch s := n.Shape.(type) {
	case nil, Box, Ellipse:
		return r
	case Sector:
		return sectorBounds(r, s)
	default:
		panic(fmt.Sprintf("diagram: unhandled shape %T", s))
	}
}

// sectorBounds computes the tight box of a circular sector whose radius is
// half the smaller side of r.
func sectorBounds(r Rect, s Sector) Rect {
	sweep := s.SweepDeg
	if sweep == 0 || r.IsEmpty() || math.IsNaN(sweep) || math.IsInf(s.StartDeg, 0) || math.IsNaN(s.StartDeg) {
		return r
	}
	if math.Abs(sweep) >= 360 {
		c := r.Center()
		rad := math.Min(r.Width, r.Height) / 2
		return Rect{X: c.X - rad, Y: c.Y - rad, Width: 2 * rad, Height: 2 * rad}
	}

	start := s.StartDeg
	if sweep < 0 {
		start += sweep
		sweep = -sweep
	}
	// far from zero, adding 90 no longer changes start
	start = math.Mod(start, 360)
	if start < 0 {
		start += 360
	}

	c := r.Center()
	rad := math.Min(r.Width, r.Height) / 2
	arc := func(deg float64) Point {
		a := deg * math.Pi / 180
		return Point{X: c.X + rad*math.Cos(a), Y: c.Y + rad*math.Sin(a)}
	}

	points := []Point{c, arc(start), arc(start + sweep)}
	// axis extremes that fall inside the sweep
	first := math.Ceil(start/90) * 90
	for deg := first; deg <= start+sweep; deg += 90 {
		points = append(points, arc(deg))
	}
	return RectFromPoints(points...)
}
