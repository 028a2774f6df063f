// Package geometry holds the small amount of planar math shared by the router.
package geometry

import (
	"math"

	"flowroute/diagram"
)

// Epsilon is the tolerance used when comparing coordinates.
const Epsilon = 1e-9

// Near reports whether a and b are equal within Epsilon.
func Near(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// SamePoint reports whether two points coincide within Epsilon.
func SamePoint(a, b diagram.Point) bool {
	return Near(a.X, b.X) && Near(a.Y, b.Y)
}

// Clamp limits v to [lo, hi]. If lo > hi, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ManhattanDistance calculates the Manhattan distance between two points.
func ManhattanDistance(a, b diagram.Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// IsHorizontal returns true if the vector from a to b is more horizontal than vertical.
func IsHorizontal(a, b diagram.Point) bool {
	return math.Abs(b.X-a.X) > math.Abs(b.Y-a.Y)
}

// PolylineLength sums the Manhattan length of every segment.
func PolylineLength(points []diagram.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += ManhattanDistance(points[i-1], points[i])
	}
	return total
}

// SegmentCrossesRect reports whether the orthogonal segment a-b passes through
// the interior of r. Running along an edge does not count.
func SegmentCrossesRect(a, b diagram.Point, r diagram.Rect) bool {
	if r.IsEmpty() {
		return false
	}
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)

	switch {
	case Near(a.Y, b.Y):
		return a.Y > r.Top() && a.Y < r.Bottom() &&
			maxX > r.Left() && minX < r.Right()
	case Near(a.X, b.X):
		return a.X > r.Left() && a.X < r.Right() &&
			maxY > r.Top() && minY < r.Bottom()
	default:
		// diagonal segments only occur for degenerate input
		return r.ContainsStrict(a) || r.ContainsStrict(b) ||
			(maxX > r.Left() && minX < r.Right() && maxY > r.Top() && minY < r.Bottom())
	}
}

// SegmentTouchesRect is SegmentCrossesRect that also counts a segment
// running along an edge of r. Meeting the edge at a single point does not count.
func SegmentTouchesRect(a, b diagram.Point, r diagram.Rect) bool {
	if SegmentCrossesRect(a, b, r) {
		return true
	}
	if r.IsEmpty() {
		return false
	}
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)

	switch {
	case Near(a.Y, b.Y) && !Near(a.X, b.X):
		return (Near(a.Y, r.Top()) || Near(a.Y, r.Bottom())) &&
			maxX > r.Left() && minX < r.Right()
	case Near(a.X, b.X) && !Near(a.Y, b.Y):
		return (Near(a.X, r.Left()) || Near(a.X, r.Right())) &&
			maxY > r.Top() && minY < r.Bottom()
	}
	return false
}

// Simplify removes duplicate consecutive points and interior points that lie
// on a straight run between their neighbours. A point where the path turns
// back on itself is kept. The first and last points are kept.
func Simplify(points []diagram.Point) []diagram.Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]diagram.Point, 0, len(points))
	for _, p := range points {
		dup := false
		for {
			if len(out) > 0 && SamePoint(out[len(out)-1], p) {
				dup = true
				break
			}
			if len(out) >= 2 && straight(out[len(out)-2], out[len(out)-1], p) {
				out = out[:len(out)-1]
				continue
			}
			break
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// straight reports whether a-b-c runs along one axis without reversing.
func straight(a, b, c diagram.Point) bool {
	switch {
	case Near(a.Y, b.Y) && Near(b.Y, c.Y):
		return (b.X-a.X)*(c.X-b.X) > 0
	case Near(a.X, b.X) && Near(b.X, c.X):
		return (b.Y-a.Y)*(c.Y-b.Y) > 0
	}
	return false
}

// AngleDegrees returns the direction of the vector from a to b in degrees,
// normalized to [0, 360). A zero vector yields 0.
func AngleDegrees(a, b diagram.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if Near(dx, 0) && Near(dy, 0) {
		return 0
	}
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
