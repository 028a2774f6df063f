package pathfinding

import (
	"flowroute/diagram"
	"flowroute/geometry"
)

// DefaultArrowLength is the distance between the arrow tip and its tail.
const DefaultArrowLength = 15.0

// ArrowPlacement positions an arrowhead independently of the polyline.
type ArrowPlacement struct {
	// Tip is the target anchor the arrowhead points at.
	Tip diagram.Point
	// Angle is the direction in degrees from the last waypoint back to the one
	// before it, in [0, 360). A path arriving from the left has Angle 180.
	Angle float64
}

// ArrowTail offsets the tip backwards along the target normal.
// The tail, not the anchor, terminates the polyline so the arrowhead overlays
// the last segment.
func ArrowTail(tip diagram.Point, dir diagram.PortDirection, length float64) diagram.Point {
	return tip.Add(dir.Normal().Scale(length))
}

// placeArrow derives the arrowhead from the final segment of points.
func placeArrow(points []diagram.Point, tip diagram.Point) ArrowPlacement {
	if len(points) < 2 {
		return ArrowPlacement{Tip: tip}
	}
	last := points[len(points)-1]
	prev := points[len(points)-2]
	return ArrowPlacement{Tip: tip, Angle: geometry.AngleDegrees(last, prev)}
}
