package pathfinding

import (
	"math"

	"flowroute/diagram"
)

// Anchor is a point on a node boundary together with the side it faces.
type Anchor struct {
	Point     diagram.Point
	Direction diagram.PortDirection
}

// ResolvePort maps a port designation on a node to its anchor.
// Unknown designations resolve to the node center with DirectionNone and ok=false;
// the caller decides whether that is worth logging.
func ResolvePort(node diagram.Node, port string) (anchor Anchor, ok bool) {
	dir, ok := diagram.ParsePort(port)
	return Anchor{Point: portPoint(diagram.ShapeBounds(node), dir), Direction: dir}, ok
}

// portPoint returns the midpoint of the requested side of bounds.
func portPoint(bounds diagram.Rect, dir diagram.PortDirection) diagram.Point {
	c := bounds.Center()
	switch dir {
	case diagram.Top:
		return diagram.Point{X: c.X, Y: bounds.Top()}
	case diagram.Bottom:
		return diagram.Point{X: c.X, Y: bounds.Bottom()}
	case diagram.Left:
		return diagram.Point{X: bounds.Left(), Y: c.Y}
	case diagram.Right:
		return diagram.Point{X: bounds.Right(), Y: c.Y}
	}
	return c
}

// BestPorts picks facing ports for a new connection from the dominant axis
// between the two nodes.
func BestPorts(source, target diagram.Node) (sourcePort, targetPort string) {
	dx := target.Position.X - source.Position.X
	dy := target.Position.Y - source.Position.Y

	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return diagram.Right.String(), diagram.Left.String()
		}
		return diagram.Left.String(), diagram.Right.String()
	}
	if dy > 0 {
		return diagram.Bottom.String(), diagram.Top.String()
	}
	return diagram.Top.String(), diagram.Bottom.String()
}
