package pathfinding

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"flowroute/diagram"
)

// Geometry is the routed shape of one connection. Values handed out by the
// cache are shared and must not be modified.
type Geometry struct {
	// Points is the orthogonal polyline from the source anchor to the arrow tail,
	// without duplicate consecutive points.
	Points []diagram.Point
	Arrow  ArrowPlacement
	// Path is the polyline as SVG path data, ready for a drawing surface.
	Path string
	// Fingerprint changes whenever the waypoints or arrow change.
	Fingerprint uint64
	// Degenerate marks stub geometry produced for missing or unusable input.
	Degenerate bool

	// searched covers the detours the router weighed but did not take.
	searched diagram.Rect
}

// Bounds returns the box covering every waypoint and the arrow tip.
func (g *Geometry) Bounds() diagram.Rect {
	if g == nil || len(g.Points) == 0 {
		return diagram.Rect{}
	}
	return diagram.RectFromPoints(append(g.Points[:len(g.Points):len(g.Points)], g.Arrow.Tip)...)
}

// Footprint returns the box covering the route and every detour the router
// weighed for it. A node moving into or out of it can change the route.
func (g *Geometry) Footprint() diagram.Rect {
	if g == nil {
		return diagram.Rect{}
	}
	return g.Bounds().Union(g.searched)
}

// Len returns the number of waypoints.
func (g *Geometry) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Points)
}

func newGeometry(points []diagram.Point, arrow ArrowPlacement, degenerate bool) *Geometry {
	return &Geometry{
		Points:      points,
		Arrow:       arrow,
		Path:        svgPath(points),
		Fingerprint: fingerprint(points, arrow),
		Degenerate:  degenerate,
	}
}

// emptyGeometry is returned for connections whose endpoints cannot be found.
func emptyGeometry() *Geometry {
	return &Geometry{Degenerate: true}
}

func svgPath(points []diagram.Point) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteString(" L")
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	return b.String()
}

func fingerprint(points []diagram.Point, arrow ArrowPlacement) uint64 {
	buf := make([]byte, 0, (len(points)+2)*16)
	for _, p := range points {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Y))
	}
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(arrow.Tip.X))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(arrow.Tip.Y))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(arrow.Angle))
	return xxhash.Sum64(buf)
}
