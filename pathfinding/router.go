package pathfinding

import (
	"math"

	"flowroute/diagram"
	"flowroute/geometry"
)

// DefaultClearance is the stub length at each port and the gap kept around
// nodes the route has to go past.
const DefaultClearance = 15.0

// DefaultSnapDistance is the largest offset between facing ports that is
// still drawn as one straight segment.
const DefaultSnapDistance = 3.0

// Options tunes the router.
type Options struct {
	ArrowLength float64
	Clearance   float64
	Policy      Policy
	// SnapDistance joins facing ports offset by less than this with a single
	// segment instead of a small jog. Zero disables it.
	SnapDistance float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ArrowLength:  DefaultArrowLength,
		Clearance:    DefaultClearance,
		Policy:       PolicyAdaptive,
		SnapDistance: DefaultSnapDistance,
	}
}

// Request describes one connection to route.
type Request struct {
	Source     Anchor
	Target     Anchor
	SourceRect diagram.Rect
	TargetRect diagram.Rect
	// Obstacles are the boxes of every node in the graph. Boxes equal to the
	// source or target rect are ignored when looking for detours.
	Obstacles []diagram.Rect
	// SelfLoop routes the connection as the minimal anchor to tail stub.
	SelfLoop bool
}

// Router computes orthogonal polylines between port anchors.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	opts Options
}

// NewRouter creates a router. Negative or non-finite lengths fall back to defaults.
func NewRouter(opts Options) *Router {
	def := DefaultOptions()
	if !validLength(opts.ArrowLength) {
		opts.ArrowLength = def.ArrowLength
	}
	if !validLength(opts.Clearance) {
		opts.Clearance = def.Clearance
	}
	if !validLength(opts.SnapDistance) {
		opts.SnapDistance = def.SnapDistance
	}
	return &Router{opts: opts}
}

func validLength(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Options returns the effective router options.
func (r *Router) Options() Options {
	return r.opts
}

// Route computes the geometry for req. It never fails: unusable input yields
// a two point degenerate geometry.
func (r *Router) Route(req Request) *Geometry {
	src := req.Source.Point
	tip := req.Target.Point
	tail := ArrowTail(tip, req.Target.Direction, r.opts.ArrowLength)

	if req.SelfLoop || !src.IsFinite() || !tip.IsFinite() ||
		geometry.SamePoint(src, tip) || geometry.SamePoint(src, tail) {
		return r.degenerate(src, tip, tail)
	}

	if points, ok := r.direct(req, tail); ok {
		return newGeometry(points, placeArrow(points, tip), false)
	}

	points := r.bend(r.newBendInput(req, tail))
	points, searched := r.avoidObstacles(points, req)
	points = geometry.Simplify(points)

	g := newGeometry(points, placeArrow(points, tip), false)
	g.searched = searched
	return g
}

// direct joins facing ports that are almost aligned with one segment from
// the source anchor to the arrow tail. The segment may be off axis by less
// than SnapDistance. It must be longer than a stub and clear of every box.
func (r *Router) direct(req Request, tail diagram.Point) ([]diagram.Point, bool) {
	srcDir := req.Source.Direction
	if r.opts.SnapDistance <= 0 || srcDir == diagram.DirectionNone || req.Target.Direction != srcDir.Opposite() {
		return nil, false
	}

	n := srcDir.Normal()
	d := tail.Sub(req.Source.Point)
	along := d.Dot(n)
	across := math.Abs(d.X*n.Y) + math.Abs(d.Y*n.X)
	if along <= r.opts.Clearance || across >= r.opts.SnapDistance {
		return nil, false
	}

	points := []diagram.Point{req.Source.Point, tail}
	boxes := append(thirdParty(req), req.SourceRect, req.TargetRect)
	for _, rect := range boxes {
		if geometry.SegmentTouchesRect(points[0], points[1], rect) {
			return nil, false
		}
	}
	return points, true
}

// orientation picks the first leg from the policy or the dominant offset.
func (r *Router) orientation(src, tail diagram.Point) orientation {
	switch r.opts.Policy {
	case PolicyHorizontalFirst:
		return horizontalFirst
	case PolicyVerticalFirst:
		return verticalFirst
	}
	if geometry.IsHorizontal(src, tail) {
		return horizontalFirst
	}
	return verticalFirst
}

// degenerate returns the minimal straight geometry for unusable input.
func (r *Router) degenerate(src, tip, tail diagram.Point) *Geometry {
	points := []diagram.Point{src, tail}
	return newGeometry(points, ArrowPlacement{Tip: tip}, true)
}

// crossesAny counts the segments of points that cut through any of rects.
func crossesAny(points []diagram.Point, rects ...diagram.Rect) int {
	n := 0
	for i := 1; i < len(points); i++ {
		for _, rect := range rects {
			if geometry.SegmentCrossesRect(points[i-1], points[i], rect) {
				n++
			}
		}
	}
	return n
}
