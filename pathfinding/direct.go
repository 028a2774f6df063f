package pathfinding

import (
	"math"
	"slices"
	"strings"

	"go.trai.ch/zerr"

	"flowroute/diagram"
	"flowroute/geometry"
)

// Policy selects which axis a route travels first.
type Policy int

const (
	// PolicyAdaptive follows the dominant offset axis and falls back to the
	// other orientation when the preferred one cannot honour the port directions.
	PolicyAdaptive Policy = iota
	// PolicyHorizontalFirst always bends at a vertical channel between the nodes.
	PolicyHorizontalFirst
	// PolicyVerticalFirst always bends at a horizontal channel between the nodes.
	PolicyVerticalFirst
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyHorizontalFirst:
		return "horizontal-first"
	case PolicyVerticalFirst:
		return "vertical-first"
	default:
		return "adaptive"
	}
}

// ParsePolicy accepts the names produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adaptive":
		return PolicyAdaptive, nil
	case "horizontal-first", "horizontal":
		return PolicyHorizontalFirst, nil
	case "vertical-first", "vertical":
		return PolicyVerticalFirst, nil
	default:
		return PolicyAdaptive, zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "unknown routing policy"), "policy", s)
	}
}

type orientation int

const (
	horizontalFirst orientation = iota
	verticalFirst
)

// bendInput is the part of a request the bend search works on.
type bendInput struct {
	req               Request
	exit, entry, tail diagram.Point
}

func (r *Router) newBendInput(req Request, tail diagram.Point) bendInput {
	c := r.opts.Clearance
	srcN := req.Source.Direction.Normal()
	dstN := req.Target.Direction.Normal()
	return bendInput{
		req:   req,
		exit:  req.Source.Point.Add(srcN.Scale(stubLength(req.Source.Point, srcN, req.TargetRect, c))),
		entry: tail.Add(dstN.Scale(stubLength(tail, dstN, req.SourceRect, c))),
		tail:  tail,
	}
}

// stubLength shortens a port stub to half the free distance when the other
// endpoint box sits right in front of the port.
func stubLength(from, normal diagram.Point, other diagram.Rect, length float64) float64 {
	if other.IsEmpty() {
		return length
	}
	var gap float64
	switch {
	case normal.X != 0:
		if from.Y <= other.Top() || from.Y >= other.Bottom() {
			return length
		}
		gap = other.Left() - from.X
		if normal.X < 0 {
			gap = from.X - other.Right()
		}
	case normal.Y != 0:
		if from.X <= other.Left() || from.X >= other.Right() {
			return length
		}
		gap = other.Top() - from.Y
		if normal.Y < 0 {
			gap = from.Y - other.Bottom()
		}
	default:
		return length
	}
	if gap < 0 {
		return length
	}
	return math.Min(length, gap/2)
}

// interval is a closed range of allowed bend coordinates.
type interval struct {
	lo, hi float64
}

func unbounded() interval {
	return interval{lo: math.Inf(-1), hi: math.Inf(1)}
}

func (iv interval) intersect(o interval) interval {
	return interval{lo: math.Max(iv.lo, o.lo), hi: math.Min(iv.hi, o.hi)}
}

func (iv interval) empty() bool {
	return iv.lo > iv.hi
}

// preferredBend returns the channel coordinate nearest the midpoint between
// the stubs that still lets the route leave the source and reach the target
// outwards. When both cannot hold the source wins.
func preferredBend(in bendInput, o orientation) float64 {
	source, target := unbounded(), unbounded()
	srcDir, dstDir := in.req.Source.Direction, in.req.Target.Direction
	var mid float64
	if o == horizontalFirst {
		switch srcDir {
		case diagram.Right:
			source.lo = in.exit.X
		case diagram.Left:
			source.hi = in.exit.X
		}
		switch dstDir {
		case diagram.Left:
			target.hi = in.entry.X
		case diagram.Right:
			target.lo = in.entry.X
		}
		mid = (in.exit.X + in.entry.X) / 2
	} else {
		switch srcDir {
		case diagram.Bottom:
			source.lo = in.exit.Y
		case diagram.Top:
			source.hi = in.exit.Y
		}
		switch dstDir {
		case diagram.Top:
			target.hi = in.entry.Y
		case diagram.Bottom:
			target.lo = in.entry.Y
		}
		mid = (in.exit.Y + in.entry.Y) / 2
	}

	if both := source.intersect(target); !both.empty() {
		return geometry.Clamp(mid, both.lo, both.hi)
	}
	return geometry.Clamp(mid, source.lo, source.hi)
}

// bendScore ranks candidate routes. Fields are compared in order, lower wins.
type bendScore struct {
	violations int
	channels   int
	mismatch   int
	spread     float64
	length     float64
}

func (s bendScore) less(o bendScore) bool {
	switch {
	case s.violations != o.violations:
		return s.violations < o.violations
	case s.channels != o.channels:
		return s.channels < o.channels
	case s.mismatch != o.mismatch:
		return s.mismatch < o.mismatch
	case !geometry.Near(s.spread, o.spread):
		return s.spread < o.spread
	case !geometry.Near(s.length, o.length):
		return s.length < o.length
	}
	return false
}

// bendSearch keeps the best candidate seen so far. Ties go to the candidate
// considered first.
type bendSearch struct {
	req       Request
	preferred orientation
	best      []diagram.Point
	score     bendScore
	found     bool
}

func (s *bendSearch) consider(points []diagram.Point, channels int, o orientation, spread float64) {
	points = geometry.Simplify(points)
	score := bendScore{
		violations: violations(points, s.req),
		channels:   channels,
		spread:     spread,
		length:     geometry.PolylineLength(points),
	}
	if o != s.preferred {
		score.mismatch = 1
	}
	if !s.found || score.less(s.score) {
		s.best, s.score, s.found = points, score, true
	}
}

// bend picks the route between the port stubs. Candidates turn in one channel
// (horizontal-first bends at an x coordinate, vertical-first at a y
// coordinate). Channels come from the midpoint, the stubs and the sides of
// both endpoint boxes inflated by the clearance. Routes with two channels are
// only tried when no single channel keeps clear of the endpoint boxes.
func (r *Router) bend(in bendInput) []diagram.Point {
	c := r.opts.Clearance
	src, exit, entry, tail := in.req.Source.Point, in.exit, in.entry, in.tail
	midX := preferredBend(in, horizontalFirst)
	midY := preferredBend(in, verticalFirst)

	xs := []float64{exit.X, entry.X, midX}
	ys := []float64{exit.Y, entry.Y, midY}
	union := in.req.SourceRect.Union(in.req.TargetRect)
	for _, rect := range []diagram.Rect{in.req.SourceRect, in.req.TargetRect, union} {
		if rect.IsEmpty() {
			continue
		}
		xs = append(xs, rect.Left()-c, rect.Right()+c)
		ys = append(ys, rect.Top()-c, rect.Bottom()+c)
	}
	slices.Sort(xs)
	slices.Sort(ys)
	xs, ys = slices.Compact(xs), slices.Compact(ys)

	s := bendSearch{req: in.req, preferred: r.orientation(src, tail)}
	for _, m := range xs {
		s.consider([]diagram.Point{src, exit, {X: m, Y: exit.Y}, {X: m, Y: entry.Y}, entry, tail},
			0, horizontalFirst, math.Abs(m-midX))
	}
	for _, m := range ys {
		s.consider([]diagram.Point{src, exit, {X: exit.X, Y: m}, {X: entry.X, Y: m}, entry, tail},
			0, verticalFirst, math.Abs(m-midY))
	}
	if s.score.violations == 0 {
		return s.best
	}

	for _, a := range xs {
		for _, m := range ys {
			for _, b := range xs {
				s.consider([]diagram.Point{
					src, exit, {X: a, Y: exit.Y}, {X: a, Y: m}, {X: b, Y: m}, {X: b, Y: entry.Y}, entry, tail,
				}, 1, horizontalFirst, 0)
			}
		}
	}
	for _, a := range ys {
		for _, m := range xs {
			for _, b := range ys {
				s.consider([]diagram.Point{
					src, exit, {X: exit.X, Y: a}, {X: m, Y: a}, {X: m, Y: b}, {X: entry.X, Y: b}, entry, tail,
				}, 1, verticalFirst, 0)
			}
		}
	}
	return s.best
}

// violations counts how often points break the port rules: a segment running
// through or along an endpoint box, a turn that doubles back, or a first or
// last segment that does not follow its port.
func violations(points []diagram.Point, req Request) int {
	n := 0
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if geometry.SegmentTouchesRect(a, b, req.SourceRect) {
			n++
		}
		if geometry.SegmentTouchesRect(a, b, req.TargetRect) {
			n++
		}
	}
	for i := 1; i+1 < len(points); i++ {
		if points[i].Sub(points[i-1]).Dot(points[i+1].Sub(points[i])) < 0 {
			n++
		}
	}
	if len(points) < 2 {
		return n
	}
	if srcN := req.Source.Direction.Normal(); srcN != (diagram.Point{}) {
		if points[1].Sub(points[0]).Dot(srcN) <= 0 {
			n++
		}
	}
	if dstN := req.Target.Direction.Normal(); dstN != (diagram.Point{}) {
		last := len(points) - 1
		if points[last].Sub(points[last-1]).Dot(dstN) >= 0 {
			n++
		}
	}
	return n
}
