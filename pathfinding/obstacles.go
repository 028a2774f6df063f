package pathfinding

import (
	"math"

	"flowroute/diagram"
	"flowroute/geometry"
)

// thirdParty returns the obstacle boxes that belong to neither endpoint.
func thirdParty(req Request) []diagram.Rect {
	out := make([]diagram.Rect, 0, len(req.Obstacles))
	for _, rect := range req.Obstacles {
		if rect.IsEmpty() || rect == req.SourceRect || rect == req.TargetRect {
			continue
		}
		out = append(out, rect)
	}
	return out
}

// avoidObstacles inserts at most one detour around the boxes that the route
// passes through. The middle segment is checked first, then the others in
// order. The result may still overlap boxes; this is a local fix, not a search.
// searched covers every detour that was weighed, taken or not.
func (r *Router) avoidObstacles(points []diagram.Point, req Request) (out []diagram.Point, searched diagram.Rect) {
	obstacles := thirdParty(req)
	if len(obstacles) == 0 || len(points) < 2 {
		return points, searched
	}

	for _, i := range segmentOrder(len(points) - 1) {
		a, b := points[i], points[i+1]

		var crossed []diagram.Rect
		for _, rect := range obstacles {
			if geometry.SegmentCrossesRect(a, b, rect) {
				crossed = append(crossed, rect)
			}
		}
		if len(crossed) == 0 {
			continue
		}

		blocked := crossed[0]
		for _, rect := range crossed[1:] {
			blocked = blocked.Union(rect)
		}
		if blocked.ContainsStrict(a) || blocked.ContainsStrict(b) {
			// grouped boxes swallow an endpoint, fall back to the nearest one alone
			blocked = nearestRect(a, crossed)
			if blocked.ContainsStrict(a) || blocked.ContainsStrict(b) {
				continue
			}
		}

		detoured, weighed, ok := r.detour(points, i, blocked, obstacles, req)
		searched = searched.Union(weighed)
		if ok {
			return detoured, searched
		}
	}
	return points, searched
}

// segmentOrder lists segment indexes starting from the middle one.
func segmentOrder(n int) []int {
	order := make([]int, 0, n)
	mid := n / 2
	order = append(order, mid)
	for i := 0; i < n; i++ {
		if i != mid {
			order = append(order, i)
		}
	}
	return order
}

func nearestRect(p diagram.Point, rects []diagram.Rect) diagram.Rect {
	best := rects[0]
	bestDist := math.Inf(1)
	for _, rect := range rects {
		if d := geometry.ManhattanDistance(p, rect.Center()); d < bestDist {
			best, bestDist = rect, d
		}
	}
	return best
}

// detour replaces segment i with a jog around blocked. A segment that starts
// at the source anchor or ends at the arrow tail keeps a short straight stub
// so the route still leaves and arrives along the port normal. A side is
// rejected when it breaks a port rule the route kept before, such as running
// into an endpoint box or reaching the tail from inside the target.
func (r *Router) detour(points []diagram.Point, i int, blocked diagram.Rect, obstacles []diagram.Rect, req Request) ([]diagram.Point, diagram.Rect, bool) {
	a, b := points[i], points[i+1]
	horizontal := geometry.Near(a.Y, b.Y)
	if !horizontal && !geometry.Near(a.X, b.X) {
		return nil, diagram.Rect{}, false
	}

	c := r.opts.Clearance
	ja, jb := a, b
	if i == 0 {
		ja = stepToward(a, b, blocked, c, horizontal)
	}
	if i+1 == len(points)-1 {
		jb = stepToward(b, a, blocked, c, horizontal)
	}

	var sides [2]float64
	var base float64
	if horizontal {
		sides = [2]float64{blocked.Top() - c, blocked.Bottom() + c}
		base = a.Y
	} else {
		sides = [2]float64{blocked.Left() - c, blocked.Right() + c}
		base = a.X
	}

	allowed := violations(points, req)
	var (
		best      []diagram.Point
		searched  diagram.Rect
		bestAdded = math.Inf(1)
		bestHits  = math.MaxInt
	)
	for _, v := range sides {
		var p1, p2 diagram.Point
		if horizontal {
			p1, p2 = diagram.Point{X: ja.X, Y: v}, diagram.Point{X: jb.X, Y: v}
		} else {
			p1, p2 = diagram.Point{X: v, Y: ja.Y}, diagram.Point{X: v, Y: jb.Y}
		}
		jog := []diagram.Point{ja, p1, p2, jb}
		searched = searched.Union(diagram.RectFromPoints(jog...))

		out := make([]diagram.Point, 0, len(points)+4)
		out = append(out, points[:i+1]...)
		if !geometry.SamePoint(ja, a) {
			out = append(out, ja)
		}
		out = append(out, p1, p2)
		if !geometry.SamePoint(jb, b) {
			out = append(out, jb)
		}
		out = append(out, points[i+1:]...)
		out = geometry.Simplify(out)
		if violations(out, req) > allowed {
			continue
		}

		added := 2 * math.Abs(v-base)
		hits := crossesAny(jog, obstacles...)
		if added < bestAdded-geometry.Epsilon || (geometry.Near(added, bestAdded) && hits < bestHits) {
			best, bestAdded, bestHits = out, added, hits
		}
	}
	return best, searched, best != nil
}

// stepToward moves from along the segment towards to by up to dist, stopping
// halfway to the blocked box.
func stepToward(from, to diagram.Point, blocked diagram.Rect, dist float64, horizontal bool) diagram.Point {
	if horizontal {
		gap := blocked.Left() - from.X
		sign := 1.0
		if to.X < from.X {
			gap = from.X - blocked.Right()
			sign = -1
		}
		step := math.Max(0, math.Min(dist, gap/2))
		return diagram.Point{X: from.X + sign*step, Y: from.Y}
	}
	gap := blocked.Top() - from.Y
	sign := 1.0
	if to.Y < from.Y {
		gap = from.Y - blocked.Bottom()
		sign = -1
	}
	step := math.Max(0, math.Min(dist, gap/2))
	return diagram.Point{X: from.X, Y: from.Y + sign*step}
}
