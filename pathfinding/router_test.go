package pathfinding

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowroute/diagram"
	"flowroute/geometry"
)

func node(id string, x, y, w, h float64) diagram.Node {
	return diagram.Node{
		ID:       diagram.NodeID(id),
		Position: diagram.Point{X: x, Y: y},
		Size:     diagram.Size{Width: w, Height: h},
	}
}

func request(t *testing.T, src diagram.Node, srcPort string, dst diagram.Node, dstPort string, others ...diagram.Node) Request {
	t.Helper()
	a, ok := ResolvePort(src, srcPort)
	require.True(t, ok)
	b, ok := ResolvePort(dst, dstPort)
	require.True(t, ok)

	obstacles := []diagram.Rect{src.Rect(), dst.Rect()}
	for _, n := range others {
		obstacles = append(obstacles, n.Rect())
	}
	return Request{
		Source:     a,
		Target:     b,
		SourceRect: src.Rect(),
		TargetRect: dst.Rect(),
		Obstacles:  obstacles,
	}
}

func assertOrthogonal(t *testing.T, points []diagram.Point) {
	t.Helper()
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		assert.True(t, geometry.Near(a.X, b.X) || geometry.Near(a.Y, b.Y),
			"segment %d (%v -> %v) is not axis aligned", i, a, b)
		assert.False(t, geometry.SamePoint(a, b), "duplicate point at %d", i)
	}
}

func assertClearOf(t *testing.T, points []diagram.Point, rects ...diagram.Rect) {
	t.Helper()
	for i := 1; i < len(points); i++ {
		for _, rect := range rects {
			assert.False(t, geometry.SegmentCrossesRect(points[i-1], points[i], rect),
				"segment %d (%v -> %v) passes through %v", i, points[i-1], points[i], rect)
		}
	}
}

func randomNode(rng *rand.Rand, id string) diagram.Node {
	return node(id, rng.Float64()*600, rng.Float64()*600, 20+rng.Float64()*130, 20+rng.Float64()*130)
}

// separatedPair returns two boxes at least gap apart along some axis.
func separatedPair(rng *rand.Rand, gap float64) (diagram.Node, diagram.Node) {
	for {
		a, b := randomNode(rng, "A"), randomNode(rng, "B")
		ra, rb := a.Rect(), b.Rect()
		if rb.Left() >= ra.Right()+gap || rb.Right() <= ra.Left()-gap ||
			rb.Top() >= ra.Bottom()+gap || rb.Bottom() <= ra.Top()-gap {
			return a, b
		}
	}
}

func TestRouteStraightFacingPorts(t *testing.T) {
	a := node("A", 0, 0, 100, 60)
	b := node("B", 300, 0, 100, 60)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Right", b, "Left"))

	assert.Equal(t, []diagram.Point{{X: 100, Y: 30}, {X: 285, Y: 30}}, g.Points)
	assert.Equal(t, diagram.Point{X: 300, Y: 30}, g.Arrow.Tip)
	assert.InDelta(t, 180.0, g.Arrow.Angle, 1e-9)
	assert.Equal(t, "M100,30 L285,30", g.Path)
	assert.False(t, g.Degenerate)
}

func TestRouteDetoursAroundThirdPartyNode(t *testing.T) {
	a := node("A", 0, 0, 100, 60)
	b := node("B", 300, 0, 100, 60)
	c := node("C", 150, 0, 80, 60)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Right", b, "Left", c))

	want := []diagram.Point{
		{X: 100, Y: 30},
		{X: 115, Y: 30},
		{X: 115, Y: -15},
		{X: 270, Y: -15},
		{X: 270, Y: 30},
		{X: 285, Y: 30},
	}
	assert.Equal(t, want, g.Points)
	assert.InDelta(t, 180.0, g.Arrow.Angle, 1e-9)

	for i := 1; i < len(g.Points); i++ {
		assert.False(t, geometry.SegmentCrossesRect(g.Points[i-1], g.Points[i], c.Rect()),
			"segment %d passes through C", i)
	}
}

func TestRouteVerticalPorts(t *testing.T) {
	a := node("A", 0, 0, 100, 60)
	b := node("B", 0, 200, 100, 60)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Bottom", b, "Top"))

	assert.Equal(t, []diagram.Point{{X: 50, Y: 60}, {X: 50, Y: 185}}, g.Points)
	assert.Equal(t, diagram.Point{X: 50, Y: 200}, g.Arrow.Tip)
	assert.InDelta(t, 270.0, g.Arrow.Angle, 1e-9)
}

func TestRouteWrapsBackwardConnection(t *testing.T) {
	a := node("A", 400, 0, 100, 60)
	b := node("B", 100, 0, 100, 60)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Right", b, "Left"))

	want := []diagram.Point{
		{X: 500, Y: 30},
		{X: 515, Y: 30},
		{X: 515, Y: -15},
		{X: 70, Y: -15},
		{X: 70, Y: 30},
		{X: 85, Y: 30},
	}
	assert.Equal(t, want, g.Points)
	for i := 1; i < len(g.Points); i++ {
		assert.False(t, geometry.SegmentCrossesRect(g.Points[i-1], g.Points[i], a.Rect()))
		assert.False(t, geometry.SegmentCrossesRect(g.Points[i-1], g.Points[i], b.Rect()))
	}
}

func TestRouteStaysOutOfEndpointBoxes(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		src, dst  diagram.Node
		srcPort   string
		dstPort   string
		want      []diagram.Point
		wantAngle float64
	}{
		{
			name:    "ports facing away from each other",
			policy:  PolicyAdaptive,
			src:     node("A", 223, 339, 100, 45),
			dst:     node("B", 500, 267, 94, 71),
			srcPort: "Left",
			dstPort: "Right",
			want: []diagram.Point{
				{X: 223, Y: 361.5}, {X: 208, Y: 361.5}, {X: 208, Y: 399},
				{X: 624, Y: 399}, {X: 624, Y: 302.5}, {X: 609, Y: 302.5},
			},
			wantAngle: 0,
		},
		{
			name:    "horizontal first backwards",
			policy:  PolicyHorizontalFirst,
			src:     node("A", 400, 0, 100, 60),
			dst:     node("B", 100, 0, 100, 60),
			srcPort: "Right",
			dstPort: "Left",
			want: []diagram.Point{
				{X: 500, Y: 30}, {X: 515, Y: 30}, {X: 515, Y: -15},
				{X: 70, Y: -15}, {X: 70, Y: 30}, {X: 85, Y: 30},
			},
			wantAngle: 180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Policy = tt.policy
			g := NewRouter(opts).Route(request(t, tt.src, tt.srcPort, tt.dst, tt.dstPort))

			assert.Equal(t, tt.want, g.Points)
			assert.InDelta(t, tt.wantAngle, g.Arrow.Angle, 1e-9)
			assertClearOf(t, g.Points, tt.src.Rect(), tt.dst.Rect())
		})
	}
}

func TestRouteKeepsEntryStubPastDetour(t *testing.T) {
	a := node("A", 20, 279, 43, 74)
	b := node("B", 217, 52, 55, 70)
	c := node("C", 142, 301, 60, 40)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Bottom", b, "Left", c))

	assert.Equal(t, []diagram.Point{
		{X: 41.5, Y: 353}, {X: 41.5, Y: 368}, {X: 187, Y: 368},
		{X: 187, Y: 87}, {X: 202, Y: 87},
	}, g.Points)
	assert.InDelta(t, 180.0, g.Arrow.Angle, 1e-9)
	assertClearOf(t, g.Points, a.Rect(), b.Rect())
}

func TestRouteRandomPairsAllPorts(t *testing.T) {
	ports := []string{"Top", "Bottom", "Left", "Right"}
	wantAngle := map[string]float64{"Left": 180, "Right": 0, "Top": 270, "Bottom": 90}
	// closer than an arrow length the tail sits inside the source box
	const gap = DefaultArrowLength + 1

	for _, policy := range []Policy{PolicyAdaptive, PolicyHorizontalFirst, PolicyVerticalFirst} {
		t.Run(policy.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Policy = policy
			router := NewRouter(opts)
			rng := rand.New(rand.NewPCG(7, uint64(policy)))

			for range 200 {
				a, b := separatedPair(rng, gap)
				var others []diagram.Node
				if c := randomNode(rng, "C"); !c.Rect().Intersects(a.Rect().Inflate(DefaultClearance)) &&
					!c.Rect().Intersects(b.Rect().Inflate(DefaultClearance)) {
					others = append(others, c)
				}

				for _, sp := range ports {
					for _, tp := range ports {
						g := router.Route(request(t, a, sp, b, tp, others...))
						require.False(t, g.Degenerate)
						for i := 1; i < g.Len(); i++ {
							p, q := g.Points[i-1], g.Points[i]
							require.False(t, geometry.SegmentCrossesRect(p, q, a.Rect()),
								"%v.%s -> %v.%s: segment %d enters the source: %v", a.Rect(), sp, b.Rect(), tp, i, g.Points)
							require.False(t, geometry.SegmentCrossesRect(p, q, b.Rect()),
								"%v.%s -> %v.%s: segment %d enters the target: %v", a.Rect(), sp, b.Rect(), tp, i, g.Points)
						}
						diff := math.Abs(math.Mod(g.Arrow.Angle-wantAngle[tp]+540, 360) - 180)
						require.LessOrEqual(t, diff, 15.0,
							"%v.%s -> %v.%s: arrow at %v", a.Rect(), sp, b.Rect(), tp, g.Arrow.Angle)
					}
				}
			}
		})
	}
}

func TestRouteSnapsNearlyAlignedPorts(t *testing.T) {
	a := node("A", 0, 0, 100, 60)

	tests := []struct {
		name    string
		snap    float64
		dst     diagram.Node
		srcPort string
		dstPort string
		want    []diagram.Point
	}{
		{
			name:    "offset below the snap distance",
			snap:    DefaultSnapDistance,
			dst:     node("B", 300, 2, 100, 60),
			srcPort: "Right",
			dstPort: "Left",
			want:    []diagram.Point{{X: 100, Y: 30}, {X: 285, Y: 32}},
		},
		{
			name:    "vertical ports",
			snap:    DefaultSnapDistance,
			dst:     node("B", 2, 200, 100, 60),
			srcPort: "Bottom",
			dstPort: "Top",
			want:    []diagram.Point{{X: 50, Y: 60}, {X: 52, Y: 185}},
		},
		{
			name:    "offset equal to the snap distance",
			snap:    DefaultSnapDistance,
			dst:     node("B", 300, 3, 100, 60),
			srcPort: "Right",
			dstPort: "Left",
			want: []diagram.Point{
				{X: 100, Y: 30}, {X: 192.5, Y: 30}, {X: 192.5, Y: 33}, {X: 285, Y: 33},
			},
		},
		{
			name:    "snapping disabled",
			snap:    0,
			dst:     node("B", 300, 2, 100, 60),
			srcPort: "Right",
			dstPort: "Left",
			want: []diagram.Point{
				{X: 100, Y: 30}, {X: 192.5, Y: 30}, {X: 192.5, Y: 32}, {X: 285, Y: 32},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SnapDistance = tt.snap
			g := NewRouter(opts).Route(request(t, a, tt.srcPort, tt.dst, tt.dstPort))
			assert.Equal(t, tt.want, g.Points)
		})
	}
}

func TestRouteDoesNotSnapThroughAThirdNode(t *testing.T) {
	a := node("A", 0, 0, 100, 60)
	b := node("B", 300, 2, 100, 60)
	c := node("C", 120, 0, 40, 60)

	g := NewRouter(DefaultOptions()).Route(request(t, a, "Right", b, "Left", c))

	assert.Equal(t, []diagram.Point{
		{X: 100, Y: 30}, {X: 110, Y: 30}, {X: 110, Y: -15},
		{X: 192.5, Y: -15}, {X: 192.5, Y: 32}, {X: 285, Y: 32},
	}, g.Points)
	assertClearOf(t, g.Points, c.Rect())
}

func TestRoutePolicies(t *testing.T) {
	a := node("A", 0, 0, 100, 60)
	b := node("B", 300, 200, 100, 60)

	tests := []struct {
		name   string
		policy Policy
		want   []diagram.Point
	}{
		{
			name:   "horizontal first bends in a vertical channel",
			policy: PolicyHorizontalFirst,
			want:   []diagram.Point{{X: 100, Y: 30}, {X: 192.5, Y: 30}, {X: 192.5, Y: 230}, {X: 285, Y: 230}},
		},
		{
			name:   "vertical first bends in a horizontal channel",
			policy: PolicyVerticalFirst,
			want: []diagram.Point{
				{X: 100, Y: 30}, {X: 115, Y: 30}, {X: 115, Y: 130},
				{X: 270, Y: 130}, {X: 270, Y: 230}, {X: 285, Y: 230},
			},
		},
		{
			name:   "adaptive follows the dominant axis",
			policy: PolicyAdaptive,
			want: []diagram.Point{
				{X: 100, Y: 30}, {X: 115, Y: 30}, {X: 115, Y: 130},
				{X: 270, Y: 130}, {X: 270, Y: 230}, {X: 285, Y: 230},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Policy = tt.policy
			g := NewRouter(opts).Route(request(t, a, "Right", b, "Left"))
			assert.Equal(t, tt.want, g.Points)
		})
	}
}

func TestRouteBoundaryProperties(t *testing.T) {
	ports := []string{"Top", "Bottom", "Left", "Right"}
	targets := []diagram.Node{
		node("B", 300, 0, 100, 60),
		node("B", 300, 250, 100, 60),
		node("B", -300, 120, 100, 60),
		node("B", 20, -240, 100, 60),
		node("B", 60, 90, 100, 60),
	}
	a := node("A", 0, 0, 100, 60)
	c := node("C", 150, 100, 60, 60)
	router := NewRouter(DefaultOptions())

	for _, b := range targets {
		for _, sp := range ports {
			for _, tp := range ports {
				req := request(t, a, sp, b, tp, c)
				g := router.Route(req)

				require.GreaterOrEqual(t, g.Len(), 2)
				assert.Equal(t, req.Source.Point, g.Points[0], "%s -> %s", sp, tp)
				tail := ArrowTail(req.Target.Point, req.Target.Direction, DefaultArrowLength)
				assert.Equal(t, tail, g.Points[g.Len()-1], "%s -> %s", sp, tp)
				assert.Equal(t, req.Target.Point, g.Arrow.Tip)
				assert.GreaterOrEqual(t, g.Arrow.Angle, 0.0)
				assert.Less(t, g.Arrow.Angle, 360.0)
				if !g.Degenerate {
					assertOrthogonal(t, g.Points)
				}
			}
		}
	}
}

func TestRouteDegenerateInput(t *testing.T) {
	router := NewRouter(DefaultOptions())

	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "coincident anchors",
			req: Request{
				Source: Anchor{Point: diagram.Point{X: 10, Y: 10}, Direction: diagram.Right},
				Target: Anchor{Point: diagram.Point{X: 10, Y: 10}, Direction: diagram.Left},
			},
		},
		{
			name: "source on the arrow tail",
			req: Request{
				Source: Anchor{Point: diagram.Point{X: 0, Y: 0}, Direction: diagram.Right},
				Target: Anchor{Point: diagram.Point{X: 15, Y: 0}, Direction: diagram.Left},
			},
		},
		{
			name: "non finite coordinates",
			req: Request{
				Source: Anchor{Point: diagram.Point{X: math.NaN(), Y: 0}, Direction: diagram.Right},
				Target: Anchor{Point: diagram.Point{X: 100, Y: 0}, Direction: diagram.Left},
			},
		},
		{
			name: "self loop",
			req: Request{
				Source:   Anchor{Point: diagram.Point{X: 100, Y: 30}, Direction: diagram.Right},
				Target:   Anchor{Point: diagram.Point{X: 50, Y: 0}, Direction: diagram.Top},
				SelfLoop: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g *Geometry
			require.NotPanics(t, func() { g = router.Route(tt.req) })
			assert.True(t, g.Degenerate)
			assert.Equal(t, 2, g.Len())
			assert.Equal(t, 0.0, g.Arrow.Angle)
		})
	}
}

func TestNewRouterFallsBackToDefaults(t *testing.T) {
	r := NewRouter(Options{ArrowLength: -1, Clearance: math.Inf(1), Policy: PolicyVerticalFirst, SnapDistance: math.NaN()})
	opts := r.Options()
	assert.Equal(t, DefaultArrowLength, opts.ArrowLength)
	assert.Equal(t, DefaultClearance, opts.Clearance)
	assert.Equal(t, DefaultSnapDistance, opts.SnapDistance)
	assert.Equal(t, PolicyVerticalFirst, opts.Policy)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyAdaptive},
		{in: "adaptive", want: PolicyAdaptive},
		{in: "Horizontal-First", want: PolicyHorizontalFirst},
		{in: "vertical", want: PolicyVerticalFirst},
		{in: "diagonal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, diagram.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Policy {
	t.Helper()
	p, err := ParsePolicy(s)
	require.NoError(t, err)
	return p
}
