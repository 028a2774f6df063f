package canvas

import (
	"math"

	"flowroute/diagram"
	"flowroute/pathfinding"
)

// Terminal cells are roughly twice as tall as they are wide.
const (
	DefaultScaleX = 0.1
	DefaultScaleY = 0.05
)

// Viewport maps canvas coordinates to grid cells.
type Viewport struct {
	Origin         diagram.Point
	ScaleX, ScaleY float64
}

// DefaultViewport shows the canvas from origin at the default scale.
func DefaultViewport(origin diagram.Point) Viewport {
	return Viewport{Origin: origin, ScaleX: DefaultScaleX, ScaleY: DefaultScaleY}
}

// Cell returns the grid cell containing p.
func (v Viewport) Cell(p diagram.Point) Cell {
	return Cell{
		X: int(math.Round((p.X - v.Origin.X) * v.ScaleX)),
		Y: int(math.Round((p.Y - v.Origin.Y) * v.ScaleY)),
	}
}

// Span returns the cell rectangle covering r.
func (v Viewport) Span(r diagram.Rect) (x, y, width, height int) {
	tl := v.Cell(diagram.Point{X: r.Left(), Y: r.Top()})
	br := v.Cell(diagram.Point{X: r.Right(), Y: r.Bottom()})
	return tl.X, tl.Y, br.X - tl.X + 1, br.Y - tl.Y + 1
}

// Topology lists what a scene is made of.
type Topology interface {
	Nodes() []diagram.Node
	Connections() []diagram.Connection
}

// Route is one connection with its routed geometry.
type Route struct {
	ID       diagram.ConnectionID
	Geometry *pathfinding.Geometry
}

// Scene is everything needed to draw one frame.
type Scene struct {
	Nodes    []diagram.Node
	Routes   []Route
	Selected diagram.NodeID
}

// Capture collects nodes and the geometry of every connection.
func Capture(t Topology, geometry func(diagram.ConnectionID) *pathfinding.Geometry) Scene {
	conns := t.Connections()
	routes := make([]Route, 0, len(conns))
	for _, c := range conns {
		routes = append(routes, Route{ID: c.ID, Geometry: geometry(c.ID)})
	}
	return Scene{Nodes: t.Nodes(), Routes: routes}
}

// Bounds covers every node and route in the scene.
func (s Scene) Bounds() diagram.Rect {
	var b diagram.Rect
	for _, n := range s.Nodes {
		b = b.Union(diagram.ShapeBounds(n))
	}
	for _, r := range s.Routes {
		if r.Geometry.Len() > 0 {
			b = b.Union(r.Geometry.Bounds())
		}
	}
	return b
}

// Fit returns a viewport at the default scale with the scene bounds, plus
// margin cells, starting at the top-left cell, and the grid size needed to
// show all of it.
func (s Scene) Fit(margin int) (Viewport, int, int) {
	b := s.Bounds()
	origin := diagram.Point{
		X: b.Left() - float64(margin)/DefaultScaleX,
		Y: b.Top() - float64(margin)/DefaultScaleY,
	}
	vp := DefaultViewport(origin)
	br := vp.Cell(diagram.Point{X: b.Right(), Y: b.Bottom()})
	return vp, br.X + margin + 1, br.Y + margin + 1
}

// Render draws the scene onto g. Nodes go first so routes can join their
// outlines, then arrowheads, then labels.
func Render(g *Grid, vp Viewport, s Scene) {
	for _, n := range s.Nodes {
		x, y, w, h := vp.Span(diagram.ShapeBounds(n))
		style := SquareBoxStyle
		if n.ID == s.Selected {
			style = SelectedBoxStyle
		}
		g.DrawBox(x, y, w, h, style)
	}

	for _, r := range s.Routes {
		geom := r.Geometry
		if geom == nil || len(geom.Points) < 2 {
			continue
		}
		cells := make([]Cell, 0, len(geom.Points)+1)
		for _, p := range geom.Points {
			cells = append(cells, vp.Cell(p))
		}
		cells = append(cells, vp.Cell(geom.Arrow.Tip))
		g.DrawPath(cells)
	}

	for _, r := range s.Routes {
		geom := r.Geometry
		if geom == nil || geom.Degenerate || len(geom.Points) < 2 {
			continue
		}
		head := arrowCell(vp.Cell(geom.Arrow.Tip), geom.Arrow.Angle)
		g.Set(head.X, head.Y, ArrowRune(geom.Arrow.Angle))
	}

	for _, n := range s.Nodes {
		x, y, w, h := vp.Span(diagram.ShapeBounds(n))
		if w < 3 {
			continue
		}
		label := []rune(string(n.ID))
		if len(label) > w-2 {
			label = label[:w-2]
		}
		row := y + h/2
		if h < 3 {
			row = y
		}
		g.DrawText(x+1, row, string(label))
	}
}

// arrowCell is the cell just outside the target outline, one step back
// along the line from the tip.
func arrowCell(tip Cell, angle float64) Cell {
	switch quadrant(angle) {
	case 0:
		return Cell{X: tip.X + 1, Y: tip.Y}
	case 1:
		return Cell{X: tip.X, Y: tip.Y + 1}
	case 2:
		return Cell{X: tip.X - 1, Y: tip.Y}
	default:
		return Cell{X: tip.X, Y: tip.Y - 1}
	}
}
