// Package canvas rasterizes routed diagrams onto a grid of terminal cells.
package canvas

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"go.trai.ch/zerr"
)

// ErrInvalidSize is returned when a grid is created without any cells.
var ErrInvalidSize = zerr.New("invalid canvas size")

// BoxStyle holds the glyphs used to outline a node.
type BoxStyle struct {
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
	Horizontal  rune
	Vertical    rune
}

var (
	// SquareBoxStyle outlines nodes with sharp corners.
	SquareBoxStyle = BoxStyle{'┌', '┐', '└', '┘', '─', '│'}
	// SelectedBoxStyle highlights the node under the cursor.
	SelectedBoxStyle = BoxStyle{'╔', '╗', '╚', '╝', '═', '║'}
)

// Grid is a rune matrix. Origin is top-left, X grows right and Y grows down.
//
// Grid is not safe for concurrent writes.
type Grid struct {
	cells  [][]rune
	lines  [][]arms
	width  int
	height int
}

// NewGrid creates a blank grid of the given size.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		err := zerr.With(zerr.Wrap(ErrInvalidSize, "grid needs at least one cell"), "width", width)
		return nil, zerr.With(err, "height", height)
	}
	cells := make([][]rune, height)
	lines := make([][]arms, height)
	for y := range cells {
		cells[y] = make([]rune, width)
		lines[y] = make([]arms, width)
	}
	g := &Grid{cells: cells, lines: lines, width: width, height: height}
	g.Clear()
	return g, nil
}

// Size returns the width and height of the grid in cells.
func (g *Grid) Size() (width, height int) {
	return g.width, g.height
}

func (g *Grid) inside(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Get returns the glyph at x, y or a space when out of bounds.
func (g *Grid) Get(x, y int) rune {
	if !g.inside(x, y) {
		return ' '
	}
	return g.cells[y][x]
}

// Set merges r into the cell at x, y. Out of bounds writes are clipped.
func (g *Grid) Set(x, y int, r rune) {
	if !g.inside(x, y) {
		return
	}
	g.cells[y][x] = Merge(g.cells[y][x], r)
}

// put overwrites a cell without merging.
func (g *Grid) put(x, y int, r rune) {
	if g.inside(x, y) {
		g.cells[y][x] = r
		g.lines[y][x] = 0
	}
}

// Clear resets every cell to a space.
func (g *Grid) Clear() {
	for y := range g.cells {
		for x := range g.cells[y] {
			g.cells[y][x] = ' '
			g.lines[y][x] = 0
		}
	}
}

// String returns the grid with rows separated by newlines and trailing
// spaces trimmed.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.height * (g.width + 1))
	for y, row := range g.cells {
		line := make([]rune, 0, len(row))
		for _, r := range row {
			if r == 0 {
				continue // wide rune continuation
			}
			line = append(line, r)
		}
		sb.WriteString(strings.TrimRight(string(line), " "))
		if y < g.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Each calls fn for every non-blank cell in row-major order.
func (g *Grid) Each(fn func(x, y int, r rune)) {
	for y, row := range g.cells {
		for x, r := range row {
			if r != ' ' && r != 0 {
				fn(x, y, r)
			}
		}
	}
}

// DrawBox outlines the cell rectangle at x, y. Boxes smaller than 2x2 are
// drawn as a single mark.
func (g *Grid) DrawBox(x, y, width, height int, style BoxStyle) {
	if width < 2 || height < 2 {
		g.Set(x, y, '■')
		return
	}
	right, bottom := x+width-1, y+height-1
	for i := x + 1; i < right; i++ {
		g.Set(i, y, style.Horizontal)
		g.Set(i, bottom, style.Horizontal)
	}
	for j := y + 1; j < bottom; j++ {
		g.Set(x, j, style.Vertical)
		g.Set(right, j, style.Vertical)
	}
	g.Set(x, y, style.TopLeft)
	g.Set(right, y, style.TopRight)
	g.Set(x, bottom, style.BottomLeft)
	g.Set(right, bottom, style.BottomRight)
}

// DrawText writes text starting at x, y, overwriting lines below it.
// Wide runes take two cells.
func (g *Grid) DrawText(x, y int, text string) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > g.width {
			return
		}
		g.put(x, y, r)
		if w == 2 {
			g.put(x+1, y, 0)
		}
		x += w
	}
}

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// DrawPath draws an orthogonal polyline through cells. Bends and crossings
// with other lines become junction glyphs.
func (g *Grid) DrawPath(cells []Cell) {
	for i := 1; i < len(cells); i++ {
		g.drawSegment(cells[i-1], cells[i])
	}
}

func (g *Grid) drawSegment(a, b Cell) {
	switch {
	case a == b:
		return
	case a.Y == b.Y:
		step, out, in := 1, armE, armW
		if b.X < a.X {
			step, out, in = -1, armW, armE
		}
		g.addArms(a.X, a.Y, out)
		for x := a.X + step; x != b.X; x += step {
			g.addArms(x, a.Y, armE|armW)
		}
		g.addArms(b.X, b.Y, in)
	case a.X == b.X:
		step, out, in := 1, armS, armN
		if b.Y < a.Y {
			step, out, in = -1, armN, armS
		}
		g.addArms(a.X, a.Y, out)
		for y := a.Y + step; y != b.Y; y += step {
			g.addArms(a.X, y, armN|armS)
		}
		g.addArms(b.X, b.Y, in)
	default:
		// rounding can skew a segment; draw it as an L
		g.drawSegment(a, Cell{X: b.X, Y: a.Y})
		g.drawSegment(Cell{X: b.X, Y: a.Y}, b)
	}
}

func (g *Grid) addArms(x, y int, a arms) {
	if !g.inside(x, y) {
		return
	}
	prev := g.lines[y][x]
	g.lines[y][x] |= a
	cur := g.lines[y][x]
	existing := g.cells[y][x]
	switch {
	case prev != 0 && existing == lineRunes[prev], existing == ' ', existing == 0:
		g.cells[y][x] = lineRunes[cur]
	default:
		// box outlines join the line; arrows and text stay
		if base, ok := runeArms[existing]; ok {
			g.cells[y][x] = lineRunes[base|cur]
		}
	}
}

// ArrowRune returns the arrowhead glyph for a placement angle. The angle
// points from the tail back along the line, so the head faces the opposite
// way.
func ArrowRune(angle float64) rune {
	switch quadrant(angle) {
	case 0:
		return '◀'
	case 1:
		return '▲'
	case 2:
		return '▶'
	default:
		return '▼'
	}
}

func quadrant(angle float64) int {
	a := angle
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return int((a+45)/90) % 4
}
