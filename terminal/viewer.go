// Package terminal shows a routing session in the terminal and lets the
// user drag nodes around to watch connections re-route.
package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gdamore/tcell/v2"
	"go.trai.ch/zerr"

	"flowroute/canvas"
	"flowroute/diagram"
	"flowroute/session"
)

// One keypress moves by a single cell at the default scale.
const (
	nudgeX = 1 / canvas.DefaultScaleX
	nudgeY = 1 / canvas.DefaultScaleY
)

const helpText = "[tab] select  [arrows] move  [hjkl] pan  [w] warm up  [q] quit"

var (
	lineStyle   = tcell.StyleDefault
	arrowStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	statusStyle = tcell.StyleDefault.Reverse(true)
)

// Viewer draws a session onto a tcell screen.
type Viewer struct {
	screen   tcell.Screen
	session  *session.Session
	logger   *slog.Logger
	origin   diagram.Point
	selected diagram.NodeID
	status   string
}

// NewViewer creates a viewer framing the whole diagram.
func NewViewer(screen tcell.Screen, s *session.Session, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	s.Flush()
	vp, _, _ := canvas.Capture(s.Index(), s.Geometry).Fit(1)
	return &Viewer{
		screen:  screen,
		session: s,
		logger:  logger,
		origin:  vp.Origin,
	}
}

// Run initializes the screen and processes events until the user quits or
// ctx is canceled.
func (v *Viewer) Run(ctx context.Context) error {
	if err := v.screen.Init(); err != nil {
		return zerr.Wrap(err, "failed to initialize terminal")
	}
	defer v.screen.Fini()

	stop := context.AfterFunc(ctx, func() {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		v.Draw()
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventKey:
			if v.HandleKey(ev) {
				return nil
			}
		}
	}
}

// Selected returns the node under the cursor, if any.
func (v *Viewer) Selected() diagram.NodeID {
	return v.selected
}

// HandleKey applies one keypress and reports whether the viewer should exit.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return true
	case tcell.KeyTab:
		v.cycle(1)
	case tcell.KeyBacktab:
		v.cycle(-1)
	case tcell.KeyUp:
		v.nudge(0, -nudgeY)
	case tcell.KeyDown:
		v.nudge(0, nudgeY)
	case tcell.KeyLeft:
		v.nudge(-nudgeX, 0)
	case tcell.KeyRight:
		v.nudge(nudgeX, 0)
	case tcell.KeyRune:
		return v.handleRune(ev.Rune())
	}
	return false
}

func (v *Viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case 'h':
		v.origin.X -= nudgeX
	case 'l':
		v.origin.X += nudgeX
	case 'k':
		v.origin.Y -= nudgeY
	case 'j':
		v.origin.Y += nudgeY
	case 'w':
		if err := v.session.WarmUp(context.Background()); err != nil {
			v.fail(err)
			return false
		}
		v.status = "warmed up"
	}
	return false
}

// cycle moves the selection through nodes in id order. Stepping past either
// end clears it.
func (v *Viewer) cycle(step int) {
	nodes := v.session.Index().Nodes()
	if len(nodes) == 0 {
		v.selected = ""
		return
	}
	i := slices.IndexFunc(nodes, func(n diagram.Node) bool { return n.ID == v.selected })
	switch {
	case i < 0 && step > 0:
		i = 0
	case i < 0:
		i = len(nodes) - 1
	default:
		i += step
	}
	if i < 0 || i >= len(nodes) {
		v.selected = ""
		return
	}
	v.selected = nodes[i].ID
}

// nudge moves the selected node, or pans when nothing is selected.
func (v *Viewer) nudge(dx, dy float64) {
	if v.selected == "" {
		v.origin = v.origin.Add(diagram.Point{X: dx, Y: dy})
		return
	}
	err := v.session.TranslateNodes([]diagram.NodeID{v.selected}, diagram.Point{X: dx, Y: dy})
	if err != nil {
		v.fail(err)
		return
	}
	v.status = ""
}

func (v *Viewer) fail(err error) {
	zerr.Log(context.Background(), v.logger, err)
	v.status = err.Error()
}

// Draw applies pending invalidations and repaints the screen.
func (v *Viewer) Draw() {
	v.session.Flush()
	scene := canvas.Capture(v.session.Index(), v.session.Geometry)
	scene.Selected = v.selected

	v.screen.Clear()
	w, h := v.screen.Size()
	if h > 1 {
		grid, err := canvas.NewGrid(w, h-1)
		if err == nil {
			canvas.Render(grid, canvas.DefaultViewport(v.origin), scene)
			grid.Each(func(x, y int, r rune) {
				style := lineStyle
				if canvas.IsArrow(r) {
					style = arrowStyle
				}
				v.screen.SetContent(x, y, r, nil, style)
			})
		}
	}
	v.drawStatus(w, h-1)
	v.screen.Show()
}

func (v *Viewer) statusLine() string {
	msg := v.status
	if msg == "" {
		msg = helpText
	}
	if v.selected != "" {
		msg = fmt.Sprintf("[%s] %s", v.selected, msg)
	}
	return msg + "  " + v.session.Cache().String()
}

func (v *Viewer) drawStatus(width, row int) {
	if row < 0 {
		return
	}
	x := 0
	for _, r := range v.statusLine() {
		if x >= width {
			break
		}
		v.screen.SetContent(x, row, r, nil, statusStyle)
		x++
	}
	for ; x < width; x++ {
		v.screen.SetContent(x, row, ' ', nil, statusStyle)
	}
}
