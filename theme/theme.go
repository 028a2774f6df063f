// Package theme holds the colours, icons and styles shared by the CLI output
// and the pretty log handler.
package theme

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Yellow = lipgloss.Color("#F59E0B")
	Red    = lipgloss.Color("#E5484D")
)

// Status icons.
const (
	IconOK    = "✓"
	IconWarn  = "!"
	IconError = "✗"
)

// Styles are the palette bound to one renderer, so colour support follows
// the writer the styles end up in.
type Styles struct {
	ID    lipgloss.Style
	Muted lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Frame lipgloss.Style
}

// NewStyles builds the styles for r. A nil renderer uses the default one.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		ID:    r.NewStyle().Bold(true).Foreground(Iris),
		Muted: r.NewStyle().Foreground(Slate),
		OK:    r.NewStyle().Foreground(Green),
		Warn:  r.NewStyle().Foreground(Yellow),
		Error: r.NewStyle().Bold(true).Foreground(Red),
		Frame: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Slate),
	}
}
