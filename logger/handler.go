package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"flowroute/theme"
)

// PrettyHandler is a slog.Handler that writes one line per record: a level
// icon, the message, then key=value pairs with muted keys.
type PrettyHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	styles theme.Styles
	level  slog.Leveler
	// attrs are already qualified with the groups open when they were added
	attrs  string
	prefix string
}

// NewPrettyHandler creates a PrettyHandler writing to w. Colours are dropped
// when w is not a terminal.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyHandler{
		w:      w,
		mu:     &sync.Mutex{},
		styles: theme.NewStyles(lipgloss.NewRenderer(w, termenv.WithColorCache(true))),
		level:  level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	switch {
	case r.Level >= slog.LevelError:
		b.WriteString(h.styles.Error.Render(theme.IconError + " " + r.Message))
	case r.Level >= slog.LevelWarn:
		b.WriteString(h.styles.Warn.Render(theme.IconWarn + " " + r.Message))
	case r.Level >= slog.LevelInfo:
		b.WriteString(r.Message)
	default:
		b.WriteString(h.styles.Muted.Render(r.Message))
	}

	b.WriteString(h.attrs)
	r.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&b, h.prefix, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, attr := range attrs {
		h.appendAttr(&b, h.prefix, attr)
	}
	clone := *h
	clone.attrs = b.String()
	return &clone
}

// WithGroup returns a new Handler that qualifies later attributes with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *PrettyHandler) appendAttr(b *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, inner := range attr.Value.Group() {
			h.appendAttr(b, prefix, inner)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(h.styles.Muted.Render(prefix + attr.Key + "="))
	b.WriteString(attr.Value.String())
}
