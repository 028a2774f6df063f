package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"flowroute/canvas"
	"flowroute/diagram"
	"flowroute/session"
)

type pointOutput struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

type routeOutput struct {
	ID         string        `yaml:"id" json:"id"`
	Source     string        `yaml:"source" json:"source"`
	Target     string        `yaml:"target" json:"target"`
	Points     []pointOutput `yaml:"points" json:"points"`
	Tip        pointOutput   `yaml:"tip" json:"tip"`
	Angle      float64       `yaml:"angle" json:"angle"`
	Path       string        `yaml:"path" json:"path"`
	Degenerate bool          `yaml:"degenerate,omitempty" json:"degenerate,omitempty"`
}

func (c *CLI) newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <graph>",
		Short: "Route every connection of a graph file and print the geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			draw, _ := cmd.Flags().GetBool("draw")

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg)

			s, err := openSession(cfg, log, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.WarmUp(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeRoutes(out, format, collectRoutes(s)); err != nil {
				return err
			}
			if draw {
				if err := drawScene(out, s); err != nil {
					return err
				}
			}

			stats := s.Stats()
			log.Info("routed graph",
				"nodes", stats.Nodes,
				"connections", stats.Connections,
				"hits", stats.Cache.Hits,
				"misses", stats.Cache.Misses,
				"missing", stats.Cache.MissingEndpoints,
			)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text, yaml or json")
	cmd.Flags().Bool("draw", false, "Draw the routed diagram after the geometry")
	return cmd
}

func collectRoutes(s *session.Session) []routeOutput {
	conns := s.Index().Connections()
	routes := make([]routeOutput, 0, len(conns))
	for _, conn := range conns {
		g := s.Geometry(conn.ID)
		r := routeOutput{
			ID:         string(conn.ID),
			Source:     portLabel(conn.Source, conn.SourcePort),
			Target:     portLabel(conn.Target, conn.TargetPort),
			Points:     make([]pointOutput, 0, len(g.Points)),
			Tip:        toPointOutput(g.Arrow.Tip),
			Angle:      g.Arrow.Angle,
			Path:       g.Path,
			Degenerate: g.Degenerate,
		}
		for _, p := range g.Points {
			r.Points = append(r.Points, toPointOutput(p))
		}
		routes = append(routes, r)
	}
	return routes
}

func toPointOutput(p diagram.Point) pointOutput {
	return pointOutput{X: p.X, Y: p.Y}
}

func writeRoutes(w io.Writer, format string, routes []routeOutput) error {
	switch strings.ToLower(format) {
	case "text", "":
		return writeText(w, routes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(routes); err != nil {
			return zerr.Wrap(err, "failed to encode routes")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(routes); err != nil {
			return zerr.Wrap(err, "failed to encode routes")
		}
		return nil
	default:
		return zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "unknown output format"), "format", format)
	}
}

func writeText(w io.Writer, routes []routeOutput) error {
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no connections"))
		return err
	}
	for _, r := range routes {
		mark := okStyle.Render(iconRouted)
		if r.Degenerate {
			mark = warnStyle.Render(iconDegenerate)
		}
		header := fmt.Sprintf("%s %s  %s → %s", mark, idStyle.Render(r.ID), r.Source, r.Target)
		detail := mutedStyle.Render(fmt.Sprintf("%d points, arrow %.0f°", len(r.Points), r.Angle))
		if _, err := fmt.Fprintf(w, "%s  %s\n    %s\n", header, detail, r.Path); err != nil {
			return zerr.Wrap(err, "failed to write routes")
		}
	}
	return nil
}

func drawScene(w io.Writer, s *session.Session) error {
	scene := canvas.Capture(s.Index(), s.Geometry)
	vp, width, height := scene.Fit(1)
	grid, err := canvas.NewGrid(width, height)
	if err != nil {
		return err
	}
	canvas.Render(grid, vp, scene)
	_, err = fmt.Fprintln(w, frameStyle.Render(grid.String()))
	return err
}
