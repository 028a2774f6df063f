package config

import (
	"os"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"flowroute/diagram"
)

// GraphFile is the on-disk form of a graph fixture. JSON fixtures use the
// same keys.
type GraphFile struct {
	Nodes       []NodeDTO       `yaml:"nodes" json:"nodes"`
	Connections []ConnectionDTO `yaml:"connections" json:"connections"`
}

// NodeDTO describes one node. Shape is "box" (default), "ellipse" or "sector".
type NodeDTO struct {
	ID       string  `yaml:"id" json:"id"`
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Width    float64 `yaml:"width" json:"width"`
	Height   float64 `yaml:"height" json:"height"`
	Shape    string  `yaml:"shape,omitempty" json:"shape,omitempty"`
	StartDeg float64 `yaml:"start_deg,omitempty" json:"start_deg,omitempty"`
	SweepDeg float64 `yaml:"sweep_deg,omitempty" json:"sweep_deg,omitempty"`
}

// ConnectionDTO describes one connection. Empty ports are chosen
// automatically when the connection is added.
type ConnectionDTO struct {
	ID         string `yaml:"id" json:"id"`
	Source     string `yaml:"source" json:"source"`
	SourcePort string `yaml:"source_port,omitempty" json:"source_port,omitempty"`
	Target     string `yaml:"target" json:"target"`
	TargetPort string `yaml:"target_port,omitempty" json:"target_port,omitempty"`
}

// LoadGraph reads a YAML or JSON graph fixture.
func LoadGraph(path string) ([]diagram.Node, []diagram.Connection, error) {
	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to read graph"), "path", path)
	}
	nodes, conns, err := ParseGraph(data)
	if err != nil {
		return nil, nil, zerr.With(err, "path", path)
	}
	return nodes, conns, nil
}

// ParseGraph decodes a fixture. YAML is a superset of JSON, so one decoder
// handles both.
func ParseGraph(data []byte) ([]diagram.Node, []diagram.Connection, error) {
	var file GraphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, zerr.Wrap(err, "failed to parse graph")
	}

	nodes := make([]diagram.Node, 0, len(file.Nodes))
	for _, dto := range file.Nodes {
		n, err := dto.toNode()
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}

	conns := make([]diagram.Connection, 0, len(file.Connections))
	for _, dto := range file.Connections {
		if dto.ID == "" {
			return nil, nil, zerr.With(zerr.Wrap(diagram.ErrEmptyID, "connection without id"), "source", dto.Source)
		}
		conns = append(conns, diagram.Connection{
			ID:         diagram.ConnectionID(dto.ID),
			Source:     diagram.NodeID(dto.Source),
			SourcePort: dto.SourcePort,
			Target:     diagram.NodeID(dto.Target),
			TargetPort: dto.TargetPort,
		})
	}
	return nodes, conns, nil
}

func (dto NodeDTO) toNode() (diagram.Node, error) {
	if dto.ID == "" {
		return diagram.Node{}, zerr.Wrap(diagram.ErrEmptyID, "node without id")
	}
	if dto.Width <= 0 || dto.Height <= 0 {
		return diagram.Node{}, zerr.With(zerr.Wrap(diagram.ErrInvalidTransform, "node size must be positive"), "node", dto.ID)
	}

	var shape diagram.Shape
	switch strings.ToLower(dto.Shape) {
	case "", "box":
		shape = diagram.Box{}
	case "ellipse":
		shape = diagram.Ellipse{}
	case "sector":
		shape = diagram.Sector{StartDeg: dto.StartDeg, SweepDeg: dto.SweepDeg}
	default:
		return diagram.Node{}, zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "unknown shape"), "shape", dto.Shape)
	}

	return diagram.Node{
		ID:       diagram.NodeID(dto.ID),
		Position: diagram.Point{X: dto.X, Y: dto.Y},
		Size:     diagram.Size{Width: dto.Width, Height: dto.Height},
		Shape:    shape,
	}, nil
}
