// Package diagram contains the fundamental types shared by the routing engine.
package diagram

import (
	"math"
	"strings"
)

// NodeID identifies a node for the lifetime of an editor session.
type NodeID string

// ConnectionID identifies a connection between two node ports.
type ConnectionID string

// Point represents a 2D coordinate on the canvas.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Scale returns p multiplied by s on both axes.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// IsFinite reports whether both coordinates are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Size is the width and height of a node.
type Size struct {
	Width, Height float64
}

// PortDirection is the outward normal of a port anchor.
type PortDirection int

const (
	// DirectionNone is used for anchors that could not be resolved to a side.
	DirectionNone PortDirection = iota
	Top
	Bottom
	Left
	Right
)

// String returns the string representation of a PortDirection.
func (d PortDirection) String() string {
	switch d {
	case Top:
		return "Top"
	case Bottom:
		return "Bottom"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "None"
	}
}

// Opposite returns the opposite direction.
func (d PortDirection) Opposite() PortDirection {
	switch d {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	case Right:
		return Left
	default:
		return d
	}
}

// Normal returns the unit vector pointing away from the node on this side.
// Canvas Y grows downwards.
func (d PortDirection) Normal() Point {
	switch d {
	case Top:
		return Point{X: 0, Y: -1}
	case Bottom:
		return Point{X: 0, Y: 1}
	case Left:
		return Point{X: -1, Y: 0}
	case Right:
		return Point{X: 1, Y: 0}
	default:
		return Point{}
	}
}

// IsHorizontal returns true for Left and Right.
func (d PortDirection) IsHorizontal() bool {
	return d == Left || d == Right
}

// IsVertical returns true for Top and Bottom.
func (d PortDirection) IsVertical() bool {
	return d == Top || d == Bottom
}

// ParsePort maps a symbolic port designation to a direction.
// Unknown designations return DirectionNone and false.
func ParsePort(port string) (PortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(port)) {
	case "top", "topport":
		return Top, true
	case "bottom", "bottomport":
		return Bottom, true
	case "left", "leftport":
		return Left, true
	case "right", "rightport":
		return Right, true
	default:
		return DirectionNone, false
	}
}

// Node is a movable, resizable box on the canvas.
type Node struct {
	ID       NodeID `json:"id" yaml:"id"`
	Position Point  `json:"position" yaml:"position"` // top-left corner
	Size     Size   `json:"size" yaml:"size"`
	Shape    Shape  `json:"-" yaml:"-"` // nil means Box
}

// Rect returns the node's layout rectangle, ignoring its shape.
func (n Node) Rect() Rect {
	return Rect{X: n.Position.X, Y: n.Position.Y, Width: n.Size.Width, Height: n.Size.Height}
}

// Center returns the center point of the node.
func (n Node) Center() Point {
	return n.Rect().Center()
}

// Connection is a directed edge between two node ports.
type Connection struct {
	ID         ConnectionID `json:"id" yaml:"id"`
	Source     NodeID       `json:"source" yaml:"source"`
	SourcePort string       `json:"sourcePort,omitempty" yaml:"source_port,omitempty"`
	Target     NodeID       `json:"target" yaml:"target"`
	TargetPort string       `json:"targetPort,omitempty" yaml:"target_port,omitempty"`
}

// IsSelfLoop returns true if both endpoints are the same node.
func (c Connection) IsSelfLoop() bool {
	return c.Source == c.Target
}
