package pathfinding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flowroute/diagram"
)

func TestArrowTail(t *testing.T) {
	tip := diagram.Point{X: 300, Y: 30}

	assert.Equal(t, diagram.Point{X: 285, Y: 30}, ArrowTail(tip, diagram.Left, 15))
	assert.Equal(t, diagram.Point{X: 315, Y: 30}, ArrowTail(tip, diagram.Right, 15))
	assert.Equal(t, diagram.Point{X: 300, Y: 15}, ArrowTail(tip, diagram.Top, 15))
	assert.Equal(t, diagram.Point{X: 300, Y: 45}, ArrowTail(tip, diagram.Bottom, 15))
	assert.Equal(t, tip, ArrowTail(tip, diagram.DirectionNone, 15))
}

func TestPlaceArrow(t *testing.T) {
	tip := diagram.Point{X: 300, Y: 30}

	a := placeArrow([]diagram.Point{{X: 100, Y: 30}, {X: 285, Y: 30}}, tip)
	assert.Equal(t, tip, a.Tip)
	assert.InDelta(t, 180.0, a.Angle, 1e-9)

	a = placeArrow([]diagram.Point{{X: 285, Y: 30}}, tip)
	assert.Equal(t, 0.0, a.Angle)
}

func TestGeometry(t *testing.T) {
	points := []diagram.Point{{X: 100, Y: 30}, {X: 115, Y: 30}, {X: 115, Y: -15}, {X: 285, Y: -15}}
	g := newGeometry(points, ArrowPlacement{Tip: diagram.Point{X: 300, Y: -15}, Angle: 180}, false)

	assert.Equal(t, "M100,30 L115,30 L115,-15 L285,-15", g.Path)
	assert.Equal(t, diagram.Rect{X: 100, Y: -15, Width: 200, Height: 45}, g.Bounds())
	assert.Equal(t, 4, g.Len())

	moved := newGeometry(points[:2], g.Arrow, false)
	assert.NotEqual(t, g.Fingerprint, moved.Fingerprint)
	same := newGeometry(points, g.Arrow, false)
	assert.Equal(t, g.Fingerprint, same.Fingerprint)

	var empty *Geometry
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, diagram.Rect{}, empty.Footprint())
	assert.Equal(t, diagram.Rect{}, emptyGeometry().Bounds())

	assert.Equal(t, g.Bounds(), g.Footprint())
	g.searched = diagram.Rect{X: 115, Y: -15, Width: 155, Height: 90}
	assert.Equal(t, diagram.Rect{X: 100, Y: -15, Width: 200, Height: 90}, g.Footprint())
}
