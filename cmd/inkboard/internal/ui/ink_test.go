package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/internal/pointer"
	"inkboard/internal/toolsync"
)

func pt(x, y float64) pointer.Point { return pointer.Point{X: x, Y: y} }

func drawLine(t *testing.T, k *Ink, pts ...pointer.Point) {
	t.Helper()
	require.NoError(t, k.PointerDown(pts[0]))
	for _, p := range pts[1:] {
		require.NoError(t, k.PointerMove(p))
	}
	require.NoError(t, k.PointerUp())
}

func TestInkCommitsStrokes(t *testing.T) {
	tools := toolsync.NewHandler(toolsync.State{Tool: toolsync.ToolHighlighter}, nil)
	k := NewInk(tools)

	require.NoError(t, k.PointerDown(pt(0, 0)))
	require.NoError(t, k.PointerMove(pt(5, 0)))
	open := k.Strokes()
	require.Len(t, open, 1, "open stroke is visible")

	require.NoError(t, k.PointerUp())
	strokes := k.Strokes()
	require.Len(t, strokes, 1)
	assert.Equal(t, toolsync.ToolHighlighter, strokes[0].Tool)
	assert.Equal(t, []pointer.Point{pt(0, 0), pt(5, 0)}, strokes[0].Points)

	strokes[0].Points[0] = pt(99, 99)
	assert.Equal(t, pt(0, 0), k.Strokes()[0].Points[0], "Strokes returns copies")
}

func TestInkUpWithoutDown(t *testing.T) {
	k := NewInk(toolsync.NewHandler(toolsync.State{Tool: toolsync.ToolPen}, nil))
	assert.NoError(t, k.PointerUp())
	assert.Error(t, k.PointerMove(pt(1, 1)))
	assert.Empty(t, k.Strokes())
}

func TestInkEraser(t *testing.T) {
	tools := toolsync.NewHandler(toolsync.State{Tool: toolsync.ToolPen}, nil)
	k := NewInk(tools)
	drawLine(t, k, pt(0, 0), pt(10, 0))
	drawLine(t, k, pt(0, 100), pt(10, 100))

	tools.Push(toolsync.ToolEraser)
	drawLine(t, k, pt(50, 50), pt(12, 3))

	strokes := k.Strokes()
	require.Len(t, strokes, 1)
	assert.Equal(t, pt(0, 100), strokes[0].Points[0])
}

func TestMarqueeSelectsEnclosedStrokes(t *testing.T) {
	tools := toolsync.NewHandler(toolsync.State{Tool: toolsync.ToolPen}, nil)
	k := NewInk(tools)
	drawLine(t, k, pt(10, 10), pt(20, 20))
	drawLine(t, k, pt(10, 10), pt(200, 20))

	m := NewMarquee(k)
	m.PointerDown(pt(50, 50))
	m.PointerMove(pt(0, 0))

	min, max, active := m.Rect()
	assert.True(t, active)
	assert.Equal(t, pt(0, 0), min)
	assert.Equal(t, pt(50, 50), max)

	m.PointerUp()
	_, _, active = m.Rect()
	assert.False(t, active)
	assert.Equal(t, 1, m.Selected())

	strokes := k.Strokes()
	assert.True(t, strokes[0].Selected)
	assert.False(t, strokes[1].Selected)

	m.PointerMove(pt(500, 500))
	assert.Equal(t, 1, m.Selected(), "moves after release are ignored")
}
