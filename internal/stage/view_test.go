package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/internal/pointer"
)

func pt(x, y float64) pointer.Point { return pointer.Point{X: x, Y: y} }

func assertPoint(t *testing.T, want, got pointer.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
}

func TestViewIdentity(t *testing.T) {
	v := NewView()
	assertPoint(t, pt(3, 4), v.ToLogical(pt(3, 4)))
	assertPoint(t, pt(3, 4), v.ToScreen(pt(3, 4)))
	assert.Equal(t, 1.0, v.Zoom())
}

func TestViewRoundTrip(t *testing.T) {
	v := NewView()
	v.Set(-40, 25, 2.5)

	for _, p := range []pointer.Point{pt(0, 0), pt(10, -3), pt(1234.5, 77)} {
		assertPoint(t, p, v.ToLogical(v.ToScreen(p)))
	}
	assertPoint(t, pt(10, 20), v.ToLogical(pt(-15, 75)))
}

func TestViewZoomClamped(t *testing.T) {
	v := NewView()
	v.Set(0, 0, 100)
	assert.Equal(t, MaxZoom, v.Zoom())

	v.Set(0, 0, 0)
	assert.Equal(t, MinZoom, v.Zoom())
}

func TestViewZoomAtKeepsAnchor(t *testing.T) {
	v := NewView()
	v.Set(30, 40, 1.5)
	anchor := pt(200, 120)
	before := v.ToLogical(anchor)

	v.ZoomAt(anchor, 3)
	assert.InDelta(t, 4.5, v.Zoom(), 1e-9)
	assertPoint(t, before, v.ToLogical(anchor))

	v.ZoomAt(anchor, 0)
	assert.InDelta(t, 4.5, v.Zoom(), 1e-9, "non-positive factor is ignored")
}

func TestViewDragPan(t *testing.T) {
	v := NewView()
	v.ContinuePan(pt(50, 50))
	assertPoint(t, pt(0, 0), v.ToScreen(pt(0, 0)))

	v.StartPan(pt(10, 10))
	v.ContinuePan(pt(15, 30))
	v.ContinuePan(pt(20, 30))
	v.StopPan()
	v.ContinuePan(pt(500, 500))

	assertPoint(t, pt(10, 20), v.ToScreen(pt(0, 0)))
}

func TestViewWheel(t *testing.T) {
	v := NewView()
	v.Wheel(WheelEvent{DeltaX: 5, DeltaY: 10})
	assertPoint(t, pt(-5, -10), v.ToScreen(pt(0, 0)))

	v = NewView()
	v.Wheel(WheelEvent{Position: pt(100, 100), DeltaY: -200, Ctrl: true})
	assert.Greater(t, v.Zoom(), 1.0)
	assertPoint(t, pt(100, 100), v.ToScreen(pt(100, 100)))
}

func TestViewPinch(t *testing.T) {
	v := NewView()
	a := pointer.Sample{ID: 1, Kind: pointer.KindTouch, Position: pt(0, 0)}
	b := pointer.Sample{ID: 2, Kind: pointer.KindTouch, Position: pt(100, 0)}
	v.TouchStart(TouchEvent{Touches: []pointer.Sample{a, b}})

	a.Position, b.Position = pt(-50, 0), pt(150, 0)
	v.TouchMove(TouchEvent{Touches: []pointer.Sample{a, b}})

	assert.InDelta(t, 2, v.Zoom(), 1e-9)
	assertPoint(t, pt(50, 0), v.ToLogical(pt(50, 0)))
}

func TestViewPinchThenOneFingerPans(t *testing.T) {
	v := NewView()
	a := pointer.Sample{ID: 1, Kind: pointer.KindTouch, Position: pt(0, 0)}
	b := pointer.Sample{ID: 2, Kind: pointer.KindTouch, Position: pt(100, 0)}
	v.TouchStart(TouchEvent{Touches: []pointer.Sample{a, b}})
	v.TouchEnd(TouchEvent{Touches: []pointer.Sample{a}})

	before := v.Matrix()
	a.Position = pt(7, 9)
	v.TouchMove(TouchEvent{Touches: []pointer.Sample{a}})
	after := v.Matrix()

	require.Equal(t, before[0], after[0])
	assert.InDelta(t, before[2]+7, after[2], 1e-9)
	assert.InDelta(t, before[5]+9, after[5], 1e-9)
}

func TestViewDegenerateMatrix(t *testing.T) {
	v := &View{}
	assertPoint(t, pt(8, 9), v.ToLogical(pt(8, 9)))
}
