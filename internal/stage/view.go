package stage

import (
	"math"
	"sync"

	"golang.org/x/image/math/f64"

	"inkboard/internal/pointer"
)

// Zoom limits applied by View.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// View is the pan/zoom state of a surface. It maps logical coordinates to
// screen coordinates with an affine matrix:
//
//	screen.x = m[0]*x + m[1]*y + m[2]
//	screen.y = m[3]*x + m[4]*y + m[5]
//
// View implements Transformer and PanZoom, so it can serve as the pan/zoom
// collaborator when the host has none of its own.
type View struct {
	mu sync.RWMutex
	m  f64.Aff3

	panning bool
	panLast pointer.Point

	pinching  bool
	pinchDist float64
	pinchMid  pointer.Point
}

// NewView returns an identity view.
func NewView() *View {
	return &View{m: f64.Aff3{1, 0, 0, 0, 1, 0}}
}

// Matrix returns the logical-to-screen matrix.
func (v *View) Matrix() f64.Aff3 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.m
}

// Set replaces the view with a uniform zoom followed by an offset.
func (v *View) Set(offsetX, offsetY, zoom float64) {
	zoom = clampZoom(zoom)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m = f64.Aff3{zoom, 0, offsetX, 0, zoom, offsetY}
}

// Zoom returns the current horizontal scale.
func (v *View) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return math.Hypot(v.m[0], v.m[3])
}

// ToScreen maps a logical point to screen coordinates.
func (v *View) ToScreen(p pointer.Point) pointer.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return apply(v.m, p)
}

// ToLogical maps a screen point to logical coordinates. A degenerate
// matrix returns p unchanged.
func (v *View) ToLogical(p pointer.Point) pointer.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()
	inv, ok := invert(v.m)
	if !ok {
		return p
	}
	return apply(inv, p)
}

// PanBy shifts the view by a screen-space delta.
func (v *View) PanBy(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[2] += dx
	v.m[5] += dy
}

// ZoomAt scales the view by factor, keeping the screen point at fixed.
func (v *View) ZoomAt(at pointer.Point, factor float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoomAtLocked(at, factor)
}

func (v *View) zoomAtLocked(at pointer.Point, factor float64) {
	cur := math.Hypot(v.m[0], v.m[3])
	if cur == 0 || factor <= 0 {
		return
	}
	factor = clampZoom(cur*factor) / cur
	tx, ty := v.m[2], v.m[5]
	v.m[0] *= factor
	v.m[1] *= factor
	v.m[3] *= factor
	v.m[4] *= factor
	v.m[2] = at.X - (at.X-tx)*factor
	v.m[5] = at.Y - (at.Y-ty)*factor
}

// StartPan implements PanZoom.
func (v *View) StartPan(p pointer.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panning = true
	v.panLast = p
}

// ContinuePan implements PanZoom.
func (v *View) ContinuePan(p pointer.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.panning {
		return
	}
	v.m[2] += p.X - v.panLast.X
	v.m[5] += p.Y - v.panLast.Y
	v.panLast = p
}

// StopPan implements PanZoom.
func (v *View) StopPan() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panning = false
}

// Wheel implements PanZoom: ctrl-wheel zooms, plain wheel scrolls.
func (v *View) Wheel(ev WheelEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ev.Ctrl {
		v.zoomAtLocked(ev.Position, math.Exp(-ev.DeltaY/500))
		return
	}
	v.m[2] -= ev.DeltaX
	v.m[5] -= ev.DeltaY
}

// TouchStart implements PanZoom.
func (v *View) TouchStart(ev TouchEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.beginTouchLocked(ev)
}

func (v *View) beginTouchLocked(ev TouchEvent) {
	switch len(ev.Touches) {
	case 0:
		v.pinching, v.panning = false, false
	case 1:
		v.pinching = false
		v.panning = true
		v.panLast = ev.Touches[0].Position
	default:
		v.panning = false
		v.pinching = true
		v.pinchMid, v.pinchDist = pinchGeometry(ev.Touches)
	}
}

// TouchMove implements PanZoom: one finger pans, two or more pinch.
func (v *View) TouchMove(ev TouchEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case v.pinching && len(ev.Touches) >= 2:
		mid, dist := pinchGeometry(ev.Touches)
		v.m[2] += mid.X - v.pinchMid.X
		v.m[5] += mid.Y - v.pinchMid.Y
		if v.pinchDist > 0 && dist > 0 {
			v.zoomAtLocked(mid, dist/v.pinchDist)
		}
		v.pinchMid, v.pinchDist = mid, dist
	case v.panning && len(ev.Touches) == 1:
		p := ev.Touches[0].Position
		v.m[2] += p.X - v.panLast.X
		v.m[5] += p.Y - v.panLast.Y
		v.panLast = p
	}
}

// TouchEnd implements PanZoom. Remaining touches restart the gesture so a
// lifted finger does not cause a jump.
func (v *View) TouchEnd(ev TouchEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.beginTouchLocked(ev)
}

func pinchGeometry(touches []pointer.Sample) (pointer.Point, float64) {
	a, b := touches[0].Position, touches[1].Position
	return pointer.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}, a.Dist(b)
}

func clampZoom(z float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

func apply(m f64.Aff3, p pointer.Point) pointer.Point {
	return pointer.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

func invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return f64.Aff3{}, false
	}
	a := m[4] / det
	b := -m[1] / det
	d := -m[3] / det
	e := m[0] / det
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}, true
}
