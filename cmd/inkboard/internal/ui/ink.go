package ui

import (
	"errors"
	"math"
	"slices"
	"sync"

	"inkboard/internal/pointer"
	"inkboard/internal/toolsync"
)

// EraseRadius is how close, in logical pixels, the eraser must pass to a
// stroke point to remove the stroke.
const EraseRadius = 8.0

var errNoStroke = errors.New("ink: move without an open stroke")

// ToolReader reports the active tool.
type ToolReader interface {
	Tool() toolsync.Tool
}

// Stroke is a polyline in logical coordinates.
type Stroke struct {
	Tool     toolsync.Tool
	Points   []pointer.Point
	Selected bool
}

// Ink keeps strokes in memory. It is the board's drawing collaborator.
type Ink struct {
	mu      sync.Mutex
	tools   ToolReader
	strokes []Stroke
	current *Stroke
}

// NewInk creates an empty drawing that reads the active tool from tools.
func NewInk(tools ToolReader) *Ink {
	return &Ink{tools: tools}
}

func (k *Ink) PointerDown(p pointer.Point) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	tool := k.tools.Tool()
	k.current = &Stroke{Tool: tool}
	if tool == toolsync.ToolEraser {
		k.eraseLocked(p)
		return nil
	}
	k.current.Points = append(k.current.Points, p)
	return nil
}

func (k *Ink) PointerMove(p pointer.Point) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.current == nil {
		return errNoStroke
	}
	if k.current.Tool == toolsync.ToolEraser {
		k.eraseLocked(p)
		return nil
	}
	k.current.Points = append(k.current.Points, p)
	return nil
}

// PointerUp commits the open stroke. Without one it does nothing.
func (k *Ink) PointerUp() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.current != nil && k.current.Tool != toolsync.ToolEraser && len(k.current.Points) > 0 {
		k.strokes = append(k.strokes, *k.current)
	}
	k.current = nil
	return nil
}

func (k *Ink) eraseLocked(p pointer.Point) {
	k.strokes = slices.DeleteFunc(k.strokes, func(s Stroke) bool {
		return slices.ContainsFunc(s.Points, func(q pointer.Point) bool {
			return q.Dist(p) <= EraseRadius
		})
	})
}

// Strokes returns committed strokes followed by the open one.
func (k *Ink) Strokes() []Stroke {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]Stroke, 0, len(k.strokes)+1)
	for _, s := range k.strokes {
		s.Points = slices.Clone(s.Points)
		out = append(out, s)
	}
	if k.current != nil && len(k.current.Points) > 0 {
		s := *k.current
		s.Points = slices.Clone(s.Points)
		out = append(out, s)
	}
	return out
}

// Clear removes every stroke.
func (k *Ink) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.strokes = nil
	k.current = nil
}

// selectWithin marks strokes lying entirely inside the rectangle.
func (k *Ink) selectWithin(min, max pointer.Point) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	n := 0
	for i := range k.strokes {
		inside := !slices.ContainsFunc(k.strokes[i].Points, func(p pointer.Point) bool {
			return p.X < min.X || p.X > max.X || p.Y < min.Y || p.Y > max.Y
		})
		k.strokes[i].Selected = inside
		if inside {
			n++
		}
	}
	return n
}

// Marquee is the selection collaborator: a rubber-band rectangle that
// selects the strokes it encloses.
type Marquee struct {
	ink *Ink

	mu         sync.Mutex
	start, end pointer.Point
	active     bool
	selected   int
}

// NewMarquee creates a marquee selecting strokes of ink.
func NewMarquee(ink *Ink) *Marquee {
	return &Marquee{ink: ink}
}

func (m *Marquee) PointerDown(p pointer.Point) {
	m.mu.Lock()
	m.start, m.end, m.active = p, p, true
	m.mu.Unlock()
	m.update()
}

func (m *Marquee) PointerMove(p pointer.Point) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.end = p
	m.mu.Unlock()
	m.update()
}

func (m *Marquee) PointerUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

func (m *Marquee) update() {
	min, max, _ := m.Rect()
	n := m.ink.selectWithin(min, max)
	m.mu.Lock()
	m.selected = n
	m.mu.Unlock()
}

// Rect returns the normalised rectangle and whether a drag is in progress.
func (m *Marquee) Rect() (min, max pointer.Point, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	min = pointer.Point{X: math.Min(m.start.X, m.end.X), Y: math.Min(m.start.Y, m.end.Y)}
	max = pointer.Point{X: math.Max(m.start.X, m.end.X), Y: math.Max(m.start.Y, m.end.Y)}
	return min, max, m.active
}

// Selected returns how many strokes the last drag selected.
func (m *Marquee) Selected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}
