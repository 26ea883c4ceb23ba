// Package bridge routes single-finger touches into the selection pipeline
// when the selection tool is active.
//
// Multi-finger touches are never bridged so pinch-zoom and two-finger pan
// stay available with every tool.
package bridge

import (
	"sync"

	"inkboard/internal/pointer"
	"inkboard/internal/toolsync"
)

// Phase is the stage of a touch.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
)

func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	default:
		return "unknown"
	}
}

// Selection receives selection intents in logical coordinates.
type Selection interface {
	PointerDown(p pointer.Point)
	PointerMove(p pointer.Point)
	PointerUp()
}

// Transformer maps screen coordinates to logical surface coordinates.
type Transformer interface {
	ToLogical(p pointer.Point) pointer.Point
}

// ToolReader exposes the mirrored tool state.
type ToolReader interface {
	Tool() toolsync.Tool
	ReadOnly() bool
}

// TouchEvent is the part of a touch event the bridge looks at. Touches
// are contacts still down after the event; Changed are contacts that
// started, moved or ended in it.
type TouchEvent struct {
	Touches []pointer.Sample
	Changed []pointer.Sample
}

// TotalContacts counts the distinct contacts involved in the event,
// including ones that ended in it.
func (e TouchEvent) TotalContacts() int {
	seen := make(map[int]struct{}, len(e.Touches)+len(e.Changed))
	for _, s := range e.Touches {
		seen[s.ID] = struct{}{}
	}
	for _, s := range e.Changed {
		seen[s.ID] = struct{}{}
	}
	return len(seen)
}

func (e TouchEvent) primary() (pointer.Sample, bool) {
	if len(e.Changed) > 0 {
		return e.Changed[0], true
	}
	if len(e.Touches) > 0 {
		return e.Touches[0], true
	}
	return pointer.Sample{}, false
}

// Bridge holds the activation flag for one surface.
type Bridge struct {
	mu sync.Mutex

	enabled   bool
	tools     ToolReader
	transform Transformer
	selection Selection
	active    bool
}

// New creates a bridge. A nil tools, transform or selection makes every
// call a no-op.
func New(enabled bool, tools ToolReader, transform Transformer, selection Selection) *Bridge {
	return &Bridge{
		enabled:   enabled,
		tools:     tools,
		transform: transform,
		selection: selection,
	}
}

// Bridge forwards the touch to selection and reports whether it did. A
// false result means the caller should fall through to pan/zoom.
func (b *Bridge) Bridge(ev TouchEvent, phase Phase) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled || b.tools == nil || b.transform == nil || b.selection == nil {
		return false
	}
	if !b.tools.Tool().IsSelection() || b.tools.ReadOnly() {
		return false
	}
	if ev.TotalContacts() != 1 {
		return false
	}
	s, ok := ev.primary()
	if !ok {
		return false
	}

	switch phase {
	case PhaseDown:
		b.selection.PointerDown(b.transform.ToLogical(s.Position))
		b.active = true
	case PhaseMove:
		if !b.active {
			return false
		}
		b.selection.PointerMove(b.transform.ToLogical(s.Position))
	case PhaseUp:
		if !b.active {
			return false
		}
		b.active = false
		b.selection.PointerUp()
	default:
		return false
	}
	return true
}

// Active reports whether a touch is currently bridged.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Cancel ends an active bridge, forwarding the release to selection.
// It reports whether anything was active.
func (b *Bridge) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return false
	}
	b.active = false
	if b.selection != nil {
		b.selection.PointerUp()
	}
	return true
}

// Reset clears the activation flag without notifying selection.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = false
}
