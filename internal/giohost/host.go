// Package giohost feeds Gio pointer input into a surface.Element.
//
// Gio reports mouse and touch input as one pointer stream. Host expands
// each Gio event into the raw events a browser-style host would deliver.
// When the element supports pointer events every contact produces a
// pointer event followed by its compatibility event (touch events for
// fingers, mouse events for the mouse). Otherwise only the touch and mouse
// events are delivered.
package giohost

import (
	"log/slog"
	"slices"

	"gioui.org/io/event"
	"gioui.org/io/key"
	gpointer "gioui.org/io/pointer"
	"gioui.org/layout"

	"inkboard/internal/pointer"
	"inkboard/internal/surface"
)

// Kinds is every pointer event kind the host consumes.
const Kinds = gpointer.Press | gpointer.Release | gpointer.Move | gpointer.Drag |
	gpointer.Leave | gpointer.Cancel | gpointer.Scroll

const scrollLimit = 1 << 20

// Filter returns the Gio filter for events targeted at tag.
func Filter(tag event.Tag) gpointer.Filter {
	return gpointer.Filter{
		Target:  tag,
		Kinds:   Kinds,
		ScrollX: gpointer.ScrollRange{Min: -scrollLimit, Max: scrollLimit},
		ScrollY: gpointer.ScrollRange{Min: -scrollLimit, Max: scrollLimit},
	}
}

// Host translates Gio pointer events for one element. It is not safe for
// concurrent use; call it from the window's event loop.
type Host struct {
	el     *surface.Element
	logger *slog.Logger

	touches []pointer.Sample
	pressed map[gpointer.ID]surface.Button
}

// New creates a host delivering to el.
func New(el *surface.Element, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default().With("component", "giohost")
	}
	return &Host{
		el:      el,
		logger:  logger,
		pressed: make(map[gpointer.ID]surface.Button),
	}
}

// Element returns the element events are delivered to.
func (h *Host) Element() *surface.Element { return h.el }

// Events drains the frame's pointer events for tag and dispatches them.
func (h *Host) Events(gtx layout.Context, tag event.Tag) {
	filter := Filter(tag)
	for {
		ev, ok := gtx.Event(filter)
		if !ok {
			return
		}
		if pe, ok := ev.(gpointer.Event); ok {
			h.Handle(pe)
		}
	}
}

// Handle translates e and dispatches the result. It reports whether any
// listener prevented the default action.
func (h *Host) Handle(e gpointer.Event) bool {
	prevented := false
	for _, ev := range h.Translate(e) {
		h.el.Dispatch(ev)
		if ev.DefaultPrevented() {
			prevented = true
		}
	}
	return prevented
}

// Translate converts one Gio event into surface events and updates the
// host's contact tracking.
func (h *Host) Translate(e gpointer.Event) []*surface.Event {
	unified := h.el.SupportsPointerEvents()
	touch := e.Source == gpointer.Touch
	s := sampleOf(e)

	switch e.Kind {
	case gpointer.Press:
		btn := buttonOf(e.Buttons)
		h.pressed[e.PointerID] = btn
		return h.expand(unified, touch, surface.PointerDown, surface.MouseDown, h.touchStart, s, btn)

	case gpointer.Move, gpointer.Drag:
		return h.expand(unified, touch, surface.PointerMove, surface.MouseMove, h.touchMove, s, h.pressed[e.PointerID])

	case gpointer.Release:
		btn, ok := h.pressed[e.PointerID]
		if !ok {
			return nil
		}
		delete(h.pressed, e.PointerID)
		out := h.expand(unified, touch, surface.PointerUp, surface.MouseUp, h.touchEnd, s, btn)
		if btn == surface.ButtonSecondary {
			out = append(out, &surface.Event{Type: surface.ContextMenu, Sample: s, Button: btn})
		}
		return out

	case gpointer.Leave:
		if touch {
			return nil
		}
		delete(h.pressed, e.PointerID)
		if unified {
			return []*surface.Event{
				{Type: surface.PointerLeave, Sample: s},
				{Type: surface.MouseLeave, Sample: s},
			}
		}
		return []*surface.Event{{Type: surface.MouseLeave, Sample: s}}

	case gpointer.Cancel:
		return h.cancel(unified)

	case gpointer.Scroll:
		return []*surface.Event{{
			Type:   surface.Wheel,
			Sample: s,
			DeltaX: float64(e.Scroll.X),
			DeltaY: float64(e.Scroll.Y),
			Ctrl:   e.Modifiers.Contain(key.ModCtrl),
		}}
	}

	h.logger.Debug("ignoring pointer event", "kind", e.Kind.String())
	return nil
}

// expand produces the pointer event, when supported, followed by the
// touch or mouse compatibility event.
func (h *Host) expand(unified, touch bool, ptr, mouse surface.EventType, touchEvent func(pointer.Sample) *surface.Event, s pointer.Sample, btn surface.Button) []*surface.Event {
	out := make([]*surface.Event, 0, 2)
	if unified {
		out = append(out, &surface.Event{Type: ptr, Sample: s, Button: btn})
	}
	if touch {
		out = append(out, touchEvent(s))
	} else {
		out = append(out, &surface.Event{Type: mouse, Sample: s, Button: btn})
	}
	return out
}

// cancel ends every tracked contact. Gio cancels all pointers at once.
func (h *Host) cancel(unified bool) []*surface.Event {
	var out []*surface.Event
	for id := range h.pressed {
		i := h.touchIndex(int(id))
		switch {
		case unified && i >= 0:
			out = append(out, &surface.Event{Type: surface.PointerCancel, Sample: h.touches[i]})
		case unified:
			out = append(out, &surface.Event{Type: surface.PointerCancel, Sample: pointer.Sample{ID: int(id), Kind: pointer.KindMouse}})
		case i < 0:
			out = append(out, &surface.Event{Type: surface.MouseLeave, Sample: pointer.Sample{ID: int(id), Kind: pointer.KindMouse}})
		}
	}
	if len(h.touches) > 0 {
		out = append(out, &surface.Event{Type: surface.TouchCancel, Changed: h.touches})
	}
	h.touches = nil
	clear(h.pressed)
	return out
}

func (h *Host) touchStart(s pointer.Sample) *surface.Event {
	if i := h.touchIndex(s.ID); i >= 0 {
		h.touches[i] = s
	} else {
		h.touches = append(h.touches, s)
	}
	return &surface.Event{Type: surface.TouchStart, Touches: h.snapshot(), Changed: []pointer.Sample{s}}
}

func (h *Host) touchMove(s pointer.Sample) *surface.Event {
	if i := h.touchIndex(s.ID); i >= 0 {
		h.touches[i] = s
	}
	return &surface.Event{Type: surface.TouchMove, Touches: h.snapshot(), Changed: []pointer.Sample{s}}
}

func (h *Host) touchEnd(s pointer.Sample) *surface.Event {
	if i := h.touchIndex(s.ID); i >= 0 {
		h.touches = slices.Delete(h.touches, i, i+1)
	}
	return &surface.Event{Type: surface.TouchEnd, Touches: h.snapshot(), Changed: []pointer.Sample{s}}
}

func (h *Host) touchIndex(id int) int {
	return slices.IndexFunc(h.touches, func(s pointer.Sample) bool { return s.ID == id })
}

func (h *Host) snapshot() []pointer.Sample {
	return slices.Clone(h.touches)
}

// ActiveTouches returns the number of fingers currently down.
func (h *Host) ActiveTouches() int { return len(h.touches) }

func sampleOf(e gpointer.Event) pointer.Sample {
	kind := pointer.KindMouse
	if e.Source == gpointer.Touch {
		kind = pointer.KindTouch
	}
	return pointer.Sample{
		ID:       int(e.PointerID),
		Kind:     kind,
		Position: pointer.Point{X: float64(e.Position.X), Y: float64(e.Position.Y)},
	}
}

func buttonOf(b gpointer.Buttons) surface.Button {
	switch {
	case b.Contain(gpointer.ButtonPrimary):
		return surface.ButtonPrimary
	case b.Contain(gpointer.ButtonSecondary):
		return surface.ButtonSecondary
	case b.Contain(gpointer.ButtonTertiary):
		return surface.ButtonMiddle
	default:
		return surface.ButtonPrimary
	}
}
