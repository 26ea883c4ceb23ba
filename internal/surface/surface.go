// Package surface models the interactive drawing element that raw input
// events are delivered to.
//
// Element is an in-process implementation used by host adapters: the host
// translates its native events into Event values and calls Dispatch.
package surface

import (
	"sync"

	"inkboard/internal/pointer"
)

// EventType identifies a raw event.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	PointerLeave
	PointerCancel
	TouchStart
	TouchMove
	TouchEnd
	TouchCancel
	MouseDown
	MouseMove
	MouseUp
	MouseLeave
	Wheel
	ContextMenu
)

var eventNames = [...]string{
	PointerDown:   "pointerdown",
	PointerMove:   "pointermove",
	PointerUp:     "pointerup",
	PointerLeave:  "pointerleave",
	PointerCancel: "pointercancel",
	TouchStart:    "touchstart",
	TouchMove:     "touchmove",
	TouchEnd:      "touchend",
	TouchCancel:   "touchcancel",
	MouseDown:     "mousedown",
	MouseMove:     "mousemove",
	MouseUp:       "mouseup",
	MouseLeave:    "mouseleave",
	Wheel:         "wheel",
	ContextMenu:   "contextmenu",
}

func (t EventType) String() string {
	if int(t) >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Button is a mouse or pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// TouchAction is the host's default touch handling on the element.
type TouchAction string

const (
	TouchActionAuto         TouchAction = "auto"
	TouchActionManipulation TouchAction = "manipulation"
	TouchActionNone         TouchAction = "none"
)

// Event is one raw event delivered to the element.
//
// Pointer and mouse events carry Sample and Button. Touch events carry
// Touches (contacts still down after the event) and Changed (contacts that
// started, moved or ended in this event). Wheel events carry Sample.Position
// and the deltas.
type Event struct {
	Type    EventType
	Sample  pointer.Sample
	Button  Button
	Touches []pointer.Sample
	Changed []pointer.Sample
	DeltaX  float64
	DeltaY  float64
	Ctrl    bool

	defaultPrevented bool
}

// PreventDefault asks the host to skip its native handling.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles one event.
type Listener func(*Event)

// Handle removes a registered listener.
type Handle interface {
	Remove()
}

// Surface is what the coordinator attaches to.
type Surface interface {
	SupportsPointerEvents() bool
	AddListener(t EventType, l Listener) Handle
	SetTouchAction(a TouchAction)
}

type registration struct {
	id uint32
	fn Listener
}

// Element dispatches events to listeners registered per event type.
type Element struct {
	mu          sync.Mutex
	pointer     bool
	listeners   map[EventType][]registration
	nextID      uint32
	touchAction TouchAction
}

// NewElement creates an element. supportsPointer reports whether the host
// delivers unified pointer events.
func NewElement(supportsPointer bool) *Element {
	return &Element{
		pointer:     supportsPointer,
		listeners:   make(map[EventType][]registration),
		touchAction: TouchActionAuto,
	}
}

// SupportsPointerEvents implements Surface.
func (el *Element) SupportsPointerEvents() bool { return el.pointer }

// AddListener implements Surface.
func (el *Element) AddListener(t EventType, l Listener) Handle {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.nextID++
	el.listeners[t] = append(el.listeners[t], registration{id: el.nextID, fn: l})
	return &handle{el: el, t: t, id: el.nextID}
}

// SetTouchAction implements Surface.
func (el *Element) SetTouchAction(a TouchAction) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.touchAction = a
}

// TouchAction returns the current default touch handling.
func (el *Element) TouchAction() TouchAction {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.touchAction
}

// ListenerCount returns the number of registered listeners.
func (el *Element) ListenerCount() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	n := 0
	for _, regs := range el.listeners {
		n += len(regs)
	}
	return n
}

// Dispatch delivers ev to every listener registered for its type, in
// registration order. Listeners may add or remove listeners while running.
func (el *Element) Dispatch(ev *Event) {
	el.mu.Lock()
	regs := append([]registration(nil), el.listeners[ev.Type]...)
	el.mu.Unlock()

	for _, r := range regs {
		r.fn(ev)
	}
}

func (el *Element) remove(t EventType, id uint32) {
	el.mu.Lock()
	defer el.mu.Unlock()
	regs := el.listeners[t]
	for i := range regs {
		if regs[i].id == id {
			copy(regs[i:], regs[i+1:])
			regs[len(regs)-1] = registration{}
			el.listeners[t] = regs[:len(regs)-1]
			return
		}
	}
}

type handle struct {
	el   *Element
	t    EventType
	id   uint32
	once sync.Once
}

func (h *handle) Remove() {
	h.once.Do(func() { h.el.remove(h.t, h.id) })
}
