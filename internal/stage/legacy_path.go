package stage

import (
	"inkboard/internal/bridge"
	"inkboard/internal/pointer"
	"inkboard/internal/surface"
)

// Touch path: without unified pointer events, touch events drive
// everything, with single-finger selection going through the bridge.

func (c *Coordinator) onTouchStart(ev *surface.Event) {
	var admitted []pointer.Sample
	for _, s := range ev.Changed {
		if !c.admit(pointer.SourceTouch, "down", s) {
			continue
		}
		admitted = append(admitted, s)
		if !s.IsStylus() {
			c.gesture.AddContact(s.ID, s.Kind)
		}
	}

	live := c.liveTouches(ev.Touches)
	c.gesture.SetTouchCount(len(live))
	te := TouchEvent{Touches: live, Changed: admitted}

	if len(live) >= 2 || c.multiTouchLocked() {
		ev.PreventDefault()
		c.endFingerStrokeLocked()
		c.pinching, c.touchPan = true, false
		c.pan("touch_start", func(pz PanZoom) { pz.TouchStart(te) })
		for _, s := range admitted {
			c.record(pointer.SourceTouch, "down", s, VerdictProcessed, "multi_touch", RouteGesture)
		}
		return
	}

	if len(admitted) == 0 || c.touchPan {
		return
	}
	s := admitted[0]
	if c.stroke.active {
		st, ok := c.preemptingStylus(admitted)
		if !ok {
			return
		}
		c.endStrokeLocked()
		s = st
	}
	ev.PreventDefault()

	var bridged bool
	c.guard("bridge_down", func() error {
		bridged = c.bridge.Bridge(te, bridge.PhaseDown)
		return nil
	})
	if bridged {
		c.stroke = stroke{active: true, id: s.ID, kind: s.Kind, route: RouteBridge}
		c.record(pointer.SourceTouch, "down", s, VerdictProcessed, "", RouteBridge)
		return
	}

	st := c.tools.State()
	if st.Tool.IsDrawing() && !st.ReadOnly {
		c.startStrokeLocked(pointer.SourceTouch, "down", s)
		return
	}

	c.touchPan = true
	c.pan("touch_start", func(pz PanZoom) { pz.TouchStart(te) })
	c.record(pointer.SourceTouch, "down", s, VerdictProcessed, "", RoutePan)
}

func (c *Coordinator) onTouchMove(ev *surface.Event) {
	live := c.liveTouches(ev.Touches)
	c.gesture.SetTouchCount(len(live))

	if c.pinching || c.touchPan {
		ev.PreventDefault()
		te := TouchEvent{Touches: live, Changed: c.liveTouches(ev.Changed)}
		c.pan("touch_move", func(pz PanZoom) { pz.TouchMove(te) })
		return
	}
	if !c.stroke.active {
		return
	}
	for _, s := range ev.Changed {
		if s.ID != c.stroke.id {
			continue
		}
		if c.admit(pointer.SourceTouch, "move", s) {
			ev.PreventDefault()
			c.moveStrokeLocked(pointer.SourceTouch, "move", s)
		}
		return
	}
}

func (c *Coordinator) onTouchEnd(ev *surface.Event) {
	live := c.liveTouches(ev.Touches)

	for _, s := range ev.Changed {
		c.noteUp(pointer.SourceTouch, s)
		if c.stroke.active && c.stroke.id == s.ID {
			c.endTouchStrokeLocked(live, s)
		}
		c.palm.OnContactEnd(s.ID)
		c.gesture.RemoveContact(s.ID)
	}
	c.gesture.SetTouchCount(len(live))

	te := TouchEvent{Touches: live, Changed: ev.Changed}
	switch {
	case c.pinching:
		c.pan("touch_end", func(pz PanZoom) { pz.TouchEnd(te) })
		if len(live) < 2 {
			// A remaining finger keeps panning from where it is.
			c.pinching = false
			c.touchPan = len(live) == 1
		}
	case c.touchPan:
		c.pan("touch_end", func(pz PanZoom) { pz.TouchEnd(te) })
		if len(live) == 0 {
			c.touchPan = false
		}
	}
}

func (c *Coordinator) endTouchStrokeLocked(live []pointer.Sample, s pointer.Sample) {
	route := c.stroke.route
	if route != RouteBridge {
		c.endStrokeLocked()
		c.record(pointer.SourceTouch, "up", s, VerdictProcessed, "", route)
		return
	}

	c.stroke = stroke{}
	te := TouchEvent{Touches: live, Changed: []pointer.Sample{s}}
	var ok bool
	c.guard("bridge_up", func() error {
		ok = c.bridge.Bridge(te, bridge.PhaseUp)
		return nil
	})
	if !ok {
		c.guard("bridge_cancel", func() error {
			c.bridge.Cancel()
			return nil
		})
	}
	c.record(pointer.SourceTouch, "up", s, VerdictProcessed, "", RouteBridge)
}

// Legacy mouse events. On the pointer path they duplicate pointer events
// and are routed only when deduplication can tell them apart.

func (c *Coordinator) mouseRoutable() bool {
	return c.mode == ModeTouch || c.cfg.Dedup.Enabled
}

func mouseSample(ev *surface.Event) pointer.Sample {
	s := ev.Sample
	s.ID = mouseContactID
	if s.Kind == pointer.KindUnknown {
		s.Kind = pointer.KindMouse
	}
	return s
}

func (c *Coordinator) onMouseDown(ev *surface.Event) {
	if !c.mouseRoutable() {
		return
	}
	s := mouseSample(ev)

	if ev.Button == surface.ButtonSecondary {
		if c.cfg.Dedup.Enabled && !c.dedup.ShouldProcess(dedupEvent(pointer.SourceMouse, "down", s)) {
			c.record(pointer.SourceMouse, "down", s, VerdictDuplicate, "", RouteNone)
			return
		}
		ev.PreventDefault()
		c.startRightPanLocked(s)
		c.record(pointer.SourceMouse, "down", s, VerdictProcessed, "secondary_button", RoutePan)
		return
	}

	if !c.admit(pointer.SourceMouse, "down", s) {
		return
	}
	ev.PreventDefault()
	c.startStrokeLocked(pointer.SourceMouse, "down", s)
}

func (c *Coordinator) onMouseMove(ev *surface.Event) {
	if !c.mouseRoutable() {
		return
	}
	s := mouseSample(ev)

	if c.rightPan.active && c.rightPan.id == s.ID {
		c.pan("continue_pan", func(pz PanZoom) { pz.ContinuePan(s.Position) })
		return
	}
	if !c.stroke.active || c.stroke.id != s.ID {
		return
	}
	if !c.admit(pointer.SourceMouse, "move", s) {
		return
	}
	c.moveStrokeLocked(pointer.SourceMouse, "move", s)
}

func (c *Coordinator) onMouseUp(ev *surface.Event) {
	if !c.mouseRoutable() {
		return
	}
	s := mouseSample(ev)
	c.noteUp(pointer.SourceMouse, s)
	c.releaseContactLocked(pointer.SourceMouse, s)
}
