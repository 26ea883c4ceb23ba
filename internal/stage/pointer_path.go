package stage

import (
	"inkboard/internal/pointer"
	"inkboard/internal/surface"
)

// Pointer path: unified pointer events drive drawing and selection; touch
// events only drive multi-finger pinch and pan.

func (c *Coordinator) onPointerDown(ev *surface.Event) {
	s := ev.Sample

	if ev.Button == surface.ButtonSecondary {
		ev.PreventDefault()
		c.noteDown(pointer.SourcePointer, s)
		c.startRightPanLocked(s)
		c.record(pointer.SourcePointer, "down", s, VerdictProcessed, "secondary_button", RoutePan)
		return
	}

	if !c.admit(pointer.SourcePointer, "down", s) {
		return
	}

	if s.Kind == pointer.KindTouch {
		c.gesture.AddContact(s.ID, s.Kind)
		if c.multiTouchLocked() {
			c.endFingerStrokeLocked()
			c.record(pointer.SourcePointer, "down", s, VerdictProcessed, "multi_touch", RouteGesture)
			return
		}
	}

	ev.PreventDefault()
	c.startStrokeLocked(pointer.SourcePointer, "down", s)
}

func (c *Coordinator) onPointerMove(ev *surface.Event) {
	s := ev.Sample

	if c.rightPan.active && c.rightPan.id == s.ID {
		c.pan("continue_pan", func(pz PanZoom) { pz.ContinuePan(s.Position) })
		return
	}
	if !c.stroke.active || c.stroke.id != s.ID {
		return
	}
	if !c.admit(pointer.SourcePointer, "move", s) {
		return
	}
	ev.PreventDefault()
	c.moveStrokeLocked(pointer.SourcePointer, "move", s)
}

func (c *Coordinator) onPointerUp(ev *surface.Event) {
	s := ev.Sample
	c.noteUp(pointer.SourcePointer, s)
	c.releaseContactLocked(pointer.SourcePointer, s)
}

func (c *Coordinator) onGestureTouch(ev *surface.Event) {
	live := c.liveTouches(ev.Touches)
	c.gesture.SetTouchCount(len(live))
	te := TouchEvent{Touches: live, Changed: c.liveTouches(ev.Changed)}

	switch {
	case len(live) >= 2 && !c.pinching:
		ev.PreventDefault()
		c.pinching = true
		c.endFingerStrokeLocked()
		c.pan("touch_start", func(pz PanZoom) { pz.TouchStart(te) })
	case c.pinching && ev.Type == surface.TouchStart:
		ev.PreventDefault()
		c.pan("touch_start", func(pz PanZoom) { pz.TouchStart(te) })
	case c.pinching:
		ev.PreventDefault()
		c.pan("touch_move", func(pz PanZoom) { pz.TouchMove(te) })
	}
}

func (c *Coordinator) onGestureTouchEnd(ev *surface.Event) {
	for _, s := range ev.Changed {
		c.gesture.RemoveContact(s.ID)
	}
	live := c.liveTouches(ev.Touches)
	c.gesture.SetTouchCount(len(live))
	if !c.pinching {
		return
	}
	te := TouchEvent{Touches: live, Changed: ev.Changed}
	c.pan("touch_end", func(pz PanZoom) { pz.TouchEnd(te) })
	if len(live) < 2 {
		c.pinching = false
	}
}

// noteDown records a secondary-button press for deduplication only.
func (c *Coordinator) noteDown(src pointer.Source, s pointer.Sample) {
	if c.cfg.Dedup.Enabled {
		c.dedup.ShouldProcess(dedupEvent(src, "down", s))
	}
}
