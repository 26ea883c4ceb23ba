// Package stage wires raw surface input into drawing, selection and
// pan/zoom intents.
//
// The Coordinator decides per mount which event stream is authoritative:
// unified pointer events when the surface delivers them, touch and mouse
// events otherwise. Samples pass through deduplication and palm rejection
// before they reach a collaborator.
package stage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkboard/internal/bridge"
	"inkboard/internal/dedup"
	"inkboard/internal/gesture"
	"inkboard/internal/palm"
	"inkboard/internal/pointer"
	"inkboard/internal/surface"
	"inkboard/internal/toolsync"
)

// Mode is the authoritative input path.
type Mode int

const (
	ModeDetached Mode = iota
	ModePointer
	ModeTouch
)

func (m Mode) String() string {
	switch m {
	case ModePointer:
		return "pointer"
	case ModeTouch:
		return "touch"
	default:
		return "detached"
	}
}

// Config toggles and tunes the coordinator's components.
type Config struct {
	Palm          palm.Config
	Gesture       gesture.Config
	Dedup         dedup.Config
	BridgeEnabled bool

	// DisablePointerEvents forces the touch path even when the surface
	// supports unified pointer events.
	DisablePointerEvents bool
}

// DefaultConfig enables every component with default thresholds.
func DefaultConfig() Config {
	return Config{
		Palm:          palm.DefaultConfig(),
		Gesture:       gesture.DefaultConfig(),
		Dedup:         dedup.DefaultConfig(),
		BridgeEnabled: true,
	}
}

// Options configures a Coordinator. Nil collaborators make the matching
// intents no-ops.
type Options struct {
	Config    Config
	Tools     ToolMirror
	Drawing   Drawing
	Selection Selection
	PanZoom   PanZoom
	Transform Transformer
	Recorder  Recorder
	Logger    *slog.Logger
	Clock     func() time.Time
}

// mouseContactID identifies legacy mouse events, which carry no pointer ID.
const mouseContactID = -1

type stroke struct {
	active bool
	id     int
	kind   pointer.Kind
	route  Route
}

type panState struct {
	active bool
	id     int
}

// Coordinator routes one surface's input. Collaborators are called while
// the coordinator's lock is held and must not call back into it.
type Coordinator struct {
	mu sync.Mutex

	cfg       Config
	tools     ToolMirror
	drawing   Drawing
	selection Selection
	panZoom   PanZoom
	transform Transformer
	recorder  Recorder
	logger    *slog.Logger
	clock     func() time.Time

	palm    *palm.Analyzer
	gesture *gesture.Detector
	dedup   *dedup.Engine
	bridge  *bridge.Bridge

	surface     surface.Surface
	handles     []surface.Handle
	unbindTools func()
	unsubscribe func()
	mode        Mode

	stroke   stroke
	rightPan panState
	pinching bool
	touchPan bool
}

// New creates a detached coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		cfg:       opts.Config,
		tools:     opts.Tools,
		drawing:   opts.Drawing,
		selection: opts.Selection,
		panZoom:   opts.PanZoom,
		transform: opts.Transform,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		clock:     opts.Clock,
	}
	if c.tools == nil {
		c.tools = toolsync.NewHandler(toolsync.State{Tool: toolsync.ToolPen}, nil)
	}
	if c.transform == nil {
		c.transform = identity{}
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "stage")
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	c.buildComponents()
	return c
}

func (c *Coordinator) buildComponents() {
	c.palm = palm.New(c.cfg.Palm)
	c.palm.SetClock(c.clock)
	c.gesture = gesture.New(c.cfg.Gesture)
	c.gesture.SetClock(c.clock)
	c.dedup = dedup.New(c.cfg.Dedup)
	c.dedup.SetClock(c.clock)
	c.bridge = bridge.New(c.cfg.BridgeEnabled, c.tools, c.transform, c.selection)
}

// Mode returns the active input path.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Config returns the configuration in use.
func (c *Coordinator) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Palm exposes the palm analyzer, mainly for statistics.
func (c *Coordinator) Palm() *palm.Analyzer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palm
}

// Gesture exposes the gesture detector.
func (c *Coordinator) Gesture() *gesture.Detector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture
}

// Attach wires every listener onto s. Attaching a nil surface is a no-op;
// attaching while attached moves the coordinator to s.
func (c *Coordinator) Attach(s surface.Surface) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.surface != nil {
		c.detachLocked()
	}
	c.attachLocked(s)
}

// Detach removes every listener added by Attach, ends any in-progress
// stroke or pan and clears component state.
func (c *Coordinator) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.surface == nil {
		return
	}
	c.detachLocked()
}

// UpdateConfig replaces the configuration, rebuilding the components and
// re-evaluating the input path of an attached surface.
func (c *Coordinator) UpdateConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.surface
	if s != nil {
		c.detachLocked()
	}
	c.cfg = cfg
	c.buildComponents()
	if s != nil {
		c.attachLocked(s)
	}
}

func (c *Coordinator) attachLocked(s surface.Surface) {
	c.surface = s
	c.mode = ModeTouch
	if s.SupportsPointerEvents() && !c.cfg.DisablePointerEvents {
		c.mode = ModePointer
	}

	c.listen(surface.ContextMenu, c.onContextMenu)
	c.listen(surface.Wheel, c.onWheel)

	switch c.mode {
	case ModePointer:
		c.listen(surface.PointerDown, c.onPointerDown)
		c.listen(surface.PointerMove, c.onPointerMove)
		c.listen(surface.PointerUp, c.onPointerUp)
		c.listen(surface.PointerLeave, c.onPointerUp)
		c.listen(surface.PointerCancel, c.onPointerUp)
		c.listen(surface.TouchStart, c.onGestureTouch)
		c.listen(surface.TouchMove, c.onGestureTouch)
		c.listen(surface.TouchEnd, c.onGestureTouchEnd)
		c.listen(surface.TouchCancel, c.onGestureTouchEnd)
	case ModeTouch:
		c.listen(surface.TouchStart, c.onTouchStart)
		c.listen(surface.TouchMove, c.onTouchMove)
		c.listen(surface.TouchEnd, c.onTouchEnd)
		c.listen(surface.TouchCancel, c.onTouchEnd)
	}

	c.listen(surface.MouseDown, c.onMouseDown)
	c.listen(surface.MouseMove, c.onMouseMove)
	c.listen(surface.MouseUp, c.onMouseUp)
	c.listen(surface.MouseLeave, c.onMouseUp)

	c.unbindTools = c.tools.Bind(s)
	c.unsubscribe = c.tools.OnChange(c.onToolChange)

	c.logger.Debug("input attached", "mode", c.mode.String(), "listeners", len(c.handles))
}

func (c *Coordinator) detachLocked() {
	for _, h := range c.handles {
		h.Remove()
	}
	c.handles = nil
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.unbindTools != nil {
		c.unbindTools()
		c.unbindTools = nil
	}

	c.releaseAllLocked()
	c.resetComponentsLocked()

	c.logger.Debug("input detached", "mode", c.mode.String())
	c.surface = nil
	c.mode = ModeDetached
}

// listen registers fn for t. Every listener runs under the coordinator
// lock and recovers from panics so one bad callback cannot unwire the
// surface.
func (c *Coordinator) listen(t surface.EventType, fn func(*surface.Event)) {
	name := t.String()
	h := c.surface.AddListener(t, func(ev *surface.Event) {
		if ev == nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.mode == ModeDetached {
			return
		}
		c.guard(name, func() error {
			fn(ev)
			return nil
		})
	})
	c.handles = append(c.handles, h)
}

// guard runs fn, logging its error or panic. The event is treated as
// consumed either way.
func (c *Coordinator) guard(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("input handler panicked", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn("input handler failed", "op", op, "error", err)
	}
}

func (c *Coordinator) onToolChange(st toolsync.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeDetached {
		return
	}
	c.logger.Debug("tool changed, resetting input state", "tool", string(st.Tool), "read_only", st.ReadOnly)
	c.bridge.Reset()
	c.releaseAllLocked()
	c.resetComponentsLocked()
}

func (c *Coordinator) releaseAllLocked() {
	c.endStrokeLocked()
	c.stopRightPanLocked()
	if c.pinching || c.touchPan {
		c.pinching, c.touchPan = false, false
		c.pan("touch_end", func(pz PanZoom) { pz.TouchEnd(TouchEvent{}) })
	}
}

func (c *Coordinator) resetComponentsLocked() {
	c.palm.Reset()
	c.gesture.Reset()
	c.dedup.ResetHistory()
	c.bridge.Reset()
}

// Collaborator calls.

func (c *Coordinator) draw(op string, fn func(Drawing) error) {
	if c.drawing == nil {
		return
	}
	c.guard(op, func() error { return fn(c.drawing) })
}

func (c *Coordinator) sel(op string, fn func(Selection)) {
	if c.selection == nil {
		return
	}
	c.guard(op, func() error {
		fn(c.selection)
		return nil
	})
}

func (c *Coordinator) pan(op string, fn func(PanZoom)) {
	if c.panZoom == nil {
		return
	}
	c.guard(op, func() error {
		fn(c.panZoom)
		return nil
	})
}

func (c *Coordinator) record(src pointer.Source, typ string, s pointer.Sample, v Verdict, reason string, r Route) {
	if c.recorder == nil {
		return
	}
	d := Decision{
		Time:    c.clock(),
		Source:  src,
		Event:   typ,
		Sample:  s,
		Verdict: v,
		Reason:  reason,
		Route:   r,
	}
	c.guard("record", func() error {
		c.recorder.Record(d)
		return nil
	})
}

// admit runs deduplication and palm rejection. Rejected samples are
// dropped here and never retried.
func (c *Coordinator) admit(src pointer.Source, typ string, s pointer.Sample) bool {
	if c.cfg.Dedup.Enabled {
		if !c.dedup.ShouldProcess(dedupEvent(src, typ, s)) {
			c.record(src, typ, s, VerdictDuplicate, "", RouteNone)
			return false
		}
	}
	if c.cfg.Palm.Enabled {
		if r := c.palm.Classify(s); r.Rejected() {
			c.record(src, typ, s, VerdictPalm, r.String(), RouteNone)
			return false
		}
	}
	return true
}

// noteUp remembers an up delivery so later duplicates from lower priority
// sources are suppressed. Cleanup never depends on it.
func (c *Coordinator) noteUp(src pointer.Source, s pointer.Sample) {
	if c.cfg.Dedup.Enabled {
		c.dedup.ShouldProcess(dedupEvent(src, "up", s))
	}
}

func dedupEvent(src pointer.Source, typ string, s pointer.Sample) dedup.Event {
	return dedup.Event{Source: src, Type: typ, Position: s.Position, HasPosition: true, Kind: s.Kind}
}

func (c *Coordinator) multiTouchLocked() bool {
	return c.gesture.ContactCount() >= 2 || c.gesture.IsMultiTouch()
}

// liveTouches drops styluses and contacts latched as palms.
func (c *Coordinator) liveTouches(touches []pointer.Sample) []pointer.Sample {
	out := make([]pointer.Sample, 0, len(touches))
	for _, s := range touches {
		if s.IsStylus() || c.palm.IsRejected(s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Strokes.

// preemptingStylus returns the first stylus among samples when the active
// stroke belongs to a finger or mouse. A stylus always takes over such a
// stroke.
func (c *Coordinator) preemptingStylus(samples []pointer.Sample) (pointer.Sample, bool) {
	if !c.stroke.active || c.stroke.kind == pointer.KindStylus {
		return pointer.Sample{}, false
	}
	for _, s := range samples {
		if s.IsStylus() {
			return s, true
		}
	}
	return pointer.Sample{}, false
}

func (c *Coordinator) startStrokeLocked(src pointer.Source, typ string, s pointer.Sample) {
	if c.stroke.active {
		if _, ok := c.preemptingStylus([]pointer.Sample{s}); !ok {
			c.record(src, typ, s, VerdictIgnored, "stroke_active", RouteNone)
			return
		}
		c.endStrokeLocked()
	}

	st := c.tools.State()
	var route Route
	switch {
	case !st.Tool.IsDrawing() && !st.Tool.IsSelection():
		route = RoutePan
		c.pan("start_pan", func(pz PanZoom) { pz.StartPan(s.Position) })
	case st.ReadOnly:
		c.record(src, typ, s, VerdictReadOnly, "", RouteNone)
		return
	case st.Tool.IsSelection():
		route = RouteSelect
		p := c.transform.ToLogical(s.Position)
		c.sel("selection_down", func(sl Selection) { sl.PointerDown(p) })
	default:
		route = RouteDraw
		p := c.transform.ToLogical(s.Position)
		c.draw("drawing_down", func(d Drawing) error { return d.PointerDown(p) })
	}

	c.stroke = stroke{active: true, id: s.ID, kind: s.Kind, route: route}
	c.record(src, typ, s, VerdictProcessed, "", route)
}

func (c *Coordinator) moveStrokeLocked(src pointer.Source, typ string, s pointer.Sample) {
	switch c.stroke.route {
	case RouteDraw:
		p := c.transform.ToLogical(s.Position)
		c.draw("drawing_move", func(d Drawing) error { return d.PointerMove(p) })
	case RouteSelect:
		p := c.transform.ToLogical(s.Position)
		c.sel("selection_move", func(sl Selection) { sl.PointerMove(p) })
	case RoutePan:
		c.pan("continue_pan", func(pz PanZoom) { pz.ContinuePan(s.Position) })
	case RouteBridge:
		ev := TouchEvent{Touches: []pointer.Sample{s}, Changed: []pointer.Sample{s}}
		c.guard("bridge_move", func() error {
			c.bridge.Bridge(ev, bridge.PhaseMove)
			return nil
		})
	}
	c.record(src, typ, s, VerdictProcessed, "", c.stroke.route)
}

func (c *Coordinator) endStrokeLocked() {
	if !c.stroke.active {
		return
	}
	route := c.stroke.route
	c.stroke = stroke{}

	switch route {
	case RouteDraw:
		c.draw("drawing_up", func(d Drawing) error { return d.PointerUp() })
	case RouteSelect:
		c.sel("selection_up", func(sl Selection) { sl.PointerUp() })
	case RoutePan:
		c.pan("stop_pan", func(pz PanZoom) { pz.StopPan() })
	case RouteBridge:
		c.guard("bridge_cancel", func() error {
			c.bridge.Cancel()
			return nil
		})
	}
}

func (c *Coordinator) endFingerStrokeLocked() {
	if c.stroke.active && c.stroke.kind != pointer.KindStylus {
		c.endStrokeLocked()
	}
}

// releaseContactLocked handles up, leave and cancel for one contact.
func (c *Coordinator) releaseContactLocked(src pointer.Source, s pointer.Sample) {
	if c.rightPan.active && c.rightPan.id == s.ID {
		c.stopRightPanLocked()
		c.record(src, "up", s, VerdictProcessed, "secondary_button", RoutePan)
	}
	if c.stroke.active && c.stroke.id == s.ID {
		route := c.stroke.route
		c.endStrokeLocked()
		c.record(src, "up", s, VerdictProcessed, "", route)
	}
	c.palm.OnContactEnd(s.ID)
	c.gesture.RemoveContact(s.ID)
}

// Right-button panning works on every path, with every tool, read-only
// or not.

func (c *Coordinator) startRightPanLocked(s pointer.Sample) {
	if c.rightPan.active {
		return
	}
	c.rightPan = panState{active: true, id: s.ID}
	c.pan("start_pan", func(pz PanZoom) { pz.StartPan(s.Position) })
}

func (c *Coordinator) stopRightPanLocked() {
	if !c.rightPan.active {
		return
	}
	c.rightPan = panState{}
	c.pan("stop_pan", func(pz PanZoom) { pz.StopPan() })
}

// Listeners shared by both paths.

func (c *Coordinator) onContextMenu(ev *surface.Event) {
	ev.PreventDefault()
}

func (c *Coordinator) onWheel(ev *surface.Event) {
	ev.PreventDefault()
	w := WheelEvent{Position: ev.Sample.Position, DeltaX: ev.DeltaX, DeltaY: ev.DeltaY, Ctrl: ev.Ctrl}
	c.pan("wheel", func(pz PanZoom) { pz.Wheel(w) })
}
