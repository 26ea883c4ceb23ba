package stage

import (
	"time"

	"inkboard/internal/bridge"
	"inkboard/internal/pointer"
	"inkboard/internal/toolsync"
)

// Drawing is the drawing-state collaborator. Coordinates are logical.
// PointerUp without a preceding PointerDown must be harmless.
type Drawing interface {
	PointerDown(p pointer.Point) error
	PointerMove(p pointer.Point) error
	PointerUp() error
}

// Selection is the selection collaborator. Calls are fire-and-forget.
type Selection = bridge.Selection

// Transformer maps screen points to logical points.
type Transformer = bridge.Transformer

// TouchEvent carries the touches involved in a touch event.
type TouchEvent = bridge.TouchEvent

// WheelEvent is a scroll or zoom request from a wheel or trackpad.
type WheelEvent struct {
	Position pointer.Point
	DeltaX   float64
	DeltaY   float64
	Ctrl     bool
}

// PanZoom is the pan/zoom collaborator. Pan coordinates are screen
// coordinates.
type PanZoom interface {
	StartPan(p pointer.Point)
	ContinuePan(p pointer.Point)
	StopPan()
	Wheel(ev WheelEvent)
	TouchStart(ev TouchEvent)
	TouchMove(ev TouchEvent)
	TouchEnd(ev TouchEvent)
}

// ToolMirror is the tool-state view the coordinator reads and subscribes to.
// *toolsync.Handler implements it.
type ToolMirror interface {
	Tool() toolsync.Tool
	ReadOnly() bool
	State() toolsync.State
	OnChange(fn func(toolsync.State)) func()
	Bind(target toolsync.TouchActionSetter) func()
}

// Route is where a sample ended up.
type Route string

const (
	RouteNone    Route = ""
	RouteDraw    Route = "draw"
	RouteSelect  Route = "select"
	RouteBridge  Route = "bridge"
	RoutePan     Route = "pan"
	RouteGesture Route = "gesture"
)

// Verdict explains why a sample was or was not routed.
type Verdict string

const (
	VerdictProcessed Verdict = "processed"
	VerdictDuplicate Verdict = "duplicate"
	VerdictPalm      Verdict = "palm"
	VerdictReadOnly  Verdict = "read_only"
	VerdictIgnored   Verdict = "ignored"
)

// Decision records what the coordinator did with one sample.
type Decision struct {
	Time    time.Time
	Source  pointer.Source
	Event   string
	Sample  pointer.Sample
	Verdict Verdict
	Reason  string
	Route   Route
}

// Recorder receives decisions, for tracing and threshold tuning.
type Recorder interface {
	Record(d Decision)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(d Decision)

// Record calls f.
func (f RecorderFunc) Record(d Decision) { f(d) }

type identity struct{}

func (identity) ToLogical(p pointer.Point) pointer.Point { return p }
