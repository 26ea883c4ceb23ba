package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inkboard/internal/pointer"
	"inkboard/internal/toolsync"
)

type tools struct {
	tool     toolsync.Tool
	readOnly bool
}

func (t *tools) Tool() toolsync.Tool { return t.tool }
func (t *tools) ReadOnly() bool      { return t.readOnly }

// halve maps screen to logical by a 2x zoom.
type halve struct{}

func (halve) ToLogical(p pointer.Point) pointer.Point {
	return pointer.Point{X: p.X / 2, Y: p.Y / 2}
}

type recorder struct {
	calls []string
	pts   []pointer.Point
}

func (r *recorder) PointerDown(p pointer.Point) { r.calls = append(r.calls, "down"); r.pts = append(r.pts, p) }
func (r *recorder) PointerMove(p pointer.Point) { r.calls = append(r.calls, "move"); r.pts = append(r.pts, p) }
func (r *recorder) PointerUp()                  { r.calls = append(r.calls, "up") }

func finger(id int, x, y float64) pointer.Sample {
	return pointer.Sample{ID: id, Kind: pointer.KindTouch, Position: pointer.Point{X: x, Y: y}}
}

func single(x, y float64) TouchEvent {
	f := finger(1, x, y)
	return TouchEvent{Touches: []pointer.Sample{f}, Changed: []pointer.Sample{f}}
}

func ended(x, y float64) TouchEvent {
	return TouchEvent{Changed: []pointer.Sample{finger(1, x, y)}}
}

func newBridge(tool toolsync.Tool) (*Bridge, *tools, *recorder) {
	ts := &tools{tool: tool}
	rec := &recorder{}
	return New(true, ts, halve{}, rec), ts, rec
}

func TestBridgeLifecycle(t *testing.T) {
	b, _, rec := newBridge(toolsync.ToolSelect)

	assert.True(t, b.Bridge(single(20, 40), PhaseDown))
	assert.True(t, b.Active())
	assert.True(t, b.Bridge(single(40, 40), PhaseMove))
	assert.True(t, b.Bridge(ended(40, 40), PhaseUp))
	assert.False(t, b.Active())

	assert.Equal(t, []string{"down", "move", "up"}, rec.calls)
	assert.Equal(t, []pointer.Point{{X: 10, Y: 20}, {X: 20, Y: 20}}, rec.pts)
}

func TestMultiTouchNeverBridged(t *testing.T) {
	for _, tool := range []toolsync.Tool{toolsync.ToolSelect, toolsync.ToolPen, toolsync.ToolPan} {
		b, _, rec := newBridge(tool)
		ev := TouchEvent{
			Touches: []pointer.Sample{finger(1, 0, 0), finger(2, 10, 10)},
			Changed: []pointer.Sample{finger(2, 10, 10)},
		}
		assert.False(t, b.Bridge(ev, PhaseDown), tool)
		assert.Empty(t, rec.calls)
	}
}

func TestContactEndingInSameEventCounts(t *testing.T) {
	b, _, _ := newBridge(toolsync.ToolSelect)
	ev := TouchEvent{
		Touches: []pointer.Sample{finger(1, 0, 0)},
		Changed: []pointer.Sample{finger(2, 10, 10)},
	}
	assert.Equal(t, 2, ev.TotalContacts())
	assert.False(t, b.Bridge(ev, PhaseDown))
}

func TestPreconditions(t *testing.T) {
	b, ts, rec := newBridge(toolsync.ToolPen)
	assert.False(t, b.Bridge(single(0, 0), PhaseDown), "drawing tool")

	ts.tool = toolsync.ToolSelect
	ts.readOnly = true
	assert.False(t, b.Bridge(single(0, 0), PhaseDown), "read-only")

	ts.readOnly = false
	assert.False(t, b.Bridge(TouchEvent{}, PhaseDown), "no contacts")
	assert.Empty(t, rec.calls)

	disabled := New(false, ts, halve{}, rec)
	assert.False(t, disabled.Bridge(single(0, 0), PhaseDown))

	missing := New(true, ts, nil, rec)
	assert.False(t, missing.Bridge(single(0, 0), PhaseDown))
}

func TestMoveAndUpRequireActivation(t *testing.T) {
	b, _, rec := newBridge(toolsync.ToolSelect)
	assert.False(t, b.Bridge(single(0, 0), PhaseMove))
	assert.False(t, b.Bridge(ended(0, 0), PhaseUp))
	assert.Empty(t, rec.calls)
}

func TestToolSwitchMidGesture(t *testing.T) {
	b, ts, rec := newBridge(toolsync.ToolPan)
	assert.False(t, b.Bridge(single(0, 0), PhaseDown), "started as a pan")

	ts.tool = toolsync.ToolSelect
	assert.False(t, b.Bridge(single(5, 5), PhaseMove), "does not become a selection")
	assert.Empty(t, rec.calls)
}

func TestCancel(t *testing.T) {
	b, _, rec := newBridge(toolsync.ToolSelect)
	assert.False(t, b.Cancel())

	b.Bridge(single(0, 0), PhaseDown)
	assert.True(t, b.Cancel())
	assert.False(t, b.Active())
	assert.Equal(t, []string{"down", "up"}, rec.calls)
}

func TestResetIdempotent(t *testing.T) {
	b, _, rec := newBridge(toolsync.ToolSelect)
	b.Bridge(single(0, 0), PhaseDown)

	b.Reset()
	b.Reset()
	assert.False(t, b.Active())
	assert.Equal(t, []string{"down"}, rec.calls, "reset does not notify selection")
	assert.False(t, b.Bridge(single(1, 1), PhaseMove))
}
