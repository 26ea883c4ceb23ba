package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/internal/pointer"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newEngine() (*Engine, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	e := New(DefaultConfig())
	e.SetClock(clk.Now)
	return e, clk
}

func at(src pointer.Source, typ string, x, y float64) Event {
	return Event{Source: src, Type: typ, Position: pointer.Point{X: x, Y: y}, HasPosition: true}
}

func TestSourcePriority(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourcePointer, "down", 10, 10)))

	clk.Advance(2 * time.Millisecond)
	assert.False(t, e.ShouldProcess(at(pointer.SourceTouch, "down", 10, 10)), "touch loses to pointer")
	assert.False(t, e.ShouldProcess(at(pointer.SourceMouse, "down", 10, 10)), "mouse loses to pointer")
	assert.True(t, e.ShouldProcess(at(pointer.SourcePointer, "down", 50, 50)), "different position")
}

func TestLowerPriorityFirstDoesNotSuppressHigher(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourceMouse, "down", 10, 10)))
	clk.Advance(time.Millisecond)
	assert.True(t, e.ShouldProcess(at(pointer.SourceTouch, "down", 10, 10)))
	clk.Advance(time.Millisecond)
	assert.False(t, e.ShouldProcess(at(pointer.SourceMouse, "down", 10, 10)))
}

func TestDifferentTypeNotSuppressed(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourcePointer, "down", 10, 10)))
	clk.Advance(time.Millisecond)
	assert.True(t, e.ShouldProcess(at(pointer.SourceMouse, "move", 10, 10)))
}

func TestWindowExpiry(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourcePointer, "down", 10, 10)))

	clk.Advance(DefaultConfig().Window + time.Millisecond)
	assert.True(t, e.ShouldProcess(at(pointer.SourceTouch, "down", 10, 10)))
}

func TestStylusWindow(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourcePointer, "down", 10, 10)))

	clk.Advance(8 * time.Millisecond)
	ev := at(pointer.SourceTouch, "down", 10, 10)
	ev.Kind = pointer.KindStylus
	assert.True(t, e.ShouldProcess(ev), "stylus uses the short window")
}

func TestStylusSamplesNeedTightWindow(t *testing.T) {
	e, clk := newEngine()
	stylus := func(x, y float64) Event {
		ev := at(pointer.SourcePointer, "move", x, y)
		ev.Kind = pointer.KindStylus
		return ev
	}

	require.True(t, e.ShouldProcess(stylus(10, 10)))
	clk.Advance(2 * time.Millisecond)
	assert.False(t, e.ShouldProcess(stylus(10, 10)), "identical within 3ms")

	clk.Advance(2 * time.Millisecond)
	assert.True(t, e.ShouldProcess(stylus(10, 10)), "4ms apart is a new sample")
	assert.True(t, e.ShouldProcess(stylus(11, 10)))
}

func TestEqualPriorityNonStylusSamePosition(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(at(pointer.SourceTouch, "down", 3, 4)))
	clk.Advance(10 * time.Millisecond)
	assert.False(t, e.ShouldProcess(at(pointer.SourceTouch, "down", 3, 4)))
}

func TestPositionless(t *testing.T) {
	e, clk := newEngine()
	require.True(t, e.ShouldProcess(Event{Source: pointer.SourceTouch, Type: "up"}))
	clk.Advance(time.Millisecond)
	assert.False(t, e.ShouldProcess(Event{Source: pointer.SourceTouch, Type: "up"}))
	assert.True(t, e.ShouldProcess(at(pointer.SourceTouch, "up", 1, 1)))
}

func TestHistoryBounded(t *testing.T) {
	e, clk := newEngine()
	for i := 0; i < 50; i++ {
		e.ShouldProcess(at(pointer.SourcePointer, "move", float64(i), 0))
		assert.LessOrEqual(t, e.Len(), DefaultConfig().HistorySize)
	}

	clk.Advance(time.Second)
	e.ShouldProcess(at(pointer.SourcePointer, "move", -1, 0))
	assert.Equal(t, 1, e.Len(), "aged entries are pruned on insert")
}

func TestResetHistoryIdempotent(t *testing.T) {
	e, clk := newEngine()
	e.ShouldProcess(at(pointer.SourcePointer, "down", 10, 10))
	e.ResetHistory()
	e.ResetHistory()
	assert.Zero(t, e.Len())

	clk.Advance(time.Millisecond)
	assert.True(t, e.ShouldProcess(at(pointer.SourceMouse, "down", 10, 10)))
}
