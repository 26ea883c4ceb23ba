package palm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/internal/pointer"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func touch(id int, x, y float64, at time.Duration) pointer.Sample {
	return pointer.Sample{
		ID:       id,
		Kind:     pointer.KindTouch,
		Width:    10,
		Height:   10,
		Position: pointer.Point{X: x, Y: y},
		Time:     t0.Add(at),
	}
}

func palmSample(id int, x, y float64, at time.Duration) pointer.Sample {
	s := touch(id, x, y, at)
	s.Width, s.Height = 80, 60
	return s
}

func TestStylusAlwaysAccepted(t *testing.T) {
	strict := Config{
		Enabled:         true,
		MaxContactSize:  0.001,
		MinPressure:     0.99,
		Timeout:         time.Hour,
		ClusterDistance: 1e9,
	}
	a := New(strict)

	// Cause a rejection so the timeout window is open.
	require.False(t, a.ShouldProcess(palmSample(1, 0, 0, 0)))

	cases := []pointer.Sample{
		{ID: 2, Kind: pointer.KindStylus, Width: 500, Height: 500, Time: t0},
		{ID: 3, Kind: pointer.KindStylus, Pressure: 0.01, HasPressure: true, Time: t0},
		{ID: 4, Kind: pointer.KindStylus, Position: pointer.Point{X: 1, Y: 1}, Time: t0.Add(time.Millisecond)},
	}
	for _, s := range cases {
		assert.True(t, a.ShouldProcess(s), "stylus sample %d", s.ID)
	}
}

func TestRejectionLatching(t *testing.T) {
	a := New(DefaultConfig())

	require.False(t, a.ShouldProcess(palmSample(7, 50, 50, 0)))
	assert.True(t, a.IsRejected(7))

	// Same contact shrinks to a fingertip long after the timeout.
	later := touch(7, 50, 50, 5*time.Second)
	assert.Equal(t, ReasonLatched, a.Classify(later))
	assert.False(t, a.ShouldProcess(touch(7, 60, 60, 6*time.Second)))

	a.OnContactEnd(7)
	assert.False(t, a.IsRejected(7))
	assert.True(t, a.ShouldProcess(touch(7, 60, 60, 7*time.Second)))
}

func TestTimeoutSuppression(t *testing.T) {
	cfg := DefaultConfig()
	a := New(cfg)

	require.Equal(t, ReasonContactSize, a.Classify(palmSample(1, 0, 0, 0)))

	assert.Equal(t, ReasonTimeout, a.Classify(touch(2, 300, 300, cfg.Timeout-time.Millisecond)))
	assert.Equal(t, ReasonAccepted, a.Classify(touch(2, 300, 300, cfg.Timeout+time.Millisecond)))
}

func TestContactSizeUsesLargerDimension(t *testing.T) {
	a := New(DefaultConfig())
	s := touch(1, 0, 0, 0)
	s.Width, s.Height = 5, 41
	assert.Equal(t, ReasonContactSize, a.Classify(s))

	b := New(DefaultConfig())
	s = touch(1, 0, 0, 0)
	s.Width, s.Height = 40, 40
	assert.Equal(t, ReasonAccepted, b.Classify(s))
}

func TestClusterRejection(t *testing.T) {
	a := New(DefaultConfig())

	require.True(t, a.ShouldProcess(touch(1, 100, 100, 0)))
	require.True(t, a.ShouldProcess(touch(2, 150, 100, 0)))

	assert.Equal(t, ReasonCluster, a.Classify(touch(3, 120, 130, 0)))
	assert.True(t, a.IsRejected(3))

	// A distant contact after the timeout is fine.
	assert.Equal(t, ReasonAccepted, a.Classify(touch(4, 900, 900, time.Second)))
}

func TestClusterIgnoresStyluses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreferStylus = false
	a := New(cfg)

	require.True(t, a.ShouldProcess(pointer.Sample{ID: 1, Kind: pointer.KindStylus, Position: pointer.Point{X: 100, Y: 100}, Time: t0}))
	require.True(t, a.ShouldProcess(touch(2, 110, 100, 0)))
	assert.True(t, a.ShouldProcess(touch(3, 120, 100, 0)))
}

func TestLowPressure(t *testing.T) {
	a := New(DefaultConfig())

	s := touch(1, 0, 0, 0)
	s.Pressure, s.HasPressure = 0.05, true
	assert.Equal(t, ReasonLowPressure, a.Classify(s))
	assert.False(t, a.IsRejected(1), "low pressure does not latch")

	s.Pressure = 0.5
	assert.Equal(t, ReasonAccepted, a.Classify(s))
}

func TestMissingDataIsPermissive(t *testing.T) {
	a := New(DefaultConfig())

	s := pointer.Sample{ID: 1, Kind: pointer.KindTouch, HasPressure: true, Time: t0}
	assert.True(t, a.ShouldProcess(s), "zero pressure means unreported")

	s = pointer.Sample{ID: 2, Kind: pointer.KindUnknown, Time: t0}
	assert.True(t, a.ShouldProcess(s))
}

func TestPreferStylus(t *testing.T) {
	a := New(DefaultConfig())

	require.True(t, a.ShouldProcess(pointer.Sample{ID: 1, Kind: pointer.KindStylus, Time: t0}))
	assert.Equal(t, ReasonStylusActive, a.Classify(touch(2, 500, 500, 0)))
	assert.True(t, a.IsRejected(2))

	a.OnContactEnd(1)
	a.OnContactEnd(2)
	assert.True(t, a.ShouldProcess(touch(3, 500, 500, 0)))
}

func TestZeroTimeUsesClock(t *testing.T) {
	now := t0
	a := New(DefaultConfig())
	a.SetClock(func() time.Time { return now })

	require.False(t, a.ShouldProcess(pointer.Sample{ID: 1, Kind: pointer.KindTouch, Width: 90}))
	now = now.Add(100 * time.Millisecond)
	assert.Equal(t, ReasonTimeout, a.Classify(pointer.Sample{ID: 2, Kind: pointer.KindTouch}))
	now = now.Add(time.Second)
	assert.Equal(t, ReasonAccepted, a.Classify(pointer.Sample{ID: 2, Kind: pointer.KindTouch}))
}

func TestResetIdempotent(t *testing.T) {
	a := New(DefaultConfig())
	a.ShouldProcess(palmSample(1, 0, 0, 0))
	a.ShouldProcess(touch(2, 0, 0, 0))

	a.Reset()
	once := a.Stats()
	onceActive := a.ActiveContacts()
	a.Reset()

	assert.Equal(t, once, a.Stats())
	assert.Equal(t, onceActive, a.ActiveContacts())
	assert.Zero(t, a.ActiveContacts())
	assert.False(t, a.IsRejected(1))
	assert.Equal(t, ReasonAccepted, a.Classify(touch(3, 0, 0, 0)))
}

func TestStats(t *testing.T) {
	a := New(DefaultConfig())
	a.ShouldProcess(touch(1, 0, 0, 0))
	a.ShouldProcess(palmSample(2, 500, 500, 0))
	a.ShouldProcess(palmSample(2, 500, 500, time.Millisecond))

	st := a.Stats()
	assert.EqualValues(t, 1, st.Accepted)
	assert.EqualValues(t, 1, st.Rejected[ReasonContactSize])
	assert.EqualValues(t, 1, st.Rejected[ReasonLatched])
}

func TestNewFillsDefaults(t *testing.T) {
	a := New(Config{Enabled: true})
	cfg := a.Config()
	def := DefaultConfig()
	assert.Equal(t, def.MaxContactSize, cfg.MaxContactSize)
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.Equal(t, def.ClusterDistance, cfg.ClusterDistance)
}
