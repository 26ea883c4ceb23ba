// Package trace records coordinator decisions in SQLite so palm and
// deduplication thresholds can be tuned against real input.
package trace

import (
	"time"

	"inkboard/internal/pointer"
	"inkboard/internal/stage"
)

// Sample is one recorded decision.
type Sample struct {
	ID          int64
	Session     string
	TimestampNs int64
	Source      pointer.Source
	Event       string
	Kind        pointer.Kind
	ContactID   int
	X, Y        float64
	Pressure    float64
	HasPressure bool
	Width       float64
	Height      float64
	Verdict     stage.Verdict
	Reason      string
	Route       stage.Route
}

// Time returns the sample timestamp.
func (s Sample) Time() time.Time { return time.Unix(0, s.TimestampNs) }

// Pointer rebuilds the pointer sample that was classified.
func (s Sample) Pointer() pointer.Sample {
	return pointer.Sample{
		ID:          s.ContactID,
		Kind:        s.Kind,
		Pressure:    s.Pressure,
		HasPressure: s.HasPressure,
		Width:       s.Width,
		Height:      s.Height,
		Position:    pointer.Point{X: s.X, Y: s.Y},
		Time:        s.Time(),
	}
}

func fromDecision(session string, d stage.Decision) Sample {
	return Sample{
		Session:     session,
		TimestampNs: d.Time.UnixNano(),
		Source:      d.Source,
		Event:       d.Event,
		Kind:        d.Sample.Kind,
		ContactID:   d.Sample.ID,
		X:           d.Sample.Position.X,
		Y:           d.Sample.Position.Y,
		Pressure:    d.Sample.Pressure,
		HasPressure: d.Sample.HasPressure,
		Width:       d.Sample.Width,
		Height:      d.Sample.Height,
		Verdict:     d.Verdict,
		Reason:      d.Reason,
		Route:       d.Route,
	}
}

// Session summarises one recording.
type Session struct {
	Name      string
	StartedNs int64
	EndedNs   *int64
	Samples   int
	Rejected  int
}
