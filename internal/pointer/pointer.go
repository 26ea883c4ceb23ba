// Package pointer defines the input samples shared by the coordination engine.
package pointer

import (
	"math"
	"time"
)

// Kind identifies the physical device behind a sample.
type Kind int

const (
	KindUnknown Kind = iota
	KindMouse
	KindTouch
	KindStylus
)

// String returns the name used in logs and trace records.
func (k Kind) String() string {
	switch k {
	case KindMouse:
		return "mouse"
	case KindTouch:
		return "touch"
	case KindStylus:
		return "stylus"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. Unrecognised names map to KindUnknown.
func ParseKind(s string) Kind {
	switch s {
	case "mouse":
		return KindMouse
	case "touch":
		return KindTouch
	case "stylus", "pen":
		return KindStylus
	default:
		return KindUnknown
	}
}

// Source is the event stream a sample was delivered through. The same
// physical action may arrive on more than one source.
type Source int

const (
	SourceMouse Source = iota + 1
	SourceTouch
	SourcePointer
)

// Priority orders sources by fidelity: pointer > touch > mouse.
func (s Source) Priority() int {
	switch s {
	case SourcePointer:
		return 3
	case SourceTouch:
		return 2
	case SourceMouse:
		return 1
	default:
		return 0
	}
}

func (s Source) String() string {
	switch s {
	case SourcePointer:
		return "pointer"
	case SourceTouch:
		return "touch"
	case SourceMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// ParseSource is the inverse of Source.String. Unrecognised names map to
// the zero Source.
func ParseSource(s string) Source {
	switch s {
	case "pointer":
		return SourcePointer
	case "touch":
		return SourceTouch
	case "mouse":
		return SourceMouse
	default:
		return 0
	}
}

// Point is a position in either screen or logical coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Sample is one observation of a contact.
type Sample struct {
	ID          int       `json:"id"`
	Kind        Kind      `json:"kind"`
	Pressure    float64   `json:"pressure"`
	HasPressure bool      `json:"has_pressure"`
	Width       float64   `json:"width"`  // 0 when not reported
	Height      float64   `json:"height"` // 0 when not reported
	Position    Point     `json:"position"`
	Time        time.Time `json:"time"`
}

// ContactSize is the larger of the reported contact dimensions.
func (s Sample) ContactSize() float64 {
	return math.Max(s.Width, s.Height)
}

// IsStylus reports whether the sample came from a pen or stylus.
func (s Sample) IsStylus() bool {
	return s.Kind == KindStylus
}
