// Package dedup suppresses duplicate deliveries of one physical action
// arriving through more than one event source.
//
// The higher-fidelity source wins: pointer over touch over mouse.
package dedup

import (
	"sync"
	"time"

	"inkboard/internal/pointer"
)

// Config holds deduplication windows.
type Config struct {
	Enabled bool

	// Window applies to non-stylus events.
	Window time.Duration

	// StylusWindow applies when the incoming event is from a stylus.
	StylusWindow time.Duration

	// StylusDuplicateWindow is the tighter window within which two stylus
	// events at identical coordinates count as duplicates.
	StylusDuplicateWindow time.Duration

	// HistorySize caps the number of remembered events.
	HistorySize int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		Window:                20 * time.Millisecond,
		StylusWindow:          5 * time.Millisecond,
		StylusDuplicateWindow: 3 * time.Millisecond,
		HistorySize:           10,
	}
}

// Event describes one delivery.
type Event struct {
	Source      pointer.Source
	Type        string
	Position    pointer.Point
	HasPosition bool
	Kind        pointer.Kind
}

type entry struct {
	at time.Time
	Event
}

// Engine remembers recent deliveries for one surface.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	clock   func() time.Time
	history []entry
}

// New creates an engine. Non-positive settings fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.StylusWindow <= 0 {
		cfg.StylusWindow = def.StylusWindow
	}
	if cfg.StylusDuplicateWindow <= 0 {
		cfg.StylusDuplicateWindow = def.StylusDuplicateWindow
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	return &Engine{
		cfg:     cfg,
		clock:   time.Now,
		history: make([]entry, 0, cfg.HistorySize),
	}
}

// SetClock replaces the engine clock.
func (e *Engine) SetClock(clock func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
}

// ShouldProcess reports whether ev is the first delivery of its action.
// Processed events are remembered; suppressed ones are not.
func (e *Engine) ShouldProcess(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	window := e.cfg.Window
	if ev.Kind == pointer.KindStylus {
		window = e.cfg.StylusWindow
	}

	for i := len(e.history) - 1; i >= 0; i-- {
		prev := e.history[i]
		age := now.Sub(prev.at)
		if age > window || prev.Type != ev.Type {
			continue
		}
		if e.duplicate(prev, ev, age) {
			return false
		}
	}

	e.insertLocked(entry{at: now, Event: ev})
	return true
}

func (e *Engine) duplicate(prev entry, ev Event, age time.Duration) bool {
	pp, ep := prev.Source.Priority(), ev.Source.Priority()
	if pp > ep {
		return true
	}
	if pp < ep || !samePosition(prev.Event, ev) {
		return false
	}
	if prev.Kind == pointer.KindStylus && ev.Kind == pointer.KindStylus {
		return age <= e.cfg.StylusDuplicateWindow
	}
	return true
}

// samePosition treats two position-less events as co-located.
func samePosition(a, b Event) bool {
	if a.HasPosition != b.HasPosition {
		return false
	}
	return !a.HasPosition || a.Position == b.Position
}

func (e *Engine) insertLocked(en entry) {
	maxAge := max(e.cfg.Window, e.cfg.StylusWindow)
	kept := e.history[:0]
	for _, h := range e.history {
		if en.at.Sub(h.at) <= maxAge {
			kept = append(kept, h)
		}
	}
	e.history = kept
	if len(e.history) >= e.cfg.HistorySize {
		n := copy(e.history, e.history[len(e.history)-e.cfg.HistorySize+1:])
		e.history = e.history[:n]
	}
	e.history = append(e.history, en)
}

// Len returns the number of remembered events.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// ResetHistory forgets every remembered event.
func (e *Engine) ResetHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = e.history[:0]
}
