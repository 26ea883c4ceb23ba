// Package gesture detects multi-finger gestures from the set of active contacts.
package gesture

import (
	"sync"
	"time"

	"inkboard/internal/pointer"
)

// Config holds detector settings.
type Config struct {
	// Debounce is how long a computed answer is reused before the counts
	// are looked at again.
	Debounce time.Duration
}

// DefaultConfig returns the default debounce window.
func DefaultConfig() Config {
	return Config{Debounce: 50 * time.Millisecond}
}

// Detector tracks active contacts for one surface.
type Detector struct {
	mu sync.Mutex

	cfg   Config
	clock func() time.Time

	contacts   map[int]pointer.Kind
	touchCount int

	latched    bool
	lastCheck  time.Time
	lastResult bool
}

// New creates a detector.
func New(cfg Config) *Detector {
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	return &Detector{
		cfg:      cfg,
		clock:    time.Now,
		contacts: make(map[int]pointer.Kind),
	}
}

// SetClock replaces the clock used for debouncing.
func (d *Detector) SetClock(clock func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// AddContact records the start of a contact.
func (d *Detector) AddContact(id int, kind pointer.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[id] = kind
}

// RemoveContact records the end of a contact.
func (d *Detector) RemoveContact(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.contacts, id)
}

// SetTouchCount records the number of touches reported by the touch
// event stream, which may differ from the tracked contacts.
func (d *Detector) SetTouchCount(n int) {
	if n < 0 {
		n = 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touchCount = n
}

// ContactCount returns the number of tracked non-stylus contacts.
func (d *Detector) ContactCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trackedLocked()
}

func (d *Detector) trackedLocked() int {
	n := 0
	for _, k := range d.contacts {
		if k != pointer.KindStylus {
			n++
		}
	}
	return n
}

// IsMultiTouch reports whether two or more fingers are down. Once true it
// stays true until both the tracked and raw counts fall below two, and
// answers within the debounce window of the last computation are reused.
func (d *Detector) IsMultiTouch() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	if !d.lastCheck.IsZero() && now.Sub(d.lastCheck) < d.cfg.Debounce {
		return d.lastResult
	}

	tracked := d.trackedLocked()
	if tracked >= 2 || d.touchCount >= 2 {
		d.latched = true
	} else if d.latched {
		d.latched = false
	}

	d.lastCheck = now
	d.lastResult = d.latched
	return d.latched
}

// IsGestureActive returns the latched state without recomputing it.
func (d *Detector) IsGestureActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latched
}

// Reset forgets every contact and the latch.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.contacts)
	d.touchCount = 0
	d.latched = false
	d.lastCheck = time.Time{}
	d.lastResult = false
}
