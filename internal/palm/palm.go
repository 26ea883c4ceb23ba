// Package palm classifies touch samples as intentional input or resting palm contact.
//
// Stylus samples are always accepted. Touch and mouse samples are checked
// against contact geometry, pressure, recent rejections and proximity to
// other active contacts. A contact classified as a palm stays rejected until
// it ends.
package palm

import (
	"sync"
	"time"

	"inkboard/internal/pointer"
)

// Config holds the palm rejection thresholds.
type Config struct {
	Enabled bool

	// MaxContactSize is the largest contact width or height, in logical
	// pixels, still considered a fingertip.
	MaxContactSize float64

	// MinPressure is the lowest reported pressure accepted. Zero pressure is
	// treated as unreported.
	MinPressure float64

	// Timeout is how long after a rejection other new contacts are
	// suppressed.
	Timeout time.Duration

	// ClusterDistance is the radius within which two or more other contacts
	// mark a sample as part of a hand.
	ClusterDistance float64

	// PreferStylus rejects non-stylus contacts while a stylus is down.
	PreferStylus bool
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxContactSize:  40,
		MinPressure:     0.1,
		Timeout:         500 * time.Millisecond,
		ClusterDistance: 100,
		PreferStylus:    true,
	}
}

// Reason explains a verdict.
type Reason int

const (
	ReasonAccepted Reason = iota
	ReasonStylus
	ReasonLatched
	ReasonStylusActive
	ReasonTimeout
	ReasonContactSize
	ReasonCluster
	ReasonLowPressure
)

func (r Reason) String() string {
	switch r {
	case ReasonAccepted:
		return "accepted"
	case ReasonStylus:
		return "stylus"
	case ReasonLatched:
		return "latched"
	case ReasonStylusActive:
		return "stylus_active"
	case ReasonTimeout:
		return "timeout"
	case ReasonContactSize:
		return "contact_size"
	case ReasonCluster:
		return "cluster"
	case ReasonLowPressure:
		return "low_pressure"
	default:
		return "unknown"
	}
}

// Rejected reports whether the reason drops the sample.
func (r Reason) Rejected() bool {
	return r != ReasonAccepted && r != ReasonStylus
}

// Stats counts verdicts since the last Reset.
type Stats struct {
	Accepted uint64            `json:"accepted"`
	Rejected map[Reason]uint64 `json:"rejected"`
}

// Analyzer holds rejection state for one drawing surface.
type Analyzer struct {
	mu sync.Mutex

	cfg   Config
	clock func() time.Time

	lastRejection time.Time
	rejected      map[int]struct{}
	active        map[int]pointer.Sample
	styluses      map[int]struct{}

	accepted   uint64
	rejections map[Reason]uint64
}

// New creates an analyzer. A zero-valued threshold in cfg falls back to
// its default.
func New(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.MaxContactSize <= 0 {
		cfg.MaxContactSize = def.MaxContactSize
	}
	if cfg.MinPressure < 0 {
		cfg.MinPressure = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ClusterDistance <= 0 {
		cfg.ClusterDistance = def.ClusterDistance
	}
	return &Analyzer{
		cfg:        cfg,
		clock:      time.Now,
		rejected:   make(map[int]struct{}),
		active:     make(map[int]pointer.Sample),
		styluses:   make(map[int]struct{}),
		rejections: make(map[Reason]uint64),
	}
}

// SetClock replaces the clock used for samples without a timestamp.
func (a *Analyzer) SetClock(clock func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock = clock
}

// Config returns the thresholds in use.
func (a *Analyzer) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ShouldProcess reports whether the sample carries drawing intent.
func (a *Analyzer) ShouldProcess(s pointer.Sample) bool {
	return !a.Classify(s).Rejected()
}

// Classify is ShouldProcess with the reason attached.
func (a *Analyzer) Classify(s pointer.Sample) Reason {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.classify(s)
	if r.Rejected() {
		a.rejections[r]++
	} else {
		a.accepted++
	}
	return r
}

func (a *Analyzer) classify(s pointer.Sample) Reason {
	if s.IsStylus() {
		a.styluses[s.ID] = struct{}{}
		return ReasonStylus
	}

	now := s.Time
	if now.IsZero() {
		now = a.clock()
	}
	a.active[s.ID] = s

	if _, ok := a.rejected[s.ID]; ok {
		return ReasonLatched
	}

	if a.cfg.PreferStylus && len(a.styluses) > 0 {
		a.rejected[s.ID] = struct{}{}
		return ReasonStylusActive
	}

	// Latched contacts returned above, so any contact reaching here is
	// different from the one that caused the last rejection.
	if !a.lastRejection.IsZero() && now.Sub(a.lastRejection) < a.cfg.Timeout {
		return ReasonTimeout
	}

	if s.ContactSize() > a.cfg.MaxContactSize {
		a.reject(s.ID, now)
		return ReasonContactSize
	}

	if a.clusteredLocked(s) {
		a.reject(s.ID, now)
		return ReasonCluster
	}

	if s.HasPressure && s.Pressure > 0 && s.Pressure < a.cfg.MinPressure {
		return ReasonLowPressure
	}

	return ReasonAccepted
}

func (a *Analyzer) reject(id int, at time.Time) {
	a.lastRejection = at
	a.rejected[id] = struct{}{}
}

// clusteredLocked reports whether two or more other non-stylus contacts
// lie within the cluster distance of s.
func (a *Analyzer) clusteredLocked(s pointer.Sample) bool {
	near := 0
	for id, other := range a.active {
		if id == s.ID {
			continue
		}
		if s.Position.Dist(other.Position) <= a.cfg.ClusterDistance {
			near++
			if near >= 2 {
				return true
			}
		}
	}
	return false
}

// IsRejected reports whether the contact is latched as a palm.
func (a *Analyzer) IsRejected(id int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.rejected[id]
	return ok
}

// OnContactEnd releases all state held for the contact. Leave and cancel
// are handled the same way.
func (a *Analyzer) OnContactEnd(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rejected, id)
	delete(a.active, id)
	delete(a.styluses, id)
}

// Reset clears all tracking state and counters.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRejection = time.Time{}
	clear(a.rejected)
	clear(a.active)
	clear(a.styluses)
	a.accepted = 0
	clear(a.rejections)
}

// Stats returns a snapshot of the verdict counters.
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Stats{
		Accepted: a.accepted,
		Rejected: make(map[Reason]uint64, len(a.rejections)),
	}
	for r, n := range a.rejections {
		st.Rejected[r] = n
	}
	return st
}

// ActiveContacts returns how many non-stylus contacts are being tracked.
func (a *Analyzer) ActiveContacts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}
