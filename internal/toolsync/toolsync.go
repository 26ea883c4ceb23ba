// Package toolsync mirrors the active drawing tool for the input engine.
//
// The Handler caches the current tool and read-only flag so latency
// sensitive input code never reads full application state. It is refreshed
// by explicit pushes or by polling a Source, and keeps the surface's
// default touch handling in step with the tool.
package toolsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkboard/internal/surface"
)

// Tool is a drawing tool.
type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
	ToolSelect      Tool = "select"
	ToolPan         Tool = "pan"
)

// IsSelection reports whether pointer input selects objects.
func (t Tool) IsSelection() bool { return t == ToolSelect }

// IsDrawing reports whether pointer input draws or erases strokes.
func (t Tool) IsDrawing() bool {
	switch t {
	case ToolPen, ToolHighlighter, ToolEraser:
		return true
	}
	return false
}

// TouchAction returns the default touch handling the surface should use
// for the tool.
func (t Tool) TouchAction() surface.TouchAction {
	if t.IsSelection() {
		return surface.TouchActionManipulation
	}
	return surface.TouchActionNone
}

// ParseTool parses a tool name.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case ToolPen, ToolHighlighter, ToolEraser, ToolSelect, ToolPan:
		return t, nil
	case "selection":
		return ToolSelect, nil
	default:
		return "", fmt.Errorf("unknown tool: %q", s)
	}
}

// State is what the tool-state owner exposes.
type State struct {
	Tool     Tool
	ReadOnly bool
}

// Source is polled for the authoritative state.
type Source interface {
	Poll(ctx context.Context) (State, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (State, error)

// Poll calls f.
func (f SourceFunc) Poll(ctx context.Context) (State, error) { return f(ctx) }

// TouchActionSetter receives touch handling updates.
type TouchActionSetter interface {
	SetTouchAction(a surface.TouchAction)
}

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 100 * time.Millisecond

// Handler is the tool mirror for one surface.
type Handler struct {
	mu sync.RWMutex

	state     State
	target    TouchActionSetter
	listeners map[uint32]func(State)
	nextID    uint32
	logger    *slog.Logger
}

// NewHandler creates a handler starting at initial.
func NewHandler(initial State, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default().With("component", "toolsync")
	}
	return &Handler{
		state:     initial,
		listeners: make(map[uint32]func(State)),
		logger:    logger,
	}
}

// Tool returns the mirrored tool.
func (h *Handler) Tool() Tool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Tool
}

// ReadOnly returns the mirrored read-only flag.
func (h *Handler) ReadOnly() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.ReadOnly
}

// State returns the full mirrored state.
func (h *Handler) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Push sets the tool.
func (h *Handler) Push(t Tool) {
	h.apply(func(s *State) { s.Tool = t })
}

// SetReadOnly sets the read-only flag.
func (h *Handler) SetReadOnly(ro bool) {
	h.apply(func(s *State) { s.ReadOnly = ro })
}

// Update replaces the mirrored state. Listeners run and the touch action
// is updated only when something changed.
func (h *Handler) Update(next State) {
	h.apply(func(s *State) { *s = next })
}

// apply edits the state under the lock and notifies outside it.
func (h *Handler) apply(edit func(*State)) {
	h.mu.Lock()
	prev := h.state
	next := prev
	edit(&next)
	if next == prev {
		h.mu.Unlock()
		return
	}
	h.state = next
	target := h.target
	fns := make([]func(State), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	if target != nil && prev.Tool != next.Tool {
		target.SetTouchAction(next.Tool.TouchAction())
	}
	h.logger.Debug("tool state changed",
		"tool", string(next.Tool),
		"read_only", next.ReadOnly,
		"previous_tool", string(prev.Tool),
	)
	for _, fn := range fns {
		fn(next)
	}
}

// Bind makes target follow the tool's touch action, applying the current
// one immediately. The returned func unbinds it.
func (h *Handler) Bind(target TouchActionSetter) func() {
	h.mu.Lock()
	h.target = target
	tool := h.state.Tool
	h.mu.Unlock()

	if target != nil {
		target.SetTouchAction(tool.TouchAction())
	}
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.target == target {
			h.target = nil
		}
	}
}

// OnChange registers fn to run after every change. The returned func
// removes it.
func (h *Handler) OnChange(fn func(State)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Watch polls src every interval until ctx is done. Poll errors keep the
// last known state.
func (h *Handler) Watch(ctx context.Context, src Source, interval time.Duration) error {
	if src == nil {
		return fmt.Errorf("toolsync: nil source")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	h.poll(ctx, src)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.poll(ctx, src)
		}
	}
}

func (h *Handler) poll(ctx context.Context, src Source) {
	st, err := src.Poll(ctx)
	if err != nil {
		h.logger.Debug("tool poll failed", "error", err)
		return
	}
	h.Update(st)
}
