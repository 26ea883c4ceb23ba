package theme

import (
	"image/color"
	"runtime"

	"gioui.org/unit"
	"gioui.org/widget/material"

	"inkboard/internal/toolsync"
)

// Palette holds the board colors.
type Palette struct {
	Background color.NRGBA
	Toolbar    color.NRGBA
	Canvas     color.NRGBA
	Active     color.NRGBA
	Idle       color.NRGBA
	Text       color.NRGBA
	TextMuted  color.NRGBA
	Marquee    color.NRGBA
	Selected   color.NRGBA

	Pen         color.NRGBA
	Highlighter color.NRGBA
}

// Metrics holds sizes in device-independent units.
type Metrics struct {
	ToolbarHeight unit.Dp
	Spacing       unit.Dp
	PenWidth      unit.Dp
	MarkerWidth   unit.Dp
	FontBody      unit.Sp
}

// Theme wraps the material theme with board styling.
type Theme struct {
	*material.Theme
	Palette Palette
	Metrics Metrics
}

// NewTheme creates a theme for the current OS.
func NewTheme(mtheme *material.Theme) *Theme {
	t := &Theme{
		Theme: mtheme,
		Palette: Palette{
			Background:  color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF},
			Toolbar:     color.NRGBA{R: 0x2C, G: 0x2C, B: 0x2C, A: 0xFF},
			Canvas:      color.NRGBA{R: 0xFA, G: 0xFA, B: 0xF7, A: 0xFF},
			Active:      color.NRGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0xFF},
			Idle:        color.NRGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF},
			Text:        color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
			TextMuted:   color.NRGBA{R: 0xA0, G: 0xA0, B: 0xA0, A: 0xFF},
			Marquee:     color.NRGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0x40},
			Selected:    color.NRGBA{R: 0xE8, G: 0x11, B: 0x23, A: 0xFF},
			Pen:         color.NRGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF},
			Highlighter: color.NRGBA{R: 0xFF, G: 0xD4, B: 0x00, A: 0x80},
		},
		Metrics: Metrics{
			ToolbarHeight: unit.Dp(48),
			Spacing:       unit.Dp(8),
			PenWidth:      unit.Dp(2),
			MarkerWidth:   unit.Dp(14),
			FontBody:      unit.Sp(14),
		},
	}

	// macOS accent and type size.
	if runtime.GOOS == "darwin" {
		t.Palette.Active = color.NRGBA{R: 0x0A, G: 0x84, B: 0xFF, A: 0xFF}
		t.Palette.Marquee = color.NRGBA{R: 0x0A, G: 0x84, B: 0xFF, A: 0x40}
		t.Metrics.FontBody = unit.Sp(13)
	}
	return t
}

// StrokeColor returns the ink color for a tool.
func (t *Theme) StrokeColor(tool toolsync.Tool) color.NRGBA {
	if tool == toolsync.ToolHighlighter {
		return t.Palette.Highlighter
	}
	return t.Palette.Pen
}

// StrokeWidth returns the ink width for a tool at zoom 1.
func (t *Theme) StrokeWidth(tool toolsync.Tool) unit.Dp {
	if tool == toolsync.ToolHighlighter {
		return t.Metrics.MarkerWidth
	}
	return t.Metrics.PenWidth
}
