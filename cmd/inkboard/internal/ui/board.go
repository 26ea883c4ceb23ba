package ui

import (
	"fmt"
	"image"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"inkboard/cmd/inkboard/internal/theme"
	"inkboard/internal/giohost"
	"inkboard/internal/pointer"
	"inkboard/internal/stage"
	"inkboard/internal/toolsync"
)

type toolButton struct {
	tool  toolsync.Tool
	label string
	click widget.Clickable
}

// Board is the main window: a tool bar above a pannable canvas.
type Board struct {
	theme   *theme.Theme
	tools   *toolsync.Handler
	coord   *stage.Coordinator
	host    *giohost.Host
	view    *stage.View
	ink     *Ink
	marquee *Marquee

	buttons  []*toolButton
	readOnly widget.Bool
	clear    widget.Clickable
}

// NewBoard creates the board. Input reaches the coordinator through host;
// the board itself only renders.
func NewBoard(t *theme.Theme, tools *toolsync.Handler, coord *stage.Coordinator, host *giohost.Host, view *stage.View, ink *Ink, marquee *Marquee) *Board {
	b := &Board{
		theme:   t,
		tools:   tools,
		coord:   coord,
		host:    host,
		view:    view,
		ink:     ink,
		marquee: marquee,
	}
	for _, tb := range []struct {
		tool  toolsync.Tool
		label string
	}{
		{toolsync.ToolPen, "Pen"},
		{toolsync.ToolHighlighter, "Marker"},
		{toolsync.ToolEraser, "Eraser"},
		{toolsync.ToolSelect, "Select"},
		{toolsync.ToolPan, "Pan"},
	} {
		b.buttons = append(b.buttons, &toolButton{tool: tb.tool, label: tb.label})
	}
	return b
}

// Layout renders the board.
func (b *Board) Layout(gtx layout.Context) layout.Dimensions {
	b.update(gtx)
	paint.Fill(gtx.Ops, b.theme.Palette.Background)

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(b.layoutToolbar),
		layout.Flexed(1, b.layoutCanvas),
	)
}

func (b *Board) update(gtx layout.Context) {
	for _, tb := range b.buttons {
		if tb.click.Clicked(gtx) {
			b.tools.Push(tb.tool)
		}
	}
	if b.readOnly.Update(gtx) {
		b.tools.SetReadOnly(b.readOnly.Value)
	}
	b.readOnly.Value = b.tools.ReadOnly()
	if b.clear.Clicked(gtx) {
		b.ink.Clear()
	}
}

func (b *Board) layoutToolbar(gtx layout.Context) layout.Dimensions {
	height := gtx.Dp(b.theme.Metrics.ToolbarHeight)
	gtx.Constraints.Min.Y, gtx.Constraints.Max.Y = height, height
	paint.FillShape(gtx.Ops, b.theme.Palette.Toolbar, clip.Rect{Max: image.Pt(gtx.Constraints.Max.X, height)}.Op())

	active := b.tools.Tool()
	children := make([]layout.FlexChild, 0, len(b.buttons)+3)
	for _, tb := range b.buttons {
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			btn := material.Button(b.theme.Theme, &tb.click, tb.label)
			btn.Background = b.theme.Palette.Idle
			if tb.tool == active {
				btn.Background = b.theme.Palette.Active
			}
			return layout.UniformInset(b.theme.Metrics.Spacing/2).Layout(gtx, btn.Layout)
		}))
	}
	children = append(children,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			btn := material.Button(b.theme.Theme, &b.clear, "Clear")
			btn.Background = b.theme.Palette.Idle
			return layout.UniformInset(b.theme.Metrics.Spacing/2).Layout(gtx, btn.Layout)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			cb := material.CheckBox(b.theme.Theme, &b.readOnly, "Read-only")
			cb.Color = b.theme.Palette.Text
			cb.IconColor = b.theme.Palette.Active
			return layout.UniformInset(b.theme.Metrics.Spacing).Layout(gtx, cb.Layout)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			l := material.Body2(b.theme.Theme, b.status())
			l.Color = b.theme.Palette.TextMuted
			l.TextSize = b.theme.Metrics.FontBody
			return layout.E.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.UniformInset(b.theme.Metrics.Spacing).Layout(gtx, l.Layout)
			})
		}),
	)
	return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx, children...)
}

func (b *Board) status() string {
	stats := b.coord.Palm().Stats()
	var rejected uint64
	for _, n := range stats.Rejected {
		rejected += n
	}
	return fmt.Sprintf("%s input · zoom %.0f%% · palm %d/%d · selected %d",
		b.coord.Mode(), b.view.Zoom()*100, rejected, rejected+stats.Accepted, b.marquee.Selected())
}

func (b *Board) layoutCanvas(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	area := clip.Rect{Max: size}.Push(gtx.Ops)
	defer area.Pop()

	event.Op(gtx.Ops, b)
	b.host.Events(gtx, b)

	paint.Fill(gtx.Ops, b.theme.Palette.Canvas)
	for _, s := range b.ink.Strokes() {
		b.drawStroke(gtx, s)
	}
	if min, max, active := b.marquee.Rect(); active {
		b.drawMarquee(gtx, min, max)
	}
	return layout.Dimensions{Size: size}
}

func (b *Board) screen(p pointer.Point) f32.Point {
	s := b.view.ToScreen(p)
	return f32.Pt(float32(s.X), float32(s.Y))
}

func (b *Board) drawStroke(gtx layout.Context, s Stroke) {
	var path clip.Path
	path.Begin(gtx.Ops)
	start := b.screen(s.Points[0])
	path.MoveTo(start)
	if len(s.Points) == 1 {
		path.LineTo(start.Add(f32.Pt(0.5, 0)))
	}
	for _, p := range s.Points[1:] {
		path.LineTo(b.screen(p))
	}

	col := b.theme.StrokeColor(s.Tool)
	if s.Selected {
		col = b.theme.Palette.Selected
	}
	width := float32(gtx.Dp(b.theme.StrokeWidth(s.Tool))) * float32(b.view.Zoom())
	paint.FillShape(gtx.Ops, col, clip.Stroke{Path: path.End(), Width: width}.Op())
}

func (b *Board) drawMarquee(gtx layout.Context, min, max pointer.Point) {
	lo, hi := b.screen(min), b.screen(max)
	rect := image.Rect(int(lo.X), int(lo.Y), int(hi.X), int(hi.Y))
	paint.FillShape(gtx.Ops, b.theme.Palette.Marquee, clip.Rect(rect).Op())
}
