package toolsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/internal/surface"
)

func TestToolClassification(t *testing.T) {
	assert.True(t, ToolSelect.IsSelection())
	assert.False(t, ToolSelect.IsDrawing())
	for _, tool := range []Tool{ToolPen, ToolHighlighter, ToolEraser} {
		assert.True(t, tool.IsDrawing(), tool)
		assert.Equal(t, surface.TouchActionNone, tool.TouchAction())
	}
	assert.Equal(t, surface.TouchActionManipulation, ToolSelect.TouchAction())
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		in      string
		want    Tool
		wantErr bool
	}{
		{"pen", ToolPen, false},
		{" Select ", ToolSelect, false},
		{"selection", ToolSelect, false},
		{"ERASER", ToolEraser, false},
		{"laser", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTool(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPushUpdatesTouchActionAndListeners(t *testing.T) {
	el := surface.NewElement(true)
	h := NewHandler(State{Tool: ToolPen}, nil)
	unbind := h.Bind(el)
	assert.Equal(t, surface.TouchActionNone, el.TouchAction())

	var seen []State
	remove := h.OnChange(func(s State) { seen = append(seen, s) })

	h.Push(ToolSelect)
	assert.Equal(t, ToolSelect, h.Tool())
	assert.Equal(t, surface.TouchActionManipulation, el.TouchAction())

	h.Push(ToolSelect)
	assert.Len(t, seen, 1, "no change, no notification")

	h.SetReadOnly(true)
	assert.True(t, h.ReadOnly())
	assert.Len(t, seen, 2)

	remove()
	unbind()
	h.Push(ToolEraser)
	assert.Len(t, seen, 2)
	assert.Equal(t, surface.TouchActionManipulation, el.TouchAction(), "unbound surface is left alone")
}

func TestConcurrentPushAndReadOnlyKeepBoth(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := NewHandler(State{Tool: ToolPen}, nil)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Push(ToolSelect)
		}()
		go func() {
			defer wg.Done()
			h.SetReadOnly(true)
		}()
		wg.Wait()
		require.Equal(t, State{Tool: ToolSelect, ReadOnly: true}, h.State())
	}
}

func TestWatchPolls(t *testing.T) {
	var mu sync.Mutex
	current := State{Tool: ToolPen}
	calls := 0
	src := SourceFunc(func(context.Context) (State, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return State{}, errors.New("owner busy")
		}
		return current, nil
	})

	h := NewHandler(State{Tool: ToolSelect}, nil)
	changed := make(chan State, 4)
	h.OnChange(func(s State) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx, src, 5*time.Millisecond) }()

	select {
	case s := <-changed:
		assert.Equal(t, ToolPen, s.Tool)
	case <-time.After(time.Second):
		t.Fatal("initial poll not applied")
	}

	mu.Lock()
	current = State{Tool: ToolEraser, ReadOnly: true}
	mu.Unlock()

	select {
	case s := <-changed:
		assert.Equal(t, ToolEraser, s.Tool)
		assert.True(t, s.ReadOnly)
	case <-time.After(time.Second):
		t.Fatal("change not observed")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchNilSource(t *testing.T) {
	h := NewHandler(State{}, nil)
	assert.Error(t, h.Watch(context.Background(), nil, 0))
}

func TestStateFromProps(t *testing.T) {
	st, err := stateFromProps(map[string]dbus.Variant{
		"Tool":     dbus.MakeVariant("select"),
		"ReadOnly": dbus.MakeVariant(true),
	})
	require.NoError(t, err)
	assert.Equal(t, State{Tool: ToolSelect, ReadOnly: true}, st)

	_, err = stateFromProps(map[string]dbus.Variant{"ReadOnly": dbus.MakeVariant(false)})
	assert.Error(t, err)

	_, err = stateFromProps(map[string]dbus.Variant{"Tool": dbus.MakeVariant(int32(3))})
	assert.Error(t, err)
}
