// Command inkboard is a drawing board that routes pen, touch and mouse
// input through the stage coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/godbus/dbus/v5"

	"inkboard/cmd/inkboard/internal/theme"
	"inkboard/cmd/inkboard/internal/ui"
	"inkboard/internal/config"
	"inkboard/internal/giohost"
	"inkboard/internal/logging"
	"inkboard/internal/stage"
	"inkboard/internal/surface"
	"inkboard/internal/toolsync"
	"inkboard/internal/trace"
)

func main() {
	configPath := flag.String("config", "", "config file (default: ./config.* or the platform config dir)")
	session := flag.String("session", "", "trace session name (overrides trace.session)")
	flag.Parse()

	go func() {
		w := new(app.Window)
		w.Option(app.Title("Inkboard"))
		w.Option(app.Size(unit.Dp(1024), unit.Dp(768)))

		if err := run(w, *configPath, *session); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(w *app.Window, configPath, session string) error {
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	if configPath == "" {
		configPath = config.ConfigPath()
	}

	loader := config.NewLoader(configPath, nil)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lc, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.SetDefault(logger)
	defer logger.Close()
	mainLog := logger.Component("inkboard")
	mainLog.Info("starting", "config", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tools := toolsync.NewHandler(toolsync.State{Tool: cfg.InitialTool()}, logger.Component("toolsync"))
	if cfg.ToolSync.Source == "dbus" {
		startToolSync(ctx, tools, cfg, mainLog)
	}

	var recorder stage.Recorder
	if cfg.Trace.Enabled {
		if session == "" {
			session = cfg.Trace.Session
		}
		rec, closeTrace, err := openTrace(cfg.Trace.Path, session, logger.Component("trace"))
		if err != nil {
			mainLog.Warn("trace disabled", "path", cfg.Trace.Path, "error", err)
		} else {
			defer closeTrace()
			recorder = rec
			mainLog.Info("recording trace", "path", cfg.Trace.Path, "session", rec.Session())
		}
	}

	view := stage.NewView()
	ink := ui.NewInk(tools)
	marquee := ui.NewMarquee(ink)
	coord := stage.New(stage.Options{
		Config:    cfg.StageConfig(),
		Tools:     tools,
		Drawing:   ink,
		Selection: marquee,
		PanZoom:   view,
		Transform: view,
		Recorder:  recorder,
		Logger:    logger.Component("stage"),
	})
	el := surface.NewElement(true)
	coord.Attach(el)
	defer coord.Detach()
	mainLog.Info("input attached", "mode", coord.Mode().String())

	unsubscribe := tools.OnChange(func(toolsync.State) { w.Invalidate() })
	defer unsubscribe()

	loader.OnChange(func(c *config.Config) {
		coord.UpdateConfig(c.StageConfig())
		w.Invalidate()
	})
	if err := loader.Watch(); err != nil {
		mainLog.Warn("config hot reload unavailable", "error", err)
	}
	defer loader.Close()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				mainLog.Error("config reload failed", "error", err)
			}
		}
	}()

	th := theme.NewTheme(material.NewTheme())
	board := ui.NewBoard(th, tools, coord, giohost.New(el, logger.Component("giohost")), view, ink, marquee)

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			board.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func startToolSync(ctx context.Context, tools *toolsync.Handler, cfg *config.Config, logger *slog.Logger) {
	ts := cfg.ToolSync
	src, err := toolsync.DialSessionSource(ts.BusName, dbus.ObjectPath(ts.ObjectPath), ts.Interface)
	if err != nil {
		logger.Warn("tool sync unavailable", "bus_name", ts.BusName, "error", err)
		return
	}
	go func() {
		if err := tools.Watch(ctx, src, cfg.PollInterval()); err != nil && ctx.Err() == nil {
			logger.Warn("tool sync stopped", "error", err)
		}
	}()
}

func openTrace(path, session string, logger *slog.Logger) (*trace.Recorder, func(), error) {
	store, err := trace.Open(path)
	if err != nil {
		return nil, nil, err
	}
	rec, err := trace.NewRecorder(store, session, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return rec, func() {
		if err := rec.Close(); err != nil {
			logger.Warn("close trace session", "error", err)
		}
		store.Close()
	}, nil
}
