package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"inkboard/internal/logging"
	"inkboard/internal/stage"
	"inkboard/internal/toolsync"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("INKBOARD_DATA_DIR", "/tmp/inkboard-test")
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if !reflect.DeepEqual(cfg.StageConfig(), stage.DefaultConfig()) {
		t.Errorf("default stage config mismatch:\n got %+v\nwant %+v", cfg.StageConfig(), stage.DefaultConfig())
	}
	if cfg.Trace.Path != filepath.Join("/tmp/inkboard-test", "trace.db") {
		t.Errorf("unexpected trace path %s", cfg.Trace.Path)
	}
	if cfg.InitialTool() != toolsync.ToolPen {
		t.Errorf("expected pen, got %s", cfg.InitialTool())
	}
	if cfg.PollInterval() != toolsync.DefaultInterval {
		t.Errorf("expected default poll interval, got %v", cfg.PollInterval())
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "inkboard") {
		t.Errorf("config path should contain inkboard: %s", path)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Palm.MaxContactSize != 40 {
		t.Errorf("expected default max contact size, got %v", cfg.Palm.MaxContactSize)
	}
}

func TestLoadTOMLPartial(t *testing.T) {
	path := writeFile(t, "config.toml", `
version = 1

# tuned for a large touch table
[palm]
max_contact_size = 55.5
timeout_ms = 300

[dedup]
enabled = false

[input]
disable_pointer_events = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sc := cfg.StageConfig()
	if sc.Palm.MaxContactSize != 55.5 {
		t.Errorf("max contact size = %v", sc.Palm.MaxContactSize)
	}
	if sc.Palm.Timeout != 300*time.Millisecond {
		t.Errorf("timeout = %v", sc.Palm.Timeout)
	}
	if !sc.Palm.Enabled || !sc.Palm.PreferStylus {
		t.Error("unset palm fields should keep their defaults")
	}
	if sc.Dedup.Enabled {
		t.Error("dedup should be disabled")
	}
	if sc.Dedup.Window != 20*time.Millisecond {
		t.Errorf("dedup window = %v", sc.Dedup.Window)
	}
	if !sc.DisablePointerEvents {
		t.Error("pointer events should be disabled")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
version: 1
gesture:
  debounce_ms: 80
toolsync:
  source: dbus
  initial_tool: selection
  poll_interval_ms: 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GestureConfig().Debounce != 80*time.Millisecond {
		t.Errorf("debounce = %v", cfg.GestureConfig().Debounce)
	}
	if cfg.InitialTool() != toolsync.ToolSelect {
		t.Errorf("initial tool = %s", cfg.InitialTool())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.PollInterval())
	}
	if cfg.ToolSync.BusName != toolsync.DefaultBusName {
		t.Errorf("bus name should default, got %q", cfg.ToolSync.BusName)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"version": 1, "bridge": {"enabled": false}, "trace": {"enabled": true, "path": "/tmp/t.db", "session": "lab"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bridge.Enabled {
		t.Error("bridge should be disabled")
	}
	if !cfg.Trace.Enabled || cfg.Trace.Session != "lab" {
		t.Errorf("unexpected trace config %+v", cfg.Trace)
	}
}

func TestLoadAutoDetect(t *testing.T) {
	path := writeFile(t, "inkboardrc", "[palm]\nmin_pressure = 0.2\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Palm.MinPressure != 0.2 {
		t.Errorf("min pressure = %v", cfg.Palm.MinPressure)
	}
}

func TestLoadSchemaViolations(t *testing.T) {
	tests := []struct {
		name, file, content, field string
	}{
		{"unknown key", "c.toml", "[palm]\nmax_size = 3\n", "palm"},
		{"wrong type", "c.toml", "[palm]\ntimeout_ms = \"soon\"\n", "palm.timeout_ms"},
		{"out of range", "c.json", `{"palm": {"min_pressure": 2}}`, "palm.min_pressure"},
		{"bad enum", "c.yaml", "toolsync:\n  source: http\n", "toolsync.source"},
		{"unknown section", "c.toml", "[sync]\nenabled = true\n", "(root)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for %s in %v", tc.field, verrs)
			}
		})
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", "[palm\nenabled = "))
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "version"},
		{"contact size", func(c *Config) { c.Palm.MaxContactSize = 0 }, "palm.max_contact_size"},
		{"pressure", func(c *Config) { c.Palm.MinPressure = 1.5 }, "palm.min_pressure"},
		{"history", func(c *Config) { c.Dedup.HistorySize = 0 }, "dedup.history_size"},
		{"negative window", func(c *Config) { c.Dedup.WindowMs = -1 }, "dedup.window_ms"},
		{"source", func(c *Config) { c.ToolSync.Source = "grpc" }, "toolsync.source"},
		{"object path", func(c *Config) {
			c.ToolSync.Source = "dbus"
			c.ToolSync.ObjectPath = "org/inkboard"
		}, "toolsync.object_path"},
		{"tool", func(c *Config) { c.ToolSync.InitialTool = "lasso" }, "toolsync.initial_tool"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log file", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, "logging.file_path"},
		{"trace path", func(c *Config) {
			c.Trace.Enabled = true
			c.Trace.Path = ""
		}, "trace.path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tc.field {
				t.Errorf("expected field %s, got %v", tc.field, verrs)
			}
		})
	}
}

func TestValidationWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dedup.StylusDuplicateWindowMs = 10

	if err := cfg.Validate(); err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}
	issues := Check(cfg)
	if len(issues.Warnings()) != 1 || issues.HasErrors() {
		t.Errorf("expected a single warning, got %v", issues)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("INKBOARD_LOG_LEVEL", "debug")
	t.Setenv("INKBOARD_TRACE_ENABLED", "true")
	t.Setenv("INKBOARD_TRACE_PATH", "/tmp/override.db")
	t.Setenv("INKBOARD_PALM_ENABLED", "0")
	t.Setenv("INKBOARD_DEDUP_ENABLED", "maybe")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s", cfg.Logging.Level)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Path != "/tmp/override.db" {
		t.Errorf("trace = %+v", cfg.Trace)
	}
	if cfg.Palm.Enabled {
		t.Error("palm should be disabled by env")
	}
	if !cfg.Dedup.Enabled {
		t.Error("malformed boolean should be ignored")
	}
}

func TestLoggingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "file"
	cfg.Logging.MaxSizeMB = 7

	lc, err := cfg.LoggingConfig()
	if err != nil {
		t.Fatal(err)
	}
	if lc.Level != logging.LevelWarn || lc.Format != logging.FormatJSON {
		t.Errorf("unexpected level/format %v/%v", lc.Level, lc.Format)
	}
	if lc.Output != "file" || lc.MaxSize != 7 {
		t.Errorf("unexpected output/size %s/%d", lc.Output, lc.MaxSize)
	}

	cfg.Logging.Level = "nope"
	if _, err := cfg.LoggingConfig(); err == nil {
		t.Error("expected error for bad level")
	}
}

func TestLoadOrCreate(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)

			cfg, created, err := LoadOrCreate(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !created {
				t.Error("expected file to be created")
			}

			again, created, err := LoadOrCreate(path)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if created {
				t.Error("second call should load, not create")
			}
			if !reflect.DeepEqual(cfg, again) {
				t.Errorf("written defaults do not load back:\n got %+v\nwant %+v", again, cfg)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = filepath.Join(dir, "logs", "inkboard.log")
	cfg.Trace.Enabled = true
	cfg.Trace.Path = filepath.Join(dir, "trace", "trace.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"logs", "trace"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("%s not created: %v", sub, err)
		}
	}
}
