// Package config handles configuration loading, validation and hot reload
// for inkboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"inkboard/internal/dedup"
	"inkboard/internal/gesture"
	"inkboard/internal/logging"
	"inkboard/internal/palm"
	"inkboard/internal/stage"
	"inkboard/internal/toolsync"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete inkboard configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input selects the event path.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Palm configures palm rejection.
	Palm PalmConfig `toml:"palm" json:"palm" yaml:"palm"`

	// Dedup configures cross-source event deduplication.
	Dedup DedupConfig `toml:"dedup" json:"dedup" yaml:"dedup"`

	// Gesture configures multi-touch detection.
	Gesture GestureConfig `toml:"gesture" json:"gesture" yaml:"gesture"`

	// Bridge configures touch-to-selection bridging.
	Bridge BridgeConfig `toml:"bridge" json:"bridge" yaml:"bridge"`

	// ToolSync configures where the active tool comes from.
	ToolSync ToolSyncConfig `toml:"toolsync" json:"toolsync" yaml:"toolsync"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Trace configures decision recording.
	Trace TraceConfig `toml:"trace" json:"trace" yaml:"trace"`
}

// InputConfig holds event path settings.
type InputConfig struct {
	// DisablePointerEvents forces the touch and mouse path.
	DisablePointerEvents bool `toml:"disable_pointer_events" json:"disable_pointer_events" yaml:"disable_pointer_events"`
}

// PalmConfig holds palm rejection thresholds.
type PalmConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// MaxContactSize is the contact width or height, in pixels, above which
	// a touch is a palm.
	MaxContactSize float64 `toml:"max_contact_size" json:"max_contact_size" yaml:"max_contact_size"`

	// MinPressure applies only to devices that report pressure.
	MinPressure float64 `toml:"min_pressure" json:"min_pressure" yaml:"min_pressure"`

	// TimeoutMs suppresses further touches after a palm is seen.
	TimeoutMs int `toml:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`

	// ClusterDistance is the radius, in pixels, of a palm cluster.
	ClusterDistance float64 `toml:"cluster_distance" json:"cluster_distance" yaml:"cluster_distance"`

	// PreferStylus rejects every touch while a stylus is down.
	PreferStylus bool `toml:"prefer_stylus" json:"prefer_stylus" yaml:"prefer_stylus"`
}

// DedupConfig holds deduplication windows.
type DedupConfig struct {
	Enabled                 bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	WindowMs                int  `toml:"window_ms" json:"window_ms" yaml:"window_ms"`
	StylusWindowMs          int  `toml:"stylus_window_ms" json:"stylus_window_ms" yaml:"stylus_window_ms"`
	StylusDuplicateWindowMs int  `toml:"stylus_duplicate_window_ms" json:"stylus_duplicate_window_ms" yaml:"stylus_duplicate_window_ms"`
	HistorySize             int  `toml:"history_size" json:"history_size" yaml:"history_size"`
}

// GestureConfig holds multi-touch detection settings.
type GestureConfig struct {
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// BridgeConfig holds touch-to-selection settings.
type BridgeConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// ToolSyncConfig selects the tool source.
type ToolSyncConfig struct {
	// Source is "none" (local tool only) or "dbus".
	Source string `toml:"source" json:"source" yaml:"source"`

	// InitialTool is the tool until the source reports one.
	InitialTool string `toml:"initial_tool" json:"initial_tool" yaml:"initial_tool"`

	BusName        string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`
	ObjectPath     string `toml:"object_path" json:"object_path" yaml:"object_path"`
	Interface      string `toml:"interface" json:"interface" yaml:"interface"`
	PollIntervalMs int    `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both".
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// TraceConfig holds decision recording settings.
type TraceConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Session names the recording; empty means a timestamp.
	Session string `toml:"session" json:"session" yaml:"session"`
}

// DefaultConfig returns a configuration with the component defaults.
func DefaultConfig() *Config {
	dir := InkboardDir()
	p := palm.DefaultConfig()
	d := dedup.DefaultConfig()
	g := gesture.DefaultConfig()

	return &Config{
		Version: Version,
		Palm: PalmConfig{
			Enabled:         p.Enabled,
			MaxContactSize:  p.MaxContactSize,
			MinPressure:     p.MinPressure,
			TimeoutMs:       int(p.Timeout / time.Millisecond),
			ClusterDistance: p.ClusterDistance,
			PreferStylus:    p.PreferStylus,
		},
		Dedup: DedupConfig{
			Enabled:                 d.Enabled,
			WindowMs:                int(d.Window / time.Millisecond),
			StylusWindowMs:          int(d.StylusWindow / time.Millisecond),
			StylusDuplicateWindowMs: int(d.StylusDuplicateWindow / time.Millisecond),
			HistorySize:             d.HistorySize,
		},
		Gesture: GestureConfig{
			DebounceMs: int(g.Debounce / time.Millisecond),
		},
		Bridge: BridgeConfig{Enabled: true},
		ToolSync: ToolSyncConfig{
			Source:         "none",
			InitialTool:    string(toolsync.ToolPen),
			BusName:        toolsync.DefaultBusName,
			ObjectPath:     string(toolsync.DefaultPath),
			Interface:      toolsync.DefaultInterface,
			PollIntervalMs: int(toolsync.DefaultInterval / time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(dir, "inkboard.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Trace: TraceConfig{
			Enabled: false,
			Path:    filepath.Join(dir, "trace.db"),
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// InkboardDir returns the data directory, honouring INKBOARD_DATA_DIR.
func InkboardDir() string {
	if envDir := os.Getenv("INKBOARD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies INKBOARD_* environment variables. Malformed
// booleans are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INKBOARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INKBOARD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("INKBOARD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("INKBOARD_TRACE_PATH"); v != "" {
		c.Trace.Path = v
	}
	if v := os.Getenv("INKBOARD_TOOLSYNC_SOURCE"); v != "" {
		c.ToolSync.Source = v
	}

	envBool("INKBOARD_TRACE_ENABLED", &c.Trace.Enabled)
	envBool("INKBOARD_PALM_ENABLED", &c.Palm.Enabled)
	envBool("INKBOARD_DEDUP_ENABLED", &c.Dedup.Enabled)
	envBool("INKBOARD_BRIDGE_ENABLED", &c.Bridge.Enabled)
	envBool("INKBOARD_DISABLE_POINTER_EVENTS", &c.Input.DisablePointerEvents)
}

func envBool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// Clone returns a copy of the configuration. Config holds no references,
// so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// PalmConfig converts to the analyzer's configuration.
func (c *Config) PalmConfig() palm.Config {
	return palm.Config{
		Enabled:         c.Palm.Enabled,
		MaxContactSize:  c.Palm.MaxContactSize,
		MinPressure:     c.Palm.MinPressure,
		Timeout:         ms(c.Palm.TimeoutMs),
		ClusterDistance: c.Palm.ClusterDistance,
		PreferStylus:    c.Palm.PreferStylus,
	}
}

// DedupConfig converts to the engine's configuration.
func (c *Config) DedupConfig() dedup.Config {
	return dedup.Config{
		Enabled:               c.Dedup.Enabled,
		Window:                ms(c.Dedup.WindowMs),
		StylusWindow:          ms(c.Dedup.StylusWindowMs),
		StylusDuplicateWindow: ms(c.Dedup.StylusDuplicateWindowMs),
		HistorySize:           c.Dedup.HistorySize,
	}
}

// GestureConfig converts to the detector's configuration.
func (c *Config) GestureConfig() gesture.Config {
	return gesture.Config{Debounce: ms(c.Gesture.DebounceMs)}
}

// StageConfig converts to the coordinator's configuration.
func (c *Config) StageConfig() stage.Config {
	return stage.Config{
		Palm:                 c.PalmConfig(),
		Gesture:              c.GestureConfig(),
		Dedup:                c.DedupConfig(),
		BridgeEnabled:        c.Bridge.Enabled,
		DisablePointerEvents: c.Input.DisablePointerEvents,
	}
}

// InitialTool parses ToolSync.InitialTool, falling back to the pen.
func (c *Config) InitialTool() toolsync.Tool {
	t, err := toolsync.ParseTool(c.ToolSync.InitialTool)
	if err != nil {
		return toolsync.ToolPen
	}
	return t
}

// PollInterval returns the tool source polling interval.
func (c *Config) PollInterval() time.Duration {
	if c.ToolSync.PollIntervalMs <= 0 {
		return toolsync.DefaultInterval
	}
	return ms(c.ToolSync.PollIntervalMs)
}

// LoggingConfig converts to the logging package's configuration.
func (c *Config) LoggingConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = c.Logging.Output
	lc.FilePath = c.Logging.FilePath
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	lc.MaxAge = c.Logging.MaxAgeDays
	lc.Compress = c.Logging.Compress
	return lc, nil
}

// EnsureDirectories creates the directories for the log and trace files.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	if c.Trace.Enabled {
		dirs = append(dirs, filepath.Dir(c.Trace.Path))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
