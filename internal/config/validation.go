package config

import (
	"errors"
	"fmt"
	"strings"

	"inkboard/internal/logging"
	"inkboard/internal/toolsync"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is wrapped by Load when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig checks value ranges and cross-field constraints. Warnings
// are not returned; use Check for those.
func ValidateConfig(c *Config) error {
	errs := Check(c).Errors()
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Check returns every validation issue, warnings included.
func Check(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validatePalm(&c.Palm)...)
	errs = append(errs, validateDedup(&c.Dedup)...)
	errs = append(errs, validateGesture(&c.Gesture)...)
	errs = append(errs, validateToolSync(&c.ToolSync)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateTrace(&c.Trace)...)
	return errs
}

func validatePalm(p *PalmConfig) ValidationErrors {
	var errs ValidationErrors
	if p.MaxContactSize <= 0 {
		errs = append(errs, *RangeError("palm.max_contact_size", "0 (exclusive)", "any"))
	}
	if p.MinPressure < 0 || p.MinPressure > 1 {
		errs = append(errs, *RangeError("palm.min_pressure", 0, 1))
	}
	if p.TimeoutMs < 0 {
		errs = append(errs, ValidationError{Field: "palm.timeout_ms", Message: "timeout cannot be negative"})
	}
	if p.ClusterDistance <= 0 {
		errs = append(errs, *RangeError("palm.cluster_distance", "0 (exclusive)", "any"))
	}
	return errs
}

func validateDedup(d *DedupConfig) ValidationErrors {
	var errs ValidationErrors
	windows := []struct {
		field string
		v     int
	}{
		{"dedup.window_ms", d.WindowMs},
		{"dedup.stylus_window_ms", d.StylusWindowMs},
		{"dedup.stylus_duplicate_window_ms", d.StylusDuplicateWindowMs},
	}
	for _, w := range windows {
		if w.v < 0 {
			errs = append(errs, ValidationError{Field: w.field, Message: "window cannot be negative"})
		}
	}
	if d.HistorySize < 1 {
		errs = append(errs, ValidationError{Field: "dedup.history_size", Message: "history must hold at least 1 event"})
	}
	if d.StylusDuplicateWindowMs > d.StylusWindowMs {
		errs = append(errs, ValidationError{
			Field:   "dedup.stylus_duplicate_window_ms",
			Message: "wider than stylus_window_ms, so it has no effect",
		})
	}
	return errs
}

func validateGesture(g *GestureConfig) ValidationErrors {
	if g.DebounceMs < 0 {
		return ValidationErrors{{Field: "gesture.debounce_ms", Message: "debounce cannot be negative"}}
	}
	return nil
}

func validateToolSync(t *ToolSyncConfig) ValidationErrors {
	var errs ValidationErrors

	switch t.Source {
	case "none", "":
	case "dbus":
		if t.BusName == "" {
			errs = append(errs, *RequiredFieldError("toolsync.bus_name"))
		}
		if !strings.HasPrefix(t.ObjectPath, "/") {
			errs = append(errs, ValidationError{
				Field:   "toolsync.object_path",
				Message: fmt.Sprintf("invalid object path: %q", t.ObjectPath),
			})
		}
		if t.Interface == "" {
			errs = append(errs, *RequiredFieldError("toolsync.interface"))
		}
		if t.PollIntervalMs < 10 {
			errs = append(errs, *RangeError("toolsync.poll_interval_ms", 10, "any"))
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "toolsync.source",
			Message: fmt.Sprintf("invalid tool source: %s (valid: none, dbus)", t.Source),
		})
	}

	if _, err := toolsync.ParseTool(t.InitialTool); err != nil {
		errs = append(errs, ValidationError{Field: "toolsync.initial_tool", Message: err.Error()})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}
	if _, err := logging.ParseFormat(l.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output writes a file",
			})
		}
		if l.MaxSizeMB < 1 {
			errs = append(errs, ValidationError{Field: "logging.max_size_mb", Message: "max size must be at least 1 MB"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %q (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_backups", Message: "max backups cannot be negative"})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_age_days", Message: "max age cannot be negative"})
	}
	return errs
}

func validateTrace(t *TraceConfig) ValidationErrors {
	if t.Enabled && t.Path == "" {
		return ValidationErrors{*RequiredFieldError("trace.path")}
	}
	return nil
}

// warningFields are reported but never fail validation.
var warningFields = []string{
	"dedup.stylus_duplicate_window_ms",
}

// IsWarning reports whether this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	if strings.Contains(e.Message, "cannot be negative") {
		return false
	}
	for _, f := range warningFields {
		if e.Field == f {
			return true
		}
	}
	return false
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
