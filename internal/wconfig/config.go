// Package wconfig provides YAML configuration parsing for the pathwatch
// CLI: which paths to watch at startup, logging verbosity, and the
// symlink-traversal tunables an operator might want to override.
package wconfig

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogLevel mirrors slog's levels as a YAML-friendly string.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var validLogLevels = map[LogLevel]struct{}{
	LogLevelDebug: {},
	LogLevelInfo:  {},
	LogLevelWarn:  {},
	LogLevelError: {},
}

// UnmarshalYAML normalizes and validates the level string at parse time.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	normalized := LogLevel(strings.ToLower(strings.TrimSpace(raw)))
	if normalized == "" {
		normalized = LogLevelInfo
	}
	if _, ok := validLogLevels[normalized]; !ok {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", raw)
	}
	*l = normalized
	return nil
}

// WatchRule configures one path to watch automatically at CLI startup.
type WatchRule struct {
	// Path is the filesystem path to track.
	Path string `yaml:"path"`
	// Events lists the raw inotify event names (IN_OPEN, IN_CLOSE_WRITE,
	// ...) this rule subscribes to.
	Events []string `yaml:"events"`
	// RememberCurdir pins resolution to the working directory at the time
	// this rule was loaded, rather than re-reading it on every reconnect.
	RememberCurdir bool `yaml:"remember_curdir"`
}

// Config is the top-level pathwatch configuration document.
type Config struct {
	// LogLevel is one of debug, info, warn or error (info when empty). The
	// watch command does not read it; its log level comes from --verbose.
	LogLevel LogLevel `yaml:"log_level"`
	// SymlinkMax is a symlink-chain limit and must not be negative. The
	// watch command does not read it; its Watcher always probes the limit
	// with DetectSymlinkMax.
	SymlinkMax int `yaml:"symlink_max"`
	// Watches lists paths to watch automatically at startup.
	Watches []WatchRule `yaml:"watches"`
}

// ParseFile reads the YAML file at path, applies defaults, and validates
// the resulting configuration.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
	if errs := Validate(&cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return &cfg, nil
}

// Validate checks cfg for semantic errors and returns all of them at once.
func Validate(cfg *Config) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.SymlinkMax < 0 {
		add("symlink_max must not be negative, got %d", cfg.SymlinkMax)
	}
	for i, w := range cfg.Watches {
		if w.Path == "" {
			add("watches[%d].path must not be empty", i)
		}
		if len(w.Events) == 0 {
			add("watches[%d].events must list at least one event", i)
		}
	}
	return errs
}
