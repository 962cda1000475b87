package rig

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultAutoLoadDelay is the frame time waited before a scheduled scene
// load runs, letting dependent subsystems finish initializing.
const DefaultAutoLoadDelay = 100 * time.Millisecond

// Config holds engine tunables. The zero value of any field falls back to
// the matching default.
type Config struct {
	// HistoryLimit caps the undo and redo stacks.
	HistoryLimit int `yaml:"history_limit" toml:"history_limit"`
	// ErrorThreshold is the number of invalid writes inside one
	// ErrorWindowMS that auto-pauses playback.
	ErrorThreshold int `yaml:"error_threshold" toml:"error_threshold"`
	ErrorWindowMS  int `yaml:"error_window_ms" toml:"error_window_ms"`
	// AutoLoadDelayMS delays ScheduleLoad callbacks.
	AutoLoadDelayMS int `yaml:"auto_load_delay_ms" toml:"auto_load_delay_ms"`

	// Gravity and LinearDamping configure the reference simulation.
	Gravity       [3]float64 `yaml:"gravity" toml:"gravity"`
	LinearDamping float64    `yaml:"linear_damping" toml:"linear_damping"`

	Debug    bool   `yaml:"debug" toml:"debug"`
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:    DefaultHistoryLimit,
		ErrorThreshold:  DefaultErrorThreshold,
		ErrorWindowMS:   int(DefaultErrorWindow / time.Millisecond),
		AutoLoadDelayMS: int(DefaultAutoLoadDelay / time.Millisecond),
		Gravity:         [3]float64{0, -9.81, 0},
		LogLevel:        "warn",
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = d.ErrorThreshold
	}
	if c.ErrorWindowMS <= 0 {
		c.ErrorWindowMS = d.ErrorWindowMS
	}
	if c.AutoLoadDelayMS < 0 {
		c.AutoLoadDelayMS = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// ErrorWindow returns ErrorWindowMS as a duration.
func (c Config) ErrorWindow() time.Duration {
	return time.Duration(c.ErrorWindowMS) * time.Millisecond
}

// AutoLoadDelay returns AutoLoadDelayMS as a duration.
func (c Config) AutoLoadDelay() time.Duration {
	return time.Duration(c.AutoLoadDelayMS) * time.Millisecond
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) config file.
// Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	cfg, err := ParseConfig(data, format)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes config data in the given format ("yaml", "yml" or
// "toml") on top of DefaultConfig.
func ParseConfig(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse yaml config")
		}
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse toml config")
		}
	default:
		return Config{}, errors.Errorf("unsupported config format %q", format)
	}
	return cfg.withDefaults(), nil
}
