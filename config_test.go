package rig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HistoryLimit != 10 || cfg.ErrorThreshold != 100 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.ErrorWindow() != time.Second || cfg.AutoLoadDelay() != 100*time.Millisecond {
		t.Errorf("window %v, delay %v", cfg.ErrorWindow(), cfg.AutoLoadDelay())
	}
}

func TestZeroConfigTakesDefaults(t *testing.T) {
	e := NewEngine(Config{})
	cfg := e.Config()
	if cfg.HistoryLimit != DefaultHistoryLimit || cfg.ErrorThreshold != DefaultErrorThreshold {
		t.Errorf("effective config = %+v", cfg)
	}
	if cfg.ErrorWindow() != DefaultErrorWindow || cfg.LogLevel != "warn" {
		t.Errorf("effective config = %+v", cfg)
	}
}

func TestParseConfigYAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
history_limit: 25
error_threshold: 5
gravity: [0, -1.62, 0]
debug: true
`), "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HistoryLimit != 25 || cfg.ErrorThreshold != 5 || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
	assertNear(t, "gravity", cfg.Gravity[1], -1.62)
	if cfg.ErrorWindowMS != 1000 {
		t.Errorf("missing key lost its default: %d", cfg.ErrorWindowMS)
	}
}

func TestParseConfigTOML(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
error_window_ms = 250
auto_load_delay_ms = 0
log_level = "debug"
linear_damping = 0.1
`), "toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ErrorWindow() != 250*time.Millisecond || cfg.AutoLoadDelay() != 0 {
		t.Errorf("window %v, delay %v", cfg.ErrorWindow(), cfg.AutoLoadDelay())
	}
	if cfg.LogLevel != "debug" || cfg.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("cfg = %+v", cfg)
	}
	assertNear(t, "damping", cfg.LinearDamping, 0.1)
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte(`{}`), "json"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := ParseConfig([]byte("history_limit: [oops"), "yaml"); err == nil {
		t.Error("expected error for malformed yaml")
	}
	if _, err := ParseConfig([]byte("history_limit = "), "toml"); err == nil {
		t.Error("expected error for malformed toml")
	}
}

func TestLoadConfigByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.yml")
	if err := os.WriteFile(path, []byte("history_limit: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HistoryLimit != 3 {
		t.Errorf("history limit = %d", cfg.HistoryLimit)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
