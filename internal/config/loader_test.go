package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func testLoader(t *testing.T) *Loader {
	t.Helper()
	dir := t.TempDir()
	return &Loader{
		globalPath:  filepath.Join(dir, "global", "config.yaml"),
		projectPath: filepath.Join(dir, "project", "config.yaml"),
	}
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	l := testLoader(t)

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Settings.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Settings.LogLevel)
	}
	if cfg.Settings.Live.EventCapacity != 2000 {
		t.Errorf("EventCapacity = %d, want 2000", cfg.Settings.Live.EventCapacity)
	}
	if cfg.Settings.Live.MergeWindowMs != 1500 {
		t.Errorf("MergeWindowMs = %d, want 1500", cfg.Settings.Live.MergeWindowMs)
	}
	if cfg.Settings.Daemon.Port != 8462 {
		t.Errorf("Port = %d, want 8462", cfg.Settings.Daemon.Port)
	}
}

func TestLoadGlobalOverridesDefaults(t *testing.T) {
	l := testLoader(t)
	writeConfig(t, l.globalPath, `
version: "1"
settings:
  log_level: debug
  live:
    event_capacity: 500
`)

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Settings.LogLevel)
	}
	if cfg.Settings.Live.EventCapacity != 500 {
		t.Errorf("EventCapacity = %d, want 500", cfg.Settings.Live.EventCapacity)
	}
	// Untouched settings keep their defaults
	if cfg.Settings.Live.PollIntervalMs != 500 {
		t.Errorf("PollIntervalMs = %d, want default 500", cfg.Settings.Live.PollIntervalMs)
	}
}

func TestLoadProjectOverridesGlobal(t *testing.T) {
	l := testLoader(t)
	writeConfig(t, l.globalPath, `
settings:
  log_level: debug
  capture:
    video_folder: /captures/global
`)
	writeConfig(t, l.projectPath, `
settings:
  capture:
    video_folder: /captures/project
`)

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Settings.Capture.VideoFolder != "/captures/project" {
		t.Errorf("VideoFolder = %q, want project value", cfg.Settings.Capture.VideoFolder)
	}
	// Settings only the global file sets still apply
	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from global", cfg.Settings.LogLevel)
	}
}

func TestLoadGlobalOnlyIgnoresProject(t *testing.T) {
	l := testLoader(t)
	writeConfig(t, l.globalPath, `
settings:
  daemon:
    port: 9000
`)
	writeConfig(t, l.projectPath, `
settings:
  daemon:
    port: 9999
`)

	cfg, err := l.LoadGlobalOnly()
	if err != nil {
		t.Fatalf("LoadGlobalOnly failed: %v", err)
	}
	if cfg.Settings.Daemon.Port != 9000 {
		t.Errorf("Port = %d, want the global value 9000", cfg.Settings.Daemon.Port)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	l := testLoader(t)
	writeConfig(t, l.globalPath, "settings: [not a map")

	if _, err := l.Load(); err == nil {
		t.Error("Expected error for malformed config")
	}
}

func TestOverlayDaemonSettings(t *testing.T) {
	base := DaemonSettings{Enabled: true, Port: 8462}

	// An empty override keeps the base values
	got := overlayDaemon(base, DaemonSettings{})
	if !got.Enabled || got.Port != 8462 {
		t.Errorf("Empty override changed settings: %+v", got)
	}

	// Setting a port makes the Enabled value authoritative
	got = overlayDaemon(base, DaemonSettings{Port: 9000})
	if got.Enabled || got.Port != 9000 {
		t.Errorf("Override = %+v, want disabled on port 9000", got)
	}
}
