package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".timestone"
	configFileName = "config.yaml"
)

// Loader resolves and merges the global and project config files.
// Later sources override earlier ones field by field.
type Loader struct {
	globalPath  string
	projectPath string
}

// NewLoader builds a loader rooted at projectDir. An empty projectDir
// means the current working directory.
func NewLoader(projectDir string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return &Loader{
		globalPath:  filepath.Join(homeDir, configDirName, configFileName),
		projectPath: filepath.Join(projectDir, configDirName, configFileName),
	}, nil
}

// Load returns defaults overlaid with the global config and then the
// project config. Missing files are skipped.
func (l *Loader) Load() (*Config, error) {
	return l.loadChain(l.globalPath, l.projectPath)
}

// LoadGlobalOnly ignores the project config. Daemon commands use this
// so a per-project override cannot steer a machine-wide process.
func (l *Loader) LoadGlobalOnly() (*Config, error) {
	return l.loadChain(l.globalPath)
}

// LoadFromFile reads a single config file without defaults or merging.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	return readConfigFile(path)
}

func (l *Loader) loadChain(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	for _, path := range paths {
		layer, err := readConfigFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = overlay(cfg, layer)
	}
	return cfg, nil
}

func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// overlay applies the set fields of top on base and returns the result.
func overlay(base, top *Config) *Config {
	out := &Config{
		Version: firstNonEmpty(top.Version, base.Version),
		Settings: Settings{
			LogLevel: firstNonEmpty(top.Settings.LogLevel, base.Settings.LogLevel),
			LogFile:  firstNonEmpty(top.Settings.LogFile, base.Settings.LogFile),
			Store: StoreSettings{
				Path: firstNonEmpty(top.Settings.Store.Path, base.Settings.Store.Path),
			},
			Live:   overlayLive(base.Settings.Live, top.Settings.Live),
			Daemon: overlayDaemon(base.Settings.Daemon, top.Settings.Daemon),
			Capture: CaptureSettings{
				VideoFolder: firstNonEmpty(top.Settings.Capture.VideoFolder, base.Settings.Capture.VideoFolder),
			},
		},
	}
	return out
}

func overlayLive(base, top LiveSettings) LiveSettings {
	out := base
	if top.EventCapacity != 0 {
		out.EventCapacity = top.EventCapacity
	}
	if top.MergeWindowMs != 0 {
		out.MergeWindowMs = top.MergeWindowMs
	}
	if top.PollIntervalMs != 0 {
		out.PollIntervalMs = top.PollIntervalMs
	}
	if top.HeartbeatSecs != 0 {
		out.HeartbeatSecs = top.HeartbeatSecs
	}
	return out
}

func overlayDaemon(base, top DaemonSettings) DaemonSettings {
	out := base

	// A bare false is indistinguishable from "not set" after YAML decode,
	// so Enabled only takes effect when the section is otherwise configured.
	if top.Enabled || top.Port != 0 {
		out.Enabled = top.Enabled
	}
	if top.Port != 0 {
		out.Port = top.Port
	}

	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// GlobalConfigPath returns the resolved global config file path.
func (l *Loader) GlobalConfigPath() string {
	return l.globalPath
}

// ProjectConfigPath returns the resolved project config file path.
func (l *Loader) ProjectConfigPath() string {
	return l.projectPath
}
