// Package config loads timestone configuration from YAML, merging the
// global file with an optional project override.
package config

// Config represents the complete timestone configuration
type Config struct {
	Version  string   `yaml:"version"`
	Settings Settings `yaml:"settings"`
}

// Settings contains global configuration settings
type Settings struct {
	LogLevel string          `yaml:"log_level"`
	LogFile  string          `yaml:"log_file,omitempty"`
	Store    StoreSettings   `yaml:"store"`
	Live     LiveSettings    `yaml:"live"`
	Daemon   DaemonSettings  `yaml:"daemon"`
	Capture  CaptureSettings `yaml:"capture"`
}

// StoreSettings configures the SQLite event store.
type StoreSettings struct {
	Path string `yaml:"path,omitempty"`
}

// LiveSettings configures the live event buffer and its poll loop.
type LiveSettings struct {
	EventCapacity  int   `yaml:"event_capacity,omitempty"`
	MergeWindowMs  int64 `yaml:"merge_window_ms,omitempty"`
	PollIntervalMs int64 `yaml:"poll_interval_ms,omitempty"`
	HeartbeatSecs  int64 `yaml:"heartbeat_secs,omitempty"`
}

// DaemonSettings configures the HTTP daemon.
type DaemonSettings struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port,omitempty"`
}

// CaptureSettings configures where recordings live.
type CaptureSettings struct {
	VideoFolder string `yaml:"video_folder,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel: "info",
			Live: LiveSettings{
				EventCapacity:  2000,
				MergeWindowMs:  1500,
				PollIntervalMs: 500,
				HeartbeatSecs:  30,
			},
			Daemon: DaemonSettings{
				Port: 8462,
			},
		},
	}
}
