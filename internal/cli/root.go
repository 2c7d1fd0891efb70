package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/config"
	"github.com/timestone/timestone/internal/logger"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	quiet      bool
	configFile string
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "timestone",
	Short: "Multi-clock timeline engine for screen-capture sessions",
	Long: `Timestone reconciles the independently-clocked streams recorded during a
screen-capture session - the video frame sequence, the audio transcript, and
the wall-clock event log - into one seekable timeline.

The daemon serves the session directory, event queries, folder scans, and a
live event stream; the query commands work directly against the event store.

Configure in:
  - ~/.timestone/config.yaml (global)
  - .timestone/config.yaml (project-specific)`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("timestone %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Override config file path")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Override project directory")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the merged configuration, falling back to defaults when
// no config files exist.
func loadConfig() *config.Config {
	loader, err := config.NewLoader(projectDir)
	if err != nil {
		return config.DefaultConfig()
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = loader.LoadFromFile(configFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil || cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// initLogger initializes logging from flags and config.
func initLogger(cfg *config.Config) {
	if quiet {
		logger.InitQuiet()
	} else if verbose {
		_ = logger.Init("debug", cfg.Settings.LogFile)
	} else if cfg.Settings.LogLevel != "" {
		_ = logger.Init(cfg.Settings.LogLevel, cfg.Settings.LogFile)
	} else {
		_ = logger.Init("info", cfg.Settings.LogFile)
	}
}
