package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/config"
	"github.com/timestone/timestone/internal/daemon"
	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/store"
)

var (
	backgroundFlag      bool
	backgroundChildFlag bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the timestone daemon",
	Long: `Manage the timestone daemon.

The daemon serves the session directory, event queries, capture-folder scans,
and the live event stream consumed by playback frontends.

Commands:
  start  - Start the daemon (foreground or background)
  stop   - Stop the running daemon
  status - Check if the daemon is running`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long: `Start the timestone daemon.

By default, runs in the foreground. Use --background to run as a background process.

Example:
  timestone daemon start              # Run in foreground
  timestone daemon start --background # Run in background`,
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	RunE:  runDaemonStatus,
}

func init() {
	daemonStartCmd.Flags().BoolVarP(&backgroundFlag, "background", "b", false, "Run daemon in background")
	daemonStartCmd.Flags().BoolVar(&backgroundChildFlag, "background-child", false, "Internal flag for background process")
	_ = daemonStartCmd.Flags().MarkHidden("background-child")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

// loadDaemonConfig loads global-only config so project overrides never
// change which daemon a machine runs.
func loadDaemonConfig() *config.Config {
	loader, err := config.NewLoader("")
	if err != nil {
		return config.DefaultConfig()
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = loader.LoadFromFile(configFile)
	} else {
		cfg, err = loader.LoadGlobalOnly()
	}
	if err != nil || cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg := loadDaemonConfig()
	initLogger(cfg)

	lifecycle := daemon.NewLifecycle(cfg.Settings.Daemon)

	if backgroundFlag && !backgroundChildFlag {
		if lifecycle.IsRunning() {
			fmt.Println("Daemon is already running")
			return nil
		}

		if err := lifecycle.StartInBackground(); err != nil {
			return fmt.Errorf("failed to start daemon in background: %w", err)
		}

		fmt.Printf("Daemon started on http://127.0.0.1:%d\n", lifecycle.Port())
		return nil
	}

	if !backgroundChildFlag && lifecycle.IsRunning() {
		return fmt.Errorf("daemon is already running (PID file: %s)", lifecycle.PIDFile())
	}

	st, storeErr := store.NewSQLiteStore(cfg.Settings.Store.Path)
	if storeErr != nil {
		logger.Warn().Err(storeErr).Msg("Failed to open event store, running without data")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var es store.EventStore
	if st != nil {
		es = st
	}
	server := daemon.NewServer(cfg, es, Version)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if !backgroundChildFlag {
		fmt.Printf("Daemon running at http://127.0.0.1:%d\n", server.Port())
		fmt.Println("Press Ctrl+C to stop")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	if st != nil {
		_ = st.Close()
	}

	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg := loadDaemonConfig()
	lifecycle := daemon.NewLifecycle(cfg.Settings.Daemon)

	if !lifecycle.IsRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := lifecycle.Stop(); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	fmt.Println("Daemon stopped")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	cfg := loadDaemonConfig()
	lifecycle := daemon.NewLifecycle(cfg.Settings.Daemon)

	if lifecycle.IsRunning() {
		pid, _ := lifecycle.GetPID()
		fmt.Printf("Daemon is running (PID %d) at http://127.0.0.1:%d\n", pid, lifecycle.Port())
	} else {
		fmt.Println("Daemon is not running")
	}
	return nil
}
