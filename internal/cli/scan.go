package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/scan"
)

var (
	scanStartMs int64
	scanEndMs   int64
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Scan a capture folder for video recordings",
	Long: `Scan a folder for video recordings, ordered by inferred start time.

Start times come from the recording filename when it carries a timestamp
(OBS-style "2025-03-14 09-26-53.mkv"), falling back to the file's
modification time. Without a folder argument the configured capture
folder is scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Int64Var(&scanStartMs, "start-ms", 0, "Lower wall-clock bound (epoch ms)")
	scanCmd.Flags().Int64Var(&scanEndMs, "end-ms", 0, "Upper wall-clock bound (epoch ms)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogger(cfg)

	folder := cfg.Settings.Capture.VideoFolder
	if len(args) > 0 {
		folder = args[0]
	}
	if folder == "" {
		return fmt.Errorf("no folder given and no capture folder configured")
	}

	var startMs, endMs *int64
	if scanStartMs != 0 {
		startMs = &scanStartMs
	}
	if scanEndMs != 0 {
		endMs = &scanEndMs
	}

	result, err := scan.Folder(folder, startMs, endMs)
	if err != nil {
		return fmt.Errorf("failed to scan folder: %w", err)
	}

	for _, v := range result.Videos {
		start := "unknown start"
		if v.StartWallMs != nil {
			start = time.UnixMilli(*v.StartWallMs).Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  %s  (%s)\n", start, v.Name, v.StartSource)
	}
	fmt.Printf("%d of %d recordings in range\n", result.FilteredCount, result.TotalCount)

	return nil
}
