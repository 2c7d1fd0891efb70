package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Long:  `List the sessions in the event store, newest first.`,
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogger(cfg)

	st, err := store.NewSQLiteStore(cfg.Settings.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sessions, err := st.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded")
		return nil
	}

	for _, sess := range sessions {
		started := sess.StartWallISO
		if started == "" {
			started = time.UnixMilli(sess.StartWallMs).Format(time.RFC3339)
		}
		fmt.Printf("%s  started %s", sess.SessionID, started)
		if sess.OBSVideoPath != "" {
			fmt.Printf("  video %s", sess.OBSVideoPath)
		}
		fmt.Println()
	}

	return nil
}
