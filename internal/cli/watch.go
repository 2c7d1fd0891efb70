package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/live"
	"github.com/timestone/timestone/internal/store"
)

var (
	watchSession  string
	watchBackfill int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a session's event stream live",
	Long: `Follow a session's event stream as it is recorded, printing each
event as it lands in the live buffer. Deduplication and text-input
merging apply the same way playback sees them.

Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSession, "session", "s", "", "Session ID (required)")
	watchCmd.Flags().IntVar(&watchBackfill, "backfill", 20, "Recent events to print before following")
	_ = watchCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogger(cfg)

	st, err := store.NewSQLiteStore(cfg.Settings.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ingestor := event.NewIngestor(cfg.Settings.Live.EventCapacity, cfg.Settings.Live.MergeWindowMs)
	follower := live.NewFollower(
		live.NewStoreSource(st),
		ingestor,
		watchSession,
		time.Duration(cfg.Settings.Live.PollIntervalMs)*time.Millisecond,
	)

	var maxPrintedID int64
	follower.OnBatch = func(batch []event.Event, accepted int) {
		if accepted == 0 {
			return
		}
		for _, ev := range batch {
			if ev.ID <= maxPrintedID {
				continue
			}
			maxPrintedID = ev.ID
			printWatchEvent(ev)
		}
	}

	seed, err := st.QueryEvents(store.QueryOptions{SessionID: watchSession})
	if err != nil {
		return fmt.Errorf("failed to backfill events: %w", err)
	}
	follower.Seed(ctx, seed)

	recent := ingestor.Events()
	if watchBackfill > 0 && len(recent) > watchBackfill {
		recent = recent[:watchBackfill]
	}
	// Buffer is newest-first; print the backfill oldest-first.
	for i := len(recent) - 1; i >= 0; i-- {
		printWatchEvent(recent[i])
	}
	for _, ev := range seed {
		if ev.ID > maxPrintedID {
			maxPrintedID = ev.ID
		}
	}

	fmt.Printf("Following session %s (Ctrl+C to stop)\n", watchSession)
	follower.Run(ctx)

	fmt.Printf("\nStopped. %d events buffered.\n", ingestor.Len())
	return nil
}

func printWatchEvent(ev event.Event) {
	var b strings.Builder
	writeEventLine(&b, ev, "")
	fmt.Print(b.String())
}
