package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/search"
	"github.com/timestone/timestone/internal/store"
	"github.com/timestone/timestone/internal/timeline"
	"github.com/timestone/timestone/internal/transcript"
)

var (
	searchSession    string
	searchTranscript string
	searchManifest   string
	searchOffset     float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search events and transcript for a phrase",
	Long: `Search a session's event log, and optionally its transcript, for a
phrase. Hits are reported with the wall-clock time playback would seek to.

Transcript timestamps are measured on the capture timeline; projecting
them onto the wall clock needs the session's alignment manifest
(--manifest), optionally nudged by a manual offset (--offset).

Example:
  timestone search "invoice" --session sess-2025-03-14
  timestone search "retry the deploy" -s sess-2025-03-14 \
      --transcript talk.txt --manifest manifest.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchSession, "session", "s", "", "Session ID (required)")
	searchCmd.Flags().StringVar(&searchTranscript, "transcript", "", "Transcript file to search")
	searchCmd.Flags().StringVar(&searchManifest, "manifest", "", "Alignment manifest for transcript projection")
	searchCmd.Flags().Float64Var(&searchOffset, "offset", 0, "Manual clock offset in seconds")
	_ = searchCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	cfg := loadConfig()
	initLogger(cfg)

	st, err := store.NewSQLiteStore(cfg.Settings.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() { _ = st.Close() }()

	events, err := st.QueryEvents(store.QueryOptions{SessionID: searchSession})
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	hits := search.Events(events, query)

	if searchTranscript != "" {
		transcriptHits, err := searchTranscriptFile(query)
		if err != nil {
			return err
		}
		hits = search.Merge(hits, transcriptHits)
	}

	if len(hits) == 0 {
		fmt.Println("No matches")
		return nil
	}

	for _, hit := range hits {
		label := hit.Source
		if hit.EventType != "" {
			label = hit.EventType
		}
		fmt.Printf("%s  %-21s  %s\n",
			time.UnixMilli(hit.WallMs).Format("15:04:05.000"), label, hit.Text)
	}
	fmt.Printf("%d matches\n", len(hits))

	return nil
}

func searchTranscriptFile(query string) ([]search.Hit, error) {
	text, err := os.ReadFile(searchTranscript)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	segments := transcript.Parse(string(text))

	var clock timeline.ClockOffset
	if searchManifest != "" {
		data, err := os.ReadFile(searchManifest)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		m, err := timeline.ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		clock, err = m.ClockOffset(searchOffset)
		if err != nil {
			return nil, fmt.Errorf("failed to derive clock offset: %w", err)
		}
	} else {
		logger.Warn().Msg("No manifest given, transcript times reported relative to capture start")
		clock = timeline.ClockOffset{ManualOffsetSeconds: searchOffset}
	}

	return search.Transcript(segments, clock, query), nil
}
