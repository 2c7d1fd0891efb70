package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/store"
)

var (
	eventsSession string
	eventsTypes   string
	eventsSearch  string
	eventsStartMs int64
	eventsEndMs   int64
	eventsLimit   int
	eventsGroup   bool
	eventsCopy    bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query recorded events",
	Long: `Query the event store for a session's events.

With --group, events are segmented by active window and consecutive
same-type events are collapsed into counted rows, the way a playback
frontend displays them. With --copy, the output is also placed on the
system clipboard.

Example:
  timestone events --session sess-2025-03-14 --types text_input,clipboard
  timestone events --session sess-2025-03-14 --search "invoice" --group`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsSession, "session", "s", "", "Session ID (required)")
	eventsCmd.Flags().StringVarP(&eventsTypes, "types", "t", "", "Comma-separated event types")
	eventsCmd.Flags().StringVar(&eventsSearch, "search", "", "Substring filter over window, process, and payload text")
	eventsCmd.Flags().Int64Var(&eventsStartMs, "start-ms", 0, "Lower wall-clock bound (epoch ms)")
	eventsCmd.Flags().Int64Var(&eventsEndMs, "end-ms", 0, "Upper wall-clock bound (epoch ms)")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 0, "Maximum number of events")
	eventsCmd.Flags().BoolVarP(&eventsGroup, "group", "g", false, "Group by window and collapse consecutive types")
	eventsCmd.Flags().BoolVar(&eventsCopy, "copy", false, "Copy output to the clipboard")
	_ = eventsCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogger(cfg)

	st, err := store.NewSQLiteStore(cfg.Settings.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() { _ = st.Close() }()

	opts := store.QueryOptions{
		SessionID: eventsSession,
		Search:    eventsSearch,
		Limit:     eventsLimit,
	}
	if eventsTypes != "" {
		for _, t := range strings.Split(eventsTypes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Types = append(opts.Types, t)
			}
		}
	}
	if eventsStartMs != 0 {
		opts.StartMs = &eventsStartMs
	}
	if eventsEndMs != 0 {
		opts.EndMs = &eventsEndMs
	}

	events, err := st.QueryEvents(opts)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No events matched")
		return nil
	}

	var out strings.Builder
	if eventsGroup {
		writeGrouped(&out, events)
	} else {
		for _, ev := range events {
			writeEventLine(&out, ev, "")
		}
	}

	fmt.Print(out.String())

	if eventsCopy {
		if err := clipboard.WriteAll(out.String()); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Printf("\nCopied %d events to clipboard\n", len(events))
	}

	return nil
}

// writeGrouped prints events the way the playback frontend structures them:
// window segments newest-first, consecutive same-type events collapsed.
func writeGrouped(out *strings.Builder, events []event.Event) {
	for _, seg := range event.SegmentByWindow(events) {
		if len(seg.Events) == 0 {
			continue
		}
		head := seg.Events[len(seg.Events)-1]
		title := head.WindowTitle
		if title == "" {
			title = head.ProcessName
		}
		if title == "" {
			title = "(unknown window)"
		}
		fmt.Fprintf(out, "%s  %s\n", formatWallMs(head.TsWallMs), title)

		for _, row := range event.GroupConsecutive(seg.Events) {
			if row.IsGroup() {
				first := row.Events[0]
				fmt.Fprintf(out, "  %s  %s x%d\n", formatWallMs(first.TsWallMs), row.Type, len(row.Events))
				continue
			}
			writeEventLine(out, row.Events[0], "  ")
		}
	}
}

func writeEventLine(out *strings.Builder, ev event.Event, indent string) {
	line := fmt.Sprintf("%s%s  %-21s", indent, formatWallMs(ev.TsWallMs), ev.EventType)
	if text := payloadText(ev); text != "" {
		line += "  " + text
	} else if ev.WindowTitle != "" {
		line += "  " + ev.WindowTitle
	}
	fmt.Fprintln(out, line)
}

func payloadText(ev event.Event) string {
	switch p := ev.Payload.(type) {
	case event.TextInputPayload:
		return p.Text
	case event.ClipboardPayload:
		return p.Text
	case event.KeyPayload:
		return p.Key
	default:
		return ""
	}
}

func formatWallMs(ms int64) string {
	return time.UnixMilli(ms).Format("15:04:05.000")
}
