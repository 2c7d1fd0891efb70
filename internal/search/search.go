// Package search correlates the event log and transcript against a query
// string, returning wall-clock hits that playback can seek to.
package search

import (
	"sort"
	"strings"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/timeline"
	"github.com/timestone/timestone/internal/transcript"
)

// Hit source values.
const (
	SourceEvent      = "event"
	SourceTranscript = "transcript"
)

// Hit is one match, addressable by wall-clock time.
type Hit struct {
	Source    string `json:"source"`
	WallMs    int64  `json:"wall_ms"`
	EventType string `json:"event_type,omitempty"`
	Text      string `json:"text"`
}

// Events matches the query against window titles, process names, and text
// payloads, case insensitive. Results are ascending by wall-clock time.
func Events(events []event.Event, query string) []Hit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []Hit
	for _, ev := range events {
		text := eventText(ev)
		if !strings.Contains(strings.ToLower(text), q) {
			continue
		}
		hits = append(hits, Hit{
			Source:    SourceEvent,
			WallMs:    ev.TsWallMs,
			EventType: ev.EventType,
			Text:      text,
		})
	}
	sortHits(hits)
	return hits
}

func eventText(ev event.Event) string {
	var parts []string
	if ev.WindowTitle != "" {
		parts = append(parts, ev.WindowTitle)
	}
	if ev.ProcessName != "" {
		parts = append(parts, ev.ProcessName)
	}
	switch p := ev.Payload.(type) {
	case event.TextInputPayload:
		parts = append(parts, p.Text)
	case event.ClipboardPayload:
		parts = append(parts, p.Text)
	case event.KeyPayload:
		parts = append(parts, p.Key)
	}
	return strings.Join(parts, " ")
}

// Transcript matches the query against timestamped transcript segments,
// projecting each hit onto the wall clock through the session clock offset.
func Transcript(segments []transcript.Segment, clock timeline.ClockOffset, query string) []Hit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []Hit
	for _, seg := range segments {
		if !strings.Contains(strings.ToLower(seg.Text), q) {
			continue
		}
		wallMs, ok := seg.WallStartMs(clock)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Source: SourceTranscript,
			WallMs: wallMs,
			Text:   seg.Text,
		})
	}
	sortHits(hits)
	return hits
}

// Merge interleaves hit lists into one ascending sequence.
func Merge(lists ...[]Hit) []Hit {
	var all []Hit
	for _, l := range lists {
		all = append(all, l...)
	}
	sortHits(all)
	return all
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].WallMs < hits[j].WallMs
	})
}
