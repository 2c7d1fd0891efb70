package search

import (
	"testing"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/timeline"
	"github.com/timestone/timestone/internal/transcript"
)

func TestEvents(t *testing.T) {
	events := []event.Event{
		{TsWallMs: 3000, EventType: event.TypeTextInput,
			Payload: event.TextInputPayload{Text: "draft the Invoice email"}},
		{TsWallMs: 1000, EventType: event.TypeActiveWindowChanged,
			WindowTitle: "Invoice Editor", ProcessName: "writer"},
		{TsWallMs: 2000, EventType: event.TypeMouseClick},
		{TsWallMs: 4000, EventType: event.TypeClipboard,
			Payload: event.ClipboardPayload{Text: "unrelated"}},
	}

	hits := Events(events, "invoice")
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	// Ascending by wall-clock time regardless of input order
	if hits[0].WallMs != 1000 || hits[1].WallMs != 3000 {
		t.Errorf("Hit order = %d, %d", hits[0].WallMs, hits[1].WallMs)
	}
	if hits[0].Source != SourceEvent || hits[0].EventType != event.TypeActiveWindowChanged {
		t.Errorf("Hit 0 = %+v", hits[0])
	}
}

func TestEventsEmptyQuery(t *testing.T) {
	events := []event.Event{{TsWallMs: 1000, WindowTitle: "anything"}}
	if hits := Events(events, "   "); hits != nil {
		t.Errorf("Blank query returned %d hits", len(hits))
	}
}

func TestTranscript(t *testing.T) {
	start1, start2 := int64(1000), int64(5000)
	segments := []transcript.Segment{
		{StartMs: &start1, Text: "let us review the deploy"},
		{StartMs: &start2, Text: "retry the deploy now"},
		{Text: "deploy mentioned but untimed"},
	}
	clock := timeline.ClockOffset{OriginWallMs: 100_000}

	hits := Transcript(segments, clock, "deploy")
	// The untimed segment cannot be projected and is skipped
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].WallMs != 101_000 || hits[1].WallMs != 105_000 {
		t.Errorf("Wall times = %d, %d", hits[0].WallMs, hits[1].WallMs)
	}
	if hits[0].Source != SourceTranscript {
		t.Errorf("Source = %q", hits[0].Source)
	}
}

func TestMergeInterleaves(t *testing.T) {
	a := []Hit{{Source: SourceEvent, WallMs: 1000}, {Source: SourceEvent, WallMs: 3000}}
	b := []Hit{{Source: SourceTranscript, WallMs: 2000}}

	merged := Merge(a, b)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 hits, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].WallMs < merged[i-1].WallMs {
			t.Fatalf("Merged hits not ascending at %d", i)
		}
	}
	if merged[1].Source != SourceTranscript {
		t.Errorf("Middle hit = %+v, want the transcript hit", merged[1])
	}
}
