package transcript

import (
	"testing"

	"github.com/timestone/timestone/internal/timeline"
)

func TestParse(t *testing.T) {
	text := `[0.00s -> 2.50s] hello and welcome
[2.50s -> 4.10s]  let's look at the invoice

untimed commentary line
[4.10s -> 3.90s] reversed timestamps
`
	segments := Parse(text)
	if len(segments) != 4 {
		t.Fatalf("Expected 4 segments, got %d", len(segments))
	}

	first := segments[0]
	if first.StartMs == nil || *first.StartMs != 0 {
		t.Errorf("First start = %v, want 0", first.StartMs)
	}
	if first.EndMs == nil || *first.EndMs != 2500 {
		t.Errorf("First end = %v, want 2500", first.EndMs)
	}
	if first.Text != "hello and welcome" {
		t.Errorf("First text = %q", first.Text)
	}

	// Leading whitespace inside the bracketed text is trimmed
	if segments[1].Text != "let's look at the invoice" {
		t.Errorf("Second text = %q", segments[1].Text)
	}

	// Non-matching lines survive as text-only segments, blanks are dropped
	if segments[2].StartMs != nil || segments[2].Text != "untimed commentary line" {
		t.Errorf("Untimed segment = %+v", segments[2])
	}

	// A reversed range is clamped so end >= start
	last := segments[3]
	if last.StartMs == nil || last.EndMs == nil {
		t.Fatal("Reversed segment lost its timestamps")
	}
	if *last.EndMs < *last.StartMs {
		t.Errorf("End %d < start %d after clamp", *last.EndMs, *last.StartMs)
	}
}

func TestParseEmpty(t *testing.T) {
	if segments := Parse(""); len(segments) != 0 {
		t.Errorf("Expected no segments, got %d", len(segments))
	}
}

func TestWallStartMs(t *testing.T) {
	clock := timeline.ClockOffset{OriginWallMs: 1_000_000, AudioOffsetSeconds: 0.5}

	start := int64(2500)
	timed := Segment{StartMs: &start, Text: "x"}
	wall, ok := timed.WallStartMs(clock)
	if !ok {
		t.Fatal("Timed segment reported no wall start")
	}
	// 2.5s on the timeline + 0.5s audio offset past the origin
	if wall != 1_003_000 {
		t.Errorf("WallStartMs = %d, want 1003000", wall)
	}

	untimed := Segment{Text: "y"}
	if _, ok := untimed.WallStartMs(clock); ok {
		t.Error("Untimed segment reported a wall start")
	}
}
