// Package transcript parses bracketed transcript text and projects its
// segments onto the wall clock so search can jump playback to a spoken
// phrase.
package transcript

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/timestone/timestone/internal/timeline"
)

// Segment is one transcript line. StartMs/EndMs are measured on the
// capture timeline and are nil for lines that carried no timestamps.
type Segment struct {
	ID      int    `json:"id"`
	StartMs *int64 `json:"start_ms"`
	EndMs   *int64 `json:"end_ms"`
	Text    string `json:"text"`
}

// Matches "[1.23s -> 4.56s] transcribed text".
var lineRe = regexp.MustCompile(`^\s*\[(\d+(?:\.\d+)?)s\s*->\s*(\d+(?:\.\d+)?)s\]\s*(.+?)\s*$`)

// Parse splits bracketed transcript text into segments. Lines without a
// timestamp bracket are preserved as text-only segments.
func Parse(text string) []Segment {
	var segments []Segment
	idx := 0
	for _, raw := range strings.Split(text, "\n") {
		m := lineRe.FindStringSubmatch(raw)
		if m == nil {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				segments = append(segments, Segment{ID: idx, Text: trimmed})
				idx++
			}
			continue
		}
		startSec, _ := strconv.ParseFloat(m[1], 64)
		endSec, _ := strconv.ParseFloat(m[2], 64)
		startMs := int64(startSec * 1000)
		endMs := int64(endSec * 1000)
		if endMs < startMs {
			endMs = startMs
		}
		segments = append(segments, Segment{
			ID:      idx,
			StartMs: &startMs,
			EndMs:   &endMs,
			Text:    m[3],
		})
		idx++
	}
	return segments
}

// WallStartMs projects a segment's start onto the wall clock through the
// session's clock offset.
func (s Segment) WallStartMs(clock timeline.ClockOffset) (int64, bool) {
	if s.StartMs == nil {
		return 0, false
	}
	return clock.ToWallMs(float64(*s.StartMs) / 1000), true
}
