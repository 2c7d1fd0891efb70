// Package schedule stitches the discrete video files of one logical
// recording into a single wall-clock addressable timeline.
package schedule

// VideoSegment is one physical video file covering a bounded wall-clock
// window. EndWallMs is inferred from the chronologically next segment when
// the scanner could not determine it. StartSource records how StartWallMs
// was inferred ("filename" or "mtime").
type VideoSegment struct {
	ID              string   `json:"id"`
	FilePath        string   `json:"path"`
	Name            string   `json:"name"`
	StartWallMs     *int64   `json:"start_ms"`
	EndWallMs       *int64   `json:"end_ms"`
	DurationSeconds *float64 `json:"duration_s"`
	StartSource     string   `json:"start_source,omitempty"`
}

// Schedule is an ordered set of video segments sorted ascending by
// StartWallMs. Segments without a start time are kept at the tail and
// excluded from wall-clock lookups. A Schedule is immutable: a folder rescan
// or filter change builds a replacement wholesale, so a lookup never
// observes a half-built schedule.
type Schedule struct {
	segments []VideoSegment
}

// New builds a schedule from a raw unordered segment list. Segments are
// sorted by start time (nil starts last) and each segment's missing end time
// is resolved from its successor's start.
func New(raw []VideoSegment) *Schedule {
	segments := make([]VideoSegment, len(raw))
	copy(segments, raw)

	// Insertion sort keeps the sort stable for equal start times.
	for i := 1; i < len(segments); i++ {
		for j := i; j > 0 && segmentLess(segments[j], segments[j-1]); j-- {
			segments[j], segments[j-1] = segments[j-1], segments[j]
		}
	}

	for i := range segments {
		if segments[i].EndWallMs != nil || segments[i].StartWallMs == nil {
			continue
		}
		if end, ok := resolveEnd(segments, i); ok {
			segments[i].EndWallMs = &end
		}
	}

	return &Schedule{segments: segments}
}

func segmentLess(a, b VideoSegment) bool {
	if a.StartWallMs == nil {
		return false
	}
	if b.StartWallMs == nil {
		return true
	}
	return *a.StartWallMs < *b.StartWallMs
}

// resolveEnd finds the end of segment i: its duration when known, otherwise
// the start of the next timed segment.
func resolveEnd(segments []VideoSegment, i int) (int64, bool) {
	seg := segments[i]
	if seg.DurationSeconds != nil && *seg.DurationSeconds > 0 {
		return *seg.StartWallMs + int64(*seg.DurationSeconds*1000), true
	}
	for j := i + 1; j < len(segments); j++ {
		if segments[j].StartWallMs != nil {
			return *segments[j].StartWallMs, true
		}
	}
	return 0, false
}

// Segments returns the ordered segments.
func (s *Schedule) Segments() []VideoSegment {
	out := make([]VideoSegment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len returns the number of segments.
func (s *Schedule) Len() int {
	return len(s.segments)
}

// SegmentAt returns the first segment whose [start, end) window contains
// wallMs, or nil when the time falls in a gap or outside the recording.
// Segments without a start time never match; a segment whose end could not
// be resolved is treated as open-ended.
func (s *Schedule) SegmentAt(wallMs int64) *VideoSegment {
	for i := range s.segments {
		seg := &s.segments[i]
		if seg.StartWallMs == nil {
			continue
		}
		if wallMs < *seg.StartWallMs {
			continue
		}
		if seg.EndWallMs == nil || wallMs < *seg.EndWallMs {
			out := *seg
			return &out
		}
	}
	return nil
}

// NextSegment returns the segment immediately following the one with the
// given id in schedule order, or nil at the end or when the id is unknown.
func (s *Schedule) NextSegment(currentID string) *VideoSegment {
	for i := range s.segments {
		if s.segments[i].ID == currentID {
			if i+1 < len(s.segments) {
				out := s.segments[i+1]
				return &out
			}
			return nil
		}
	}
	return nil
}

// FindByID returns the segment with the given id, or nil.
func (s *Schedule) FindByID(id string) *VideoSegment {
	for i := range s.segments {
		if s.segments[i].ID == id {
			out := s.segments[i]
			return &out
		}
	}
	return nil
}
