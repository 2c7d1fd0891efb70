package event

// Segment is a contiguous run of events sharing one active-window context,
// opened at each active_window_changed event. IDs are assigned at
// construction and carry no meaning beyond identity.
type Segment struct {
	ID     int
	Events []Event
}

// Row is one display row: a single event, or a group of consecutive events
// sharing the same type within a segment.
type Row struct {
	ID     int
	Type   string
	Events []Event
}

// IsGroup reports whether the row collapsed more than one event.
func (r Row) IsGroup() bool {
	return len(r.Events) > 1
}

// SegmentByWindow partitions events, which must be ascending by ts_wall_ms,
// into window-focus segments. A new segment opens at every
// active_window_changed event and at the very first event when it is not one.
// The result is ordered most-recent-segment-first, with each segment's
// events most-recent-first; intra-segment chronology is preserved before the
// final reverse.
func SegmentByWindow(events []Event) []Segment {
	var segments []Segment
	nextID := 0
	for _, ev := range events {
		if ev.EventType == TypeActiveWindowChanged || len(segments) == 0 {
			segments = append(segments, Segment{ID: nextID})
			nextID++
		}
		cur := &segments[len(segments)-1]
		cur.Events = append(cur.Events, ev)
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	for s := range segments {
		evs := segments[s].Events
		for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
			evs[i], evs[j] = evs[j], evs[i]
		}
	}
	return segments
}

// GroupConsecutive collapses consecutive same-type events into rows. The
// walk is greedy, single pass, and order preserving: an event extends the
// previous row if and only if the types match, converting a running single
// into a group on the second match.
func GroupConsecutive(events []Event) []Row {
	var rows []Row
	for _, ev := range events {
		if n := len(rows); n > 0 && rows[n-1].Type == ev.EventType {
			rows[n-1].Events = append(rows[n-1].Events, ev)
			continue
		}
		rows = append(rows, Row{
			ID:     len(rows),
			Type:   ev.EventType,
			Events: []Event{ev},
		})
	}
	return rows
}
