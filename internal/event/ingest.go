package event

import (
	"sort"
	"sync"
)

const (
	// DefaultCapacity bounds the retained event count. Oldest entries are
	// dropped silently once exceeded; bounded memory is traded for history.
	DefaultCapacity = 2000

	// DefaultMergeWindowMs is the maximum wall-clock gap between two
	// text_input fragments that still merge into one event.
	DefaultMergeWindowMs = 1500
)

// Ingestor is the append-only, deduplicating, capacity-bounded buffer fed by
// the live event source. The buffer is kept descending by ts_wall_ms for
// display. All operations are safe for concurrent use; a batch is applied
// atomically.
type Ingestor struct {
	mu            sync.Mutex
	capacity      int
	mergeWindowMs int64
	seen          map[int64]struct{}
	events        []Event // descending by ts_wall_ms
	maxSeenWallMs int64
	monoBaseMs    int64
	monoBaseSet   bool
}

// NewIngestor creates an ingestor with the given capacity and text-merge
// window. Non-positive arguments fall back to the defaults.
func NewIngestor(capacity int, mergeWindowMs int64) *Ingestor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if mergeWindowMs <= 0 {
		mergeWindowMs = DefaultMergeWindowMs
	}
	return &Ingestor{
		capacity:      capacity,
		mergeWindowMs: mergeWindowMs,
		seen:          make(map[int64]struct{}),
	}
}

// Ingest applies a batch: duplicates are dropped by id, text_input fragments
// merge into the most recent retained event when eligible, and the buffer is
// re-sorted and truncated to capacity. Returns the number of events the
// batch contributed (merged fragments count as contributed).
func (g *Ingestor) Ingest(batch []Event) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	accepted := 0
	for _, ev := range batch {
		if _, dup := g.seen[ev.ID]; dup {
			continue
		}
		g.seen[ev.ID] = struct{}{}
		accepted++

		if ev.TsWallMs > g.maxSeenWallMs {
			g.maxSeenWallMs = ev.TsWallMs
		}
		if !g.monoBaseSet && ev.TsWallMs != 0 && ev.TsMonoMs != 0 {
			// Single fixed base per load; a later capture restart does not
			// re-base.
			g.monoBaseMs = ev.TsWallMs - ev.TsMonoMs
			g.monoBaseSet = true
		}

		if ev.EventType == TypeTextInput && g.mergeTextInput(ev) {
			continue
		}
		g.events = append(g.events, ev)
	}

	if accepted > 0 {
		sort.SliceStable(g.events, func(i, j int) bool {
			if g.events[i].TsWallMs != g.events[j].TsWallMs {
				return g.events[i].TsWallMs > g.events[j].TsWallMs
			}
			return g.events[i].ID > g.events[j].ID
		})
		if len(g.events) > g.capacity {
			g.events = g.events[:g.capacity]
		}
	}
	return accepted
}

// mergeTextInput folds ev into the most recent retained event when that
// event is a non-final text_input fragment on the same window within the
// merge window. The retained event's text is the concatenation and its
// timestamps advance to ev's.
func (g *Ingestor) mergeTextInput(ev Event) bool {
	if len(g.events) == 0 {
		return false
	}
	newest := 0
	for i := 1; i < len(g.events); i++ {
		if g.events[i].TsWallMs > g.events[newest].TsWallMs ||
			(g.events[i].TsWallMs == g.events[newest].TsWallMs && g.events[i].ID > g.events[newest].ID) {
			newest = i
		}
	}
	prev := &g.events[newest]
	if prev.EventType != TypeTextInput ||
		prev.SessionID != ev.SessionID ||
		prev.WindowTitle != ev.WindowTitle ||
		prev.ProcessName != ev.ProcessName ||
		prev.WindowClass != ev.WindowClass {
		return false
	}
	gap := ev.TsWallMs - prev.TsWallMs
	if gap < 0 {
		gap = -gap
	}
	if gap > g.mergeWindowMs {
		return false
	}
	prevText, okPrev := prev.Payload.(TextInputPayload)
	newText, okNew := ev.Payload.(TextInputPayload)
	if !okPrev || !okNew || prevText.Final || newText.Final {
		return false
	}
	prev.Payload = TextInputPayload{Text: prevText.Text + newText.Text}
	prev.TsWallMs = ev.TsWallMs
	prev.TsMonoMs = ev.TsMonoMs
	return true
}

// Events returns a snapshot of the buffer, descending by ts_wall_ms.
func (g *Ingestor) Events() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Event, len(g.events))
	copy(out, g.events)
	return out
}

// Len returns the retained event count.
func (g *Ingestor) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.events)
}

// ResumeCursor returns the wall-clock timestamp the live source should
// resume from. The 1ms overlap tolerates at-least-once delivery; id dedup
// drops the resulting duplicate.
func (g *Ingestor) ResumeCursor() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maxSeenWallMs == 0 {
		return 0
	}
	return g.maxSeenWallMs - 1
}

// MonoToWallMs projects a capture-side monotonic timestamp onto the wall
// clock using the base fixed by the first event that carried both clocks.
func (g *Ingestor) MonoToWallMs(monoMs int64) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.monoBaseSet {
		return 0, false
	}
	return monoMs + g.monoBaseMs, true
}
