// Package live feeds the event ingestor from an upstream event source,
// reconnecting with the ingestor's resume cursor so delivery stays
// idempotent across drops.
package live

import (
	"context"
	"time"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/logger"
)

// Source delivers event batches for a session starting at a wall-clock
// resume cursor. Implementations may poll a store or hold a push connection;
// the contract is only the batch and cursor semantics.
type Source interface {
	FetchSince(ctx context.Context, sessionID string, sinceMs int64, limit int) ([]event.Event, error)
}

// Follower drives a Source into an Ingestor on a fixed interval. Switching
// session or context cancels the loop; a batch fetched for an abandoned
// context is discarded, never merged.
type Follower struct {
	source       Source
	ingestor     *event.Ingestor
	sessionID    string
	pollInterval time.Duration
	batchLimit   int

	// OnBatch, when set, observes each fetched batch after ingestion along
	// with the number of events the ingestor accepted. Called from Run's
	// goroutine.
	OnBatch func(batch []event.Event, accepted int)
}

// NewFollower creates a follower for one session.
func NewFollower(source Source, ingestor *event.Ingestor, sessionID string, pollInterval time.Duration) *Follower {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Follower{
		source:       source,
		ingestor:     ingestor,
		sessionID:    sessionID,
		pollInterval: pollInterval,
		batchLimit:   500,
	}
}

// Seed backfills the ingestor with an initial load before live ingestion
// begins.
func (f *Follower) Seed(ctx context.Context, batch []event.Event) {
	if ctx.Err() != nil {
		return
	}
	n := f.ingestor.Ingest(batch)
	logger.Debug().
		Str("session", f.sessionID).
		Int("events", n).
		Msg("Seeded event buffer")
}

// Run polls until the context is canceled. Fetch errors are recoverable: the
// loop logs and retries on the next tick, relying on the resume cursor plus
// id dedup to make re-delivery harmless.
func (f *Follower) Run(ctx context.Context) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.pollOnce(ctx)
		}
	}
}

func (f *Follower) pollOnce(ctx context.Context) {
	batch, err := f.source.FetchSince(ctx, f.sessionID, f.ingestor.ResumeCursor(), f.batchLimit)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("session", f.sessionID).
			Msg("Live event fetch failed, will retry")
		return
	}
	if ctx.Err() != nil {
		// Canceled mid-fetch; drop the batch so no state from the old
		// context leaks past the switch.
		return
	}
	n := f.ingestor.Ingest(batch)
	if n > 0 {
		logger.Debug().
			Str("session", f.sessionID).
			Int("events", n).
			Msg("Ingested live events")
	}
	if f.OnBatch != nil {
		f.OnBatch(batch, n)
	}
}
