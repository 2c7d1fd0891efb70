package live

import (
	"context"

	"github.com/timestone/timestone/internal/event"
	"github.com/timestone/timestone/internal/store"
)

// StoreSource adapts the event store into a live Source by polling the
// persistent log with a wall-clock cursor.
type StoreSource struct {
	store store.EventStore
}

// NewStoreSource wraps an event store.
func NewStoreSource(st store.EventStore) *StoreSource {
	return &StoreSource{store: st}
}

// FetchSince returns events at or after sinceMs, ascending.
func (s *StoreSource) FetchSince(ctx context.Context, sessionID string, sinceMs int64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.QueryEvents(store.QueryOptions{
		SessionID: sessionID,
		StartMs:   &sinceMs,
		Limit:     limit,
	})
}
