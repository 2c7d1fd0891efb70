package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/store"
)

// SSEBroadcaster streams newly stored events to connected clients. It polls
// the store with an id cursor per session and broadcasts each new batch;
// clients choose a session filter when they subscribe. Periodic heartbeats
// keep idle connections alive.
type SSEBroadcaster struct {
	clients       map[chan SSEEvent]string // channel -> session filter ("" = all)
	mu            sync.RWMutex
	store         store.EventStore
	lastEventID   map[string]int64
	pollInterval  time.Duration
	heartbeatSecs int64
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewSSEBroadcaster creates a broadcaster over the event store.
func NewSSEBroadcaster(st store.EventStore, pollInterval time.Duration, heartbeatSecs int64) *SSEBroadcaster {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if heartbeatSecs <= 0 {
		heartbeatSecs = 30
	}
	return &SSEBroadcaster{
		clients:       make(map[chan SSEEvent]string),
		store:         st,
		lastEventID:   make(map[string]int64),
		pollInterval:  pollInterval,
		heartbeatSecs: heartbeatSecs,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the poll and heartbeat loop.
func (b *SSEBroadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop halts the loop and closes every client channel.
func (b *SSEBroadcaster) Stop() {
	close(b.stopCh)
	b.wg.Wait()

	b.mu.Lock()
	for ch := range b.clients {
		close(ch)
		delete(b.clients, ch)
	}
	b.mu.Unlock()
}

func (b *SSEBroadcaster) run(ctx context.Context) {
	defer b.wg.Done()

	poll := time.NewTicker(b.pollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(time.Duration(b.heartbeatSecs) * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case <-poll.C:
			b.checkForNewEvents()
		case <-heartbeat.C:
			b.Broadcast("", SSEEvent{
				Type: SSEHeartbeat,
				Data: map[string]any{
					"time":    time.Now().UTC(),
					"clients": b.ClientCount(),
				},
			})
		}
	}
}

// Subscribe registers a client channel. A non-empty sessionID restricts
// the stream to that session.
func (b *SSEBroadcaster) Subscribe(sessionID string) chan SSEEvent {
	ch := make(chan SSEEvent, 100)
	b.mu.Lock()
	b.clients[ch] = sessionID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel. Safe to call more
// than once for the same channel.
func (b *SSEBroadcaster) Unsubscribe(ch chan SSEEvent) {
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Broadcast fans an event out to every client whose filter admits the
// session. A slow client loses the event instead of stalling delivery.
func (b *SSEBroadcaster) Broadcast(sessionID string, ev SSEEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.clients {
		if filter != "" && sessionID != "" && filter != sessionID {
			continue
		}
		select {
		case ch <- ev:
		default:
			logger.Debug().Msg("SSE client channel full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *SSEBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *SSEBroadcaster) checkForNewEvents() {
	if b.store == nil {
		return
	}

	sessions, err := b.store.ListSessions()
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to list sessions for SSE polling")
		return
	}

	for _, session := range sessions {
		events, err := b.store.EventsAfterID(session.SessionID, b.lastEventID[session.SessionID], 500)
		if err != nil || len(events) == 0 {
			continue
		}
		b.lastEventID[session.SessionID] = events[len(events)-1].ID

		batch := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			batch = append(batch, toEventResponse(ev))
		}
		b.Broadcast(session.SessionID, SSEEvent{
			Type: SSEEventBatch,
			Data: batch,
		})
	}
}

// ServeHTTP handles an SSE connection. Query parameters: session_id filters
// the stream, since_ms replays the backlog from a resume cursor before live
// delivery begins.
func (b *SSEBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")

	ch := b.Subscribe(sessionID)
	defer b.Unsubscribe(ch)

	writeSSEEvent(w, SSEEvent{
		Type: "connected",
		Data: map[string]any{
			"message": "Connected to timestone event stream",
			"time":    time.Now().UTC(),
		},
	})
	flusher.Flush()

	// Replay from the resume cursor so a reconnect loses nothing; the
	// client's id dedup drops the 1ms overlap.
	if since := r.URL.Query().Get("since_ms"); since != "" && sessionID != "" {
		b.replayBacklog(w, sessionID, since)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, ev)
			flusher.Flush()
		}
	}
}

func (b *SSEBroadcaster) replayBacklog(w http.ResponseWriter, sessionID, since string) {
	var sinceMs int64
	if _, err := fmt.Sscanf(since, "%d", &sinceMs); err != nil {
		return
	}
	events, err := b.store.QueryEvents(store.QueryOptions{
		SessionID: sessionID,
		StartMs:   &sinceMs,
	})
	if err != nil || len(events) == 0 {
		return
	}
	batch := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		batch = append(batch, toEventResponse(ev))
	}
	writeSSEEvent(w, SSEEvent{Type: SSEEventBatch, Data: batch})
}

func writeSSEEvent(w http.ResponseWriter, ev SSEEvent) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}

	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
