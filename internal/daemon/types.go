package daemon

import (
	"time"

	"github.com/timestone/timestone/internal/event"
)

// SessionResponse represents a session in API responses
type SessionResponse struct {
	SessionID    string `json:"session_id"`
	StartWallMs  int64  `json:"start_wall_ms"`
	StartWallISO string `json:"start_wall_iso,omitempty"`
	OBSVideoPath string `json:"obs_video_path,omitempty"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID          int64            `json:"id"`
	SessionID   string           `json:"session_id"`
	TsWallMs    int64            `json:"ts_wall_ms"`
	TsMonoMs    int64            `json:"ts_mono_ms"`
	EventType   string           `json:"event_type"`
	WindowTitle string           `json:"window_title,omitempty"`
	ProcessName string           `json:"process_name,omitempty"`
	WindowClass string           `json:"window_class,omitempty"`
	Mouse       *event.MouseInfo `json:"mouse,omitempty"`
	Payload     event.Payload    `json:"payload,omitempty"`
}

func toEventResponse(ev event.Event) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		SessionID:   ev.SessionID,
		TsWallMs:    ev.TsWallMs,
		TsMonoMs:    ev.TsMonoMs,
		EventType:   ev.EventType,
		WindowTitle: ev.WindowTitle,
		ProcessName: ev.ProcessName,
		WindowClass: ev.WindowClass,
		Mouse:       ev.Mouse,
		Payload:     ev.Payload,
	}
}

// SegmentResponse represents a record segment in API responses
type SegmentResponse struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	StartWallMs int64  `json:"start_wall_ms"`
	EndWallMs   *int64 `json:"end_wall_ms"`
	OBSPath     string `json:"obs_path,omitempty"`
	Processed   bool   `json:"processed"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
}

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SSE event types
const (
	SSEEventBatch = "event_batch"
	SSEHeartbeat  = "heartbeat"
)
