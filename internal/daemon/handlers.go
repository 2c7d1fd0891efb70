package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/timestone/timestone/internal/config"
	"github.com/timestone/timestone/internal/scan"
	"github.com/timestone/timestone/internal/store"
)

// Handlers contains the HTTP handlers for the daemon API
type Handlers struct {
	store     store.EventStore
	cfg       *config.Config
	startedAt time.Time
	version   string
}

// NewHandlers creates a new handlers instance
func NewHandlers(st store.EventStore, cfg *config.Config, version string) *Handlers {
	return &Handlers{
		store:     st,
		cfg:       cfg,
		startedAt: time.Now(),
		version:   version,
	}
}

// Health handles the health check endpoint
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		StartedAt: h.startedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sessions handles the session directory endpoint
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []SessionResponse{}})
		return
	}

	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			SessionID:    s.SessionID,
			StartWallMs:  s.StartWallMs,
			StartWallISO: s.StartWallISO,
			OBSVideoPath: s.OBSVideoPath,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": resp})
}

// Events handles the event query endpoint. Query parameters: session_id
// (required), event_types (comma separated allow-list), search (free text),
// start_ms / end_ms (wall-clock bounds), limit.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []EventResponse{}})
		return
	}

	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	opts := store.QueryOptions{
		SessionID: sessionID,
		Search:    q.Get("search"),
	}
	if types := q.Get("event_types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Types = append(opts.Types, t)
			}
		}
	}
	opts.StartMs = parseInt64Param(q.Get("start_ms"))
	opts.EndMs = parseInt64Param(q.Get("end_ms"))
	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	events, err := h.store.QueryEvents(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": resp})
}

// Segments handles the record segment endpoint backing schedule construction
func (h *Handlers) Segments(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"segments": []SegmentResponse{}})
		return
	}

	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	segments, err := h.store.RecordSegments(sessionID, parseInt64Param(q.Get("start_ms")), parseInt64Param(q.Get("end_ms")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]SegmentResponse, 0, len(segments))
	for _, seg := range segments {
		resp = append(resp, SegmentResponse{
			ID:          seg.ID,
			SessionID:   seg.SessionID,
			StartWallMs: seg.StartWallMs,
			EndWallMs:   seg.EndWallMs,
			OBSPath:     seg.OBSPath,
			Processed:   seg.Processed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"segments": resp})
}

// Videos handles the capture-folder scan endpoint. Query parameters: folder
// (defaults to the configured capture folder), start_ms / end_ms bounds.
func (h *Handlers) Videos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder := q.Get("folder")
	if folder == "" && h.cfg != nil {
		folder = h.cfg.Settings.Capture.VideoFolder
	}
	if folder == "" {
		writeError(w, http.StatusBadRequest, "folder is required")
		return
	}

	result, err := scan.Folder(folder, parseInt64Param(q.Get("start_ms")), parseInt64Param(q.Get("end_ms")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseInt64Param(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
